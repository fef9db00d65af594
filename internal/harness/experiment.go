// Package harness runs every configuration of an experiment over a corpus
// of diffs and appends one run record per invocation.
package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/hoanghonghuy/commitlab/internal/config"
)

const DefaultConcurrency = 4

// Experiment is the contents of an experiment file.
type Experiment struct {
	Name        string           `yaml:"name"`
	Defaults    config.Overrides `yaml:"defaults"`
	Concurrency int              `yaml:"concurrency"`
	Log         string           `yaml:"log"`
	Corpus      string           `yaml:"corpus"`

	Matrix         Matrix  `yaml:"matrix"`
	Configurations []Entry `yaml:"configurations"`

	// RateLimits caps requests per minute for each provider.
	RateLimits map[string]float64 `yaml:"rate_limits"`
}

// Matrix expands to every provider/model pair crossed with every strategy
// and, when named constraint sets are given, with every constraint set.
type Matrix struct {
	Providers   map[string][]string    `yaml:"providers"`
	Strategies  []string               `yaml:"strategies"`
	Constraints map[string]Constraints `yaml:"constraints"`
}

// Constraints is a named set of word-count bounds.
type Constraints struct {
	MinWords *int `yaml:"min_words"`
	MaxWords *int `yaml:"max_words"`
}

func (c Constraints) apply(s config.Settings) config.Settings {
	return config.Overrides{MinWords: c.MinWords, MaxWords: c.MaxWords}.Apply(s)
}

// Entry is one explicitly listed configuration. Constraints names a set
// from the matrix; the entry's own overrides are applied after it.
type Entry struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Strategy         string `yaml:"strategy"`
	Constraints      string `yaml:"constraints"`
	config.Overrides `yaml:",inline"`
}

// LoadExperiment reads an experiment file. Unknown fields are rejected and
// relative log and corpus paths are resolved against the file's directory.
func LoadExperiment(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment: %w", err)
	}

	var exp Experiment
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&exp); err != nil {
		return nil, fmt.Errorf("parse experiment %s: %w", path, err)
	}

	base := filepath.Dir(path)
	exp.Log = resolve(base, exp.Log)
	exp.Corpus = resolve(base, exp.Corpus)
	return &exp, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Expand returns the resolved settings of every configuration: the matrix
// cross product first (providers and constraint sets sorted by name), then
// explicit entries.
// An explicit entry replaces a matrix configuration with the same key.
func (e *Experiment) Expand() []config.Settings {
	base := e.Defaults.Apply(config.Defaults())

	var out []config.Settings
	index := map[string]int{}
	add := func(s config.Settings) {
		s.Strategy = config.NormalizeName(s.Strategy)
		key := s.Provider + "\x00" + s.Model + "\x00" + s.Strategy + "\x00" + s.Constraints
		if i, ok := index[key]; ok {
			out[i] = s
			return
		}
		index[key] = len(out)
		out = append(out, s)
	}

	providers := make([]string, 0, len(e.Matrix.Providers))
	for p := range e.Matrix.Providers {
		providers = append(providers, p)
	}
	sort.Strings(providers)

	sets := e.constraintNames()
	if len(sets) == 0 {
		sets = []string{""}
	}

	for _, p := range providers {
		for _, m := range e.Matrix.Providers[p] {
			for _, st := range e.Matrix.Strategies {
				for _, name := range sets {
					s := e.Matrix.Constraints[name].apply(base)
					s.Provider, s.Model, s.Strategy = p, m, st
					s.Constraints = name
					add(s)
				}
			}
		}
	}

	for _, c := range e.Configurations {
		s := c.Overrides.Apply(e.Matrix.Constraints[c.Constraints].apply(base))
		s.Constraints = c.Constraints
		s.Provider, s.Model = c.Provider, c.Model
		s.Strategy = c.Strategy
		if s.Strategy == "" {
			s.Strategy = base.Strategy
		}
		add(s)
	}
	return out
}

// Validate checks the experiment against the known provider and strategy
// names. It reports every problem, joined.
func (e *Experiment) Validate(providers, strategies []string) error {
	var errs []error
	if e.Corpus == "" {
		errs = append(errs, config.Missing("corpus"))
	}
	if e.Log == "" {
		errs = append(errs, config.Missing("log"))
	}
	if e.Concurrency < 0 {
		errs = append(errs, config.Invalid("concurrency", e.Concurrency))
	}
	for p, rpm := range e.RateLimits {
		if !contains(providers, p) {
			errs = append(errs, config.InvalidEnum("rate_limits", p, providers))
		}
		if rpm <= 0 {
			errs = append(errs, config.Invalid("rate_limits."+p, rpm))
		}
	}

	names := e.constraintNames()
	for _, c := range e.Configurations {
		if c.Constraints != "" && !contains(names, c.Constraints) {
			errs = append(errs, config.InvalidEnum("constraints", c.Constraints, names))
		}
	}

	settings := e.Expand()
	if len(settings) == 0 {
		errs = append(errs, config.Missing("configurations"))
	}
	for _, s := range settings {
		if err := s.Validate(providers, strategies); err != nil {
			errs = append(errs, fmt.Errorf("%s/%s/%s: %w", s.Provider, s.Model, s.Strategy, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Experiment) constraintNames() []string {
	names := make([]string, 0, len(e.Matrix.Constraints))
	for n := range e.Matrix.Constraints {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (e *Experiment) concurrency() int {
	if e.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return e.Concurrency
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
