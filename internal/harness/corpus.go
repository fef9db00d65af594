package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/engine"
)

type corpusEntry struct {
	ID     string `yaml:"id"`
	Diff   string `yaml:"diff"`
	Status string `yaml:"status"`
}

// LoadCorpus reads the fixed set of diffs an experiment runs over. path is
// either a directory of *.diff files, each with an optional sibling
// .status file, or a YAML list of {id, diff, status}. An empty corpus is a
// configuration error.
func LoadCorpus(path string) ([]engine.DiffInput, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}

	var diffs []engine.DiffInput
	if info.IsDir() {
		diffs, err = loadCorpusDir(path)
	} else {
		diffs, err = loadCorpusFile(path)
	}
	if err != nil {
		return nil, err
	}
	if len(diffs) == 0 {
		return nil, config.Invalid("corpus", path+" (no diffs)")
	}
	return diffs, nil
}

func loadCorpusDir(dir string) ([]engine.DiffInput, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.diff"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)

	out := make([]engine.DiffInput, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read corpus diff: %w", err)
		}
		if strings.TrimSpace(string(b)) == "" {
			continue
		}

		id := strings.TrimSuffix(filepath.Base(m), ".diff")
		var status string
		if sb, err := os.ReadFile(strings.TrimSuffix(m, ".diff") + ".status"); err == nil {
			status = string(sb)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read corpus status: %w", err)
		}
		out = append(out, engine.DiffInput{ID: id, Diff: string(b), Status: status})
	}
	return out, nil
}

func loadCorpusFile(path string) ([]engine.DiffInput, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var entries []corpusEntry
	if err := yaml.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	seen := map[string]bool{}
	out := make([]engine.DiffInput, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.Diff) == "" {
			continue
		}
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("diff-%d", i+1)
		}
		if seen[id] {
			return nil, config.Invalid("corpus", "duplicate id "+id)
		}
		seen[id] = true
		out = append(out, engine.DiffInput{ID: id, Diff: e.Diff, Status: e.Status})
	}
	return out, nil
}
