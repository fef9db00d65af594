// Package score aggregates run records into per-configuration summaries
// and ranks them.
package score

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/hoanghonghuy/commitlab/internal/runlog"
)

// Key identifies one configuration.
type Key struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Strategy string `json:"strategy"`

	// Constraints is empty when no constraint set was applied.
	Constraints string `json:"constraints,omitempty"`
}

func (k Key) String() string {
	s := k.Provider + "/" + k.Model + "/" + k.Strategy
	if k.Constraints != "" {
		s += "/" + k.Constraints
	}
	return s
}

func (k Key) less(o Key) bool {
	if k.Provider != o.Provider {
		return k.Provider < o.Provider
	}
	if k.Model != o.Model {
		return k.Model < o.Model
	}
	if k.Strategy != o.Strategy {
		return k.Strategy < o.Strategy
	}
	return k.Constraints < o.Constraints
}

func KeyOf(r runlog.Record) Key {
	return Key{Provider: r.Provider, Model: r.Model, Strategy: r.Strategy, Constraints: r.Constraints}
}

// Summary holds the aggregate metrics of one configuration. Score is NaN
// when there are no runs.
type Summary struct {
	Key            Key            `json:"key"`
	Runs           int            `json:"runs"`
	Accepted       int            `json:"accepted"`
	ValidRate      float64        `json:"valid_rate"`
	RetryRate      float64        `json:"retry_rate"`
	AverageLatency float64        `json:"average_latency_ms"`
	AverageWords   float64        `json:"average_words"`
	Reasons        map[string]int `json:"reasons,omitempty"`
	Violations     map[string]int `json:"violations,omitempty"`
	Score          float64        `json:"-"`
}

// Scored reports whether Score is defined.
func (s Summary) Scored() bool {
	return !math.IsNaN(s.Score)
}

func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	var score *float64
	if s.Scored() {
		score = &s.Score
	}
	return json.Marshal(struct {
		plain
		Score *float64 `json:"score"`
	}{plain(s), score})
}

// Formula returns the composite score. Correctness dominates; retries and
// latency are penalties.
func Formula(validRate, retryRate, averageLatencyMs float64) float64 {
	return validRate*100 - retryRate*20 - averageLatencyMs/1000
}

// Summarize aggregates records without regard to their configuration; the
// Key is taken from the first record.
func Summarize(records []runlog.Record) Summary {
	s := Summary{Score: math.NaN()}
	if len(records) == 0 {
		return s
	}
	s.Key = KeyOf(records[0])
	s.Runs = len(records)

	var retries, latency, words float64
	for _, r := range records {
		retries += float64(r.Retries)
		latency += float64(r.LatencyMs)
		if r.Success {
			s.Accepted++
			words += float64(r.Words)
			continue
		}
		if r.Reason != "" {
			if s.Reasons == nil {
				s.Reasons = map[string]int{}
			}
			s.Reasons[r.Reason]++
		}
		for _, v := range r.Violations {
			if s.Violations == nil {
				s.Violations = map[string]int{}
			}
			s.Violations[v]++
		}
	}

	n := float64(s.Runs)
	s.ValidRate = float64(s.Accepted) / n
	s.RetryRate = retries / n
	s.AverageLatency = latency / n
	if s.Accepted > 0 {
		s.AverageWords = words / float64(s.Accepted)
	}
	s.Score = Formula(s.ValidRate, s.RetryRate, s.AverageLatency)
	return s
}

// GroupBy partitions records by configuration, keeping file order inside
// each group.
func GroupBy(records []runlog.Record) map[Key][]runlog.Record {
	groups := map[Key][]runlog.Record{}
	for _, r := range records {
		k := KeyOf(r)
		groups[k] = append(groups[k], r)
	}
	return groups
}

// SummarizeAll returns one summary per configuration, ranked.
func SummarizeAll(records []runlog.Record) []Summary {
	groups := GroupBy(records)
	out := make([]Summary, 0, len(groups))
	for k, recs := range groups {
		s := Summarize(recs)
		s.Key = k
		out = append(out, s)
	}
	Rank(out)
	return out
}

// Rank sorts summaries by score (highest first), then by lower average
// latency, then by key. Unscored summaries sort last.
func Rank(summaries []Summary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if a.Scored() != b.Scored() {
			return a.Scored()
		}
		if a.Scored() && a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.AverageLatency != b.AverageLatency {
			return a.AverageLatency < b.AverageLatency
		}
		return a.Key.less(b.Key)
	})
}
