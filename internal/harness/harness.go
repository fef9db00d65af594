package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/engine"
	"github.com/hoanghonghuy/commitlab/internal/prompt"
	"github.com/hoanghonghuy/commitlab/internal/providers"
	"github.com/hoanghonghuy/commitlab/internal/runlog"
	"github.com/hoanghonghuy/commitlab/internal/score"
)

// Appender is the run log as seen by the harness.
type Appender interface {
	Append(runlog.Record) error
}

// Harness runs an experiment. Registry, Credentials and Log are required.
type Harness struct {
	Registry    *providers.Registry
	Credentials config.Credentials
	Log         Appender

	Observer engine.Observer
	Logger   zerolog.Logger

	// Backoff delays retries after provider errors. Nil retries at once.
	Backoff func() backoff.BackOff

	// MaxDiffLines clips diffs in prompts; zero keeps them whole.
	MaxDiffLines int

	Now func() time.Time
}

// Report is what one experiment run produced.
type Report struct {
	ExperimentID string
	Records      []runlog.Record
	Summaries    []score.Summary
}

type target struct {
	settings config.Settings
	loop     *engine.Loop
}

// Run validates exp, loads its corpus and runs every configuration over
// every diff. Configuration problems are returned before any provider is
// called. Individual invocation failures are recorded, not returned; only a
// failed log append aborts the run. When ctx ends early, every pair not yet
// run is recorded as a timeout without calling its provider.
func (h *Harness) Run(ctx context.Context, exp *Experiment) (*Report, error) {
	if err := exp.Validate(h.Registry.Names(), prompt.Names()); err != nil {
		return nil, err
	}
	diffs, err := LoadCorpus(exp.Corpus)
	if err != nil {
		return nil, err
	}
	targets, err := h.targets(exp)
	if err != nil {
		return nil, err
	}

	now := h.Now
	if now == nil {
		now = time.Now
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("experiment id: %w", err)
	}
	rep := &Report{ExperimentID: id.String()}

	h.Logger.Info().
		Str("experiment", rep.ExperimentID).
		Str("name", exp.Name).
		Int("configurations", len(targets)).
		Int("diffs", len(diffs)).
		Int("concurrency", exp.concurrency()).
		Msg("starting experiment")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exp.concurrency())

	for _, t := range targets {
		for _, d := range diffs {
			t, d := t, d
			g.Go(func() error {
				// gctx alone is done only when another pair failed to log.
				// A done parent still yields a timeout record for the pair.
				if gctx.Err() != nil && ctx.Err() == nil {
					return nil
				}

				runCtx, cancel := context.WithTimeout(gctx, t.settings.Timeout)
				res := t.loop.Run(runCtx, d)
				cancel()

				rec := runlog.NewRecord(rep.ExperimentID, t.loop.Labels(), t.settings.RetryBound, d, res, now())
				if err := h.Log.Append(rec); err != nil {
					return err
				}

				h.Logger.Info().
					Str("provider", rec.Provider).
					Str("model", rec.Model).
					Str("strategy", rec.Strategy).
					Str("diff", d.ID).
					Bool("success", rec.Success).
					Str("reason", rec.Reason).
					Int("retries", rec.Retries).
					Int64("latency_ms", rec.LatencyMs).
					Msg("run")

				mu.Lock()
				rep.Records = append(rep.Records, rec)
				mu.Unlock()
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return rep, fmt.Errorf("experiment aborted: %w", err)
	}

	if err := ctx.Err(); err != nil {
		h.Logger.Warn().Err(err).Str("experiment", rep.ExperimentID).Msg("experiment ended early, unfinished runs recorded as timeouts")
	}

	rep.Summaries = score.SummarizeAll(rep.Records)
	return rep, nil
}

// targets builds one loop per configuration. Providers sharing a name share
// a rate limiter.
func (h *Harness) targets(exp *Experiment) ([]target, error) {
	limiters := map[string]*rate.Limiter{}
	for name, rpm := range exp.RateLimits {
		limiters[name] = rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/rpm)), 1)
	}

	var out []target
	for _, s := range exp.Expand() {
		p, err := h.Registry.New(s.Provider, h.Credentials, s.Timeout)
		if err != nil {
			return nil, err
		}
		strategy, err := prompt.Lookup(s.Strategy)
		if err != nil {
			return nil, err
		}

		opts := []engine.Option{engine.WithLogger(h.Logger)}
		if lim, ok := limiters[s.Provider]; ok {
			opts = append(opts, engine.WithLimiter(lim))
		}
		if h.Observer != nil {
			opts = append(opts, engine.WithObserver(h.Observer))
		}
		if h.Backoff != nil {
			opts = append(opts, engine.WithBackoff(h.Backoff))
		}

		loop := engine.New(p, engine.Config{
			Provider: s.Provider,
			Model:    s.Model,
			Strategy: strategy,
			Options: prompt.Options{
				MaxHeaderLength: s.MaxHeaderLength,
				MinWords:        s.MinWords,
				MaxWords:        s.MaxWords,
				MaxDiffLines:    h.MaxDiffLines,
			},
			Constraints: s.Constraints,
			RetryBound:  s.RetryBound,
			Temperature: s.Temperature,
			MaxTokens:   s.MaxTokens,
			Feedback:    s.Feedback,
		}, opts...)
		out = append(out, target{settings: s, loop: loop})
	}
	return out, nil
}
