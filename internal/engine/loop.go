package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hoanghonghuy/commitlab/internal/ai"
	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/conventional"
)

// Loop generates candidates until one validates or the retry bound is
// spent. A Loop holds no per-run state and may be shared by goroutines.
type Loop struct {
	provider  ai.Provider
	cfg       Config
	validator conventional.Validator

	log      zerolog.Logger
	backoff  func() backoff.BackOff
	limiter  *rate.Limiter
	observer Observer
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Loop)

func WithLogger(log zerolog.Logger) Option {
	return func(l *Loop) { l.log = log }
}

// WithBackoff delays retries that follow a provider error. newBackOff is
// called once per run.
func WithBackoff(newBackOff func() backoff.BackOff) Option {
	return func(l *Loop) { l.backoff = newBackOff }
}

// WithLimiter waits on lim before every provider call.
func WithLimiter(lim *rate.Limiter) Option {
	return func(l *Loop) { l.limiter = lim }
}

func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observer = o }
}

// WithClock replaces time.Now for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

func New(p ai.Provider, cfg Config, opts ...Option) *Loop {
	l := &Loop{
		provider:  p,
		cfg:       cfg,
		validator: conventional.New(cfg.Options.MaxHeaderLength).WithWordBounds(cfg.Options.MinWords, cfg.Options.MaxWords),
		log:       zerolog.Nop(),
		now:       time.Now,
		sleep:     sleepContext,
	}
	if l.cfg.Feedback == "" {
		l.cfg.Feedback = config.DefaultFeedback
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Labels() Labels {
	return Labels{Provider: l.cfg.Provider, Model: l.cfg.Model, Strategy: l.cfg.Strategy.Name(), Constraints: l.cfg.Constraints}
}

// run is the mutable state of one invocation.
type run struct {
	in    DiffInput
	state State
	res   Result

	latency   time.Duration
	pending   time.Duration // latency of the call that produced candidate
	candidate string
	backoff   backoff.BackOff

	// set on every rejection
	providerFailed bool
	rejected       string // candidate text that was rejected, if any
	feedback       string
}

// Run executes the loop for in. It always returns a result; failures are
// reported through Result.Reason.
func (l *Loop) Run(ctx context.Context, in DiffInput) Result {
	r := &run{in: in, state: StateStart}
	for !r.state.terminal() {
		r.state = l.step(ctx, r)
	}

	r.res.State = r.state
	r.res.LatencyMs = r.latency.Milliseconds()

	l.log.Debug().
		Str("provider", l.cfg.Provider).
		Str("model", l.cfg.Model).
		Str("diff", in.ID).
		Bool("success", r.res.Success).
		Str("reason", r.res.Reason).
		Int("retries", r.res.Retries).
		Int64("latency_ms", r.res.LatencyMs).
		Msg("generation finished")

	if l.observer != nil {
		l.observer.ObserveRun(l.Labels(), r.res)
	}
	return r.res
}

func (l *Loop) step(ctx context.Context, r *run) State {
	switch r.state {
	case StateStart:
		if l.backoff != nil {
			r.backoff = l.backoff()
			r.backoff.Reset()
		}
		return StateGenerating
	case StateGenerating:
		return l.generate(ctx, r)
	case StateValidating:
		return l.validate(r)
	case StateRejected:
		return l.retry(ctx, r)
	}
	return r.state
}

func (l *Loop) generate(ctx context.Context, r *run) State {
	if err := ctx.Err(); err != nil {
		return l.timeout(r, err)
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return l.timeout(r, err)
		}
	}

	opts := l.cfg.Options
	opts.Feedback = r.feedback
	p := l.cfg.Strategy.Build(r.in.Diff, r.in.Status, opts)

	req := ai.Request{
		Model:       l.cfg.Model,
		System:      p.System,
		Prompt:      p.User,
		Temperature: l.cfg.Temperature,
		MaxTokens:   l.cfg.MaxTokens,
		JSON:        l.cfg.Strategy.JSON(),
	}

	start := l.now()
	raw, err := l.provider.Generate(ctx, req)
	elapsed := l.now().Sub(start)
	r.latency += elapsed

	if err != nil {
		if ctx.Err() != nil {
			l.attempt(r, "", ReasonTimeout, err.Error(), elapsed)
			return l.timeout(r, ctx.Err())
		}
		pe := ai.Classify(l.cfg.Provider, err)
		r.providerFailed = true
		r.rejected = ""
		l.attempt(r, "", string(pe.Kind), pe.Error(), elapsed)
		return StateRejected
	}

	msg, err := l.cfg.Strategy.Decode(raw)
	if err != nil {
		r.providerFailed = false
		r.rejected = raw
		l.attempt(r, raw, ReasonInvalidSchema, err.Error(), elapsed)
		return StateRejected
	}

	r.candidate = msg
	r.pending = elapsed
	return StateValidating
}

func (l *Loop) validate(r *run) State {
	v := l.validator.Validate(r.candidate)
	if v.Accepted {
		r.res.Success = true
		r.res.Message = v.Message
		r.res.Verdict = v
		r.res.Reason = ""
		r.res.Detail = ""
		l.attempt(r, v.Message, "", "", r.pending)
		return StateAccepted
	}

	rule := string(v.Rule)
	if !contains(r.res.Violations, rule) {
		r.res.Violations = append(r.res.Violations, rule)
	}
	r.providerFailed = false
	r.rejected = r.candidate
	l.attempt(r, r.candidate, rule, v.Detail, r.pending)
	return StateRejected
}

func (l *Loop) retry(ctx context.Context, r *run) State {
	if r.res.Retries >= l.cfg.RetryBound {
		return StateExhausted
	}

	if r.providerFailed && r.backoff != nil {
		d := r.backoff.NextBackOff()
		if d == backoff.Stop {
			return StateExhausted
		}
		if err := l.sleep(ctx, d); err != nil {
			return l.timeout(r, err)
		}
	}

	r.res.Retries++
	r.feedback = l.feedbackFor(r)
	return StateGenerating
}

func (l *Loop) feedbackFor(r *run) string {
	switch l.cfg.Feedback {
	case config.FeedbackNever:
		return ""
	case config.FeedbackValidation:
		if r.providerFailed {
			return ""
		}
	}

	if r.providerFailed {
		return fmt.Sprintf("The previous request failed (%s). Try again.", r.res.Reason)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The previous message was rejected: %s (%s).\n", r.res.Reason, r.res.Detail)
	if s := strings.TrimSpace(r.rejected); s != "" {
		b.WriteString("Previous message:\n" + s + "\n")
	}
	b.WriteString("Write a new message that fixes this.")
	return b.String()
}

func (l *Loop) timeout(r *run, err error) State {
	r.res.Success = false
	r.res.Reason = ReasonTimeout
	r.res.Detail = err.Error()
	return StateExhausted
}

func (l *Loop) attempt(r *run, candidate, reason, detail string, latency time.Duration) {
	a := Attempt{
		N:         len(r.res.Attempts) + 1,
		Candidate: candidate,
		Reason:    reason,
		Detail:    detail,
		LatencyMs: latency.Milliseconds(),
	}
	r.res.Attempts = append(r.res.Attempts, a)
	if reason != "" {
		r.res.Reason = reason
		r.res.Detail = detail
	}

	outcome := reason
	if outcome == "" {
		outcome = "accepted"
	}
	l.log.Debug().
		Str("provider", l.cfg.Provider).
		Str("model", l.cfg.Model).
		Int("attempt", a.N).
		Str("outcome", outcome).
		Msg("attempt")

	if l.observer != nil {
		l.observer.ObserveAttempt(l.Labels(), outcome, latency)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
