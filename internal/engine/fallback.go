package engine

import (
	"context"
)

// RunWithFallback runs primary and, when it ends without an accepted
// message, runs fallback against the same diff. A nil fallback, or a
// context that is already done, returns the primary result.
func RunWithFallback(ctx context.Context, in DiffInput, primary, fallback *Loop) Result {
	res := primary.Run(ctx, in)
	if res.Success || fallback == nil || ctx.Err() != nil {
		return res
	}

	primary.log.Info().
		Str("provider", primary.cfg.Provider).
		Str("reason", res.Reason).
		Str("fallback", fallback.cfg.Provider).
		Msg("primary target failed, trying fallback")

	fb := fallback.Run(ctx, in)
	fb.FallbackUsed = true
	fb.PrimaryReason = res.Reason
	return fb
}
