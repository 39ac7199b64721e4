package coalescer

import "golang.org/x/time/rate"

// PassthroughLimiter optionally throttles the PASSTHROUGH backpressure
// path (spec.md §4.1, SUPPLEMENTED FEATURES §1 in SPEC_FULL.md). It never
// turns PASSTHROUGH into a blocking path: a call that can't acquire a
// token immediately is still executed and is logged at debug level as
// throttled. Throttled calls are not counted in any metric.
//
// Grounded on internal/ratelimit/burst.go's token-bucket wrapper around
// golang.org/x/time/rate.
type PassthroughLimiter struct {
	limiter *rate.Limiter
}

// NewPassthroughLimiter returns a limiter allowing ratePerSecond sustained
// passthrough calls with the given burst. A nil *PassthroughLimiter (the
// Config default) disables throttling entirely.
func NewPassthroughLimiter(ratePerSecond float64, burst int) *PassthroughLimiter {
	return &PassthroughLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst)}
}

// allow reports whether a token was available without waiting.
func (pl *PassthroughLimiter) allow() bool {
	if pl == nil {
		return true
	}
	return pl.limiter.Allow()
}
