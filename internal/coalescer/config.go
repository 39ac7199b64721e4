package coalescer

import "time"

// Backpressure selects what happens when a submitter finds the pending
// queue saturated (length >= MaxBatch).
type Backpressure int

const (
	// Block makes the submitter wait on the condition variable until
	// capacity frees up, then enqueue normally.
	Block Backpressure = iota
	// Drop fails the submission immediately with QueueFullError.
	Drop
	// Passthrough bypasses the queue and invokes the executor
	// synchronously with a singleton batch.
	Passthrough
)

func (b Backpressure) String() string {
	switch b {
	case Block:
		return "block"
	case Drop:
		return "drop"
	case Passthrough:
		return "passthrough"
	default:
		return "unknown"
	}
}

// ParseBackpressure parses the external string form used by Config,
// matching the three policies spec.md §6 names.
func ParseBackpressure(s string) (Backpressure, error) {
	switch s {
	case "block":
		return Block, nil
	case "drop":
		return Drop, nil
	case "passthrough":
		return Passthrough, nil
	default:
		return 0, errInvalidConfig("backpressure", "must be one of: block, drop, passthrough")
	}
}

// Config configures a Coalescer. It is immutable after New returns.
type Config struct {
	// MaxBatch is the maximum number of items per dispatched batch, and
	// the pending queue's capacity. Must be >= 1.
	MaxBatch int
	// MaxWait bounds how long a non-full batch waits for more items
	// before a deadline-triggered flush. Must be >= 0.
	MaxWait time.Duration
	// Backpressure selects the saturation policy.
	Backpressure Backpressure
	// Limiter optionally throttles the Passthrough backpressure path.
	// Nil means unthrottled (spec.md default behavior).
	Limiter *PassthroughLimiter
}

func (c Config) validate() error {
	if c.MaxBatch < 1 {
		return errInvalidConfig("max_batch", "must be a positive integer")
	}
	if c.MaxWait < 0 {
		return errInvalidConfig("max_wait_ms", "must be non-negative")
	}
	switch c.Backpressure {
	case Block, Drop, Passthrough:
	default:
		return errInvalidConfig("backpressure", "must be one of: block, drop, passthrough")
	}
	return nil
}
