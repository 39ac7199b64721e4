package coalescer

import (
	"time"

	"github.com/google/uuid"
)

// Executor transforms a batch of items into a same-length, same-order list
// of results. It may return an error, which is attributed to every item in
// the batch it was given.
type Executor func(items []interface{}) ([]interface{}, error)

// result is the single message delivered to a Pending's sink: exactly one
// of Value (on success) or Err (on failure) is meaningful.
type result struct {
	value interface{}
	err   error
}

// Pending is one in-flight submission, alive from enqueue until exactly one
// message is delivered to its sink.
type Pending struct {
	id         string
	enqueuedAt time.Time
	item       interface{}
	executor   Executor
	sink       chan result
}

func newPending(item interface{}, executor Executor) *Pending {
	return &Pending{
		id:         uuid.NewString(),
		enqueuedAt: time.Now(),
		item:       item,
		executor:   executor,
		sink:       make(chan result, 1),
	}
}

// deliverOK sends a success result. Safe to call at most once.
func (p *Pending) deliverOK(value interface{}) {
	p.sink <- result{value: value}
}

// deliverErr sends a failure result. Safe to call at most once.
func (p *Pending) deliverErr(err error) {
	p.sink <- result{err: err}
}
