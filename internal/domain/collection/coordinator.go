package collection

import (
	"context"
	"sync/atomic"
)

// Coordinator guards the single outbound submission of a dialog session.
// A busy flag rejects concurrent submits and a generation counter lets a
// closed session discard responses that arrive after teardown.
type Coordinator struct {
	busy       atomic.Bool
	generation atomic.Uint64
}

// Busy reports whether a submission is in flight.
func (c *Coordinator) Busy() bool {
	return c.busy.Load()
}

// Token returns the current session generation.
func (c *Coordinator) Token() uint64 {
	return c.generation.Load()
}

// IsCurrent reports whether token still matches the session generation.
func (c *Coordinator) IsCurrent(token uint64) bool {
	return c.generation.Load() == token
}

// Invalidate bumps the generation so any in-flight response becomes stale.
func (c *Coordinator) Invalidate() {
	c.generation.Add(1)
}

// Submit runs call unless another submission is already in flight, in which
// case it returns ErrSubmissionInProgress without calling it. When the
// generation moved past token while call was running, the outcome is
// discarded and ErrStaleResponse is returned.
func (c *Coordinator) Submit(ctx context.Context, token uint64, call func(ctx context.Context) error) error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrSubmissionInProgress
	}
	defer c.busy.Store(false)

	err := call(ctx)
	if !c.IsCurrent(token) {
		return ErrStaleResponse
	}
	return AsRemoteError(err)
}
