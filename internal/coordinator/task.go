package coordinator

import (
	"context"

	"projectpilot/internal/domain"
)

// Task is the handle of one message's background phase. Production callers
// discard it; tests await it. The background contract stands either way:
// failures are logged and never reach the already-returned reply.
type Task struct {
	done    chan struct{}
	updates domain.Updates
	err     error
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// finish records the outcome and releases waiters. Called exactly once.
func (t *Task) finish(updates domain.Updates, err error) {
	t.updates = updates
	t.err = err
	close(t.done)
}

// Done is closed when the background phase has fully settled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the background phase settles or ctx is cancelled, and
// returns what was reconciled.
func (t *Task) Wait(ctx context.Context) (domain.Updates, error) {
	select {
	case <-t.done:
		return t.updates, t.err
	case <-ctx.Done():
		return domain.Updates{}, ctx.Err()
	}
}
