package tx

import (
	"context"
	"sync"
)

type serialKey struct{}

// SerialRunner serializes every unit of work behind one mutex. It backs the
// in-memory deployment, where no database row lock protects the
// read-modify-write window of a merge: the store mutex only covers single
// calls, so without this runner two concurrent merges could both load a card
// before either writes it back. Nested calls join the outer unit, mirroring
// SQLRunner.
type SerialRunner struct {
	mu sync.Mutex
}

// NewSerial constructs a SerialRunner.
func NewSerial() *SerialRunner {
	return &SerialRunner{}
}

func (r *SerialRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, ok := ctx.Value(serialKey{}).(bool); ok && held {
		return fn(ctx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(context.WithValue(ctx, serialKey{}, true))
}
