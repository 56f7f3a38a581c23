package labelstate

import (
	"context"

	"github.com/arloliu/tandem/types"
)

// Lock is an in-process bounded mutual-exclusion lock.
//
// It guards cluster resume when no cross-process mechanism is configured:
// goroutines within the process are serialized, and a caller whose context
// expires before the lock frees fails fast with ErrResumeLockBusy.
type Lock struct {
	sem chan struct{}
}

// NewLock creates an unheld lock.
func NewLock() *Lock {
	return &Lock{sem: make(chan struct{}, 1)}
}

// Acquire takes the lock, waiting at most until the context deadline.
//
// Returns:
//   - func(): Release function, to be called exactly once
//   - error: types.ErrResumeLockBusy if the wait budget expires first
func (l *Lock) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, nil
	case <-ctx.Done():
		return nil, types.ErrResumeLockBusy
	}
}
