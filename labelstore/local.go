package labelstore

import (
	"github.com/arloliu/tandem"
	"github.com/arloliu/tandem/internal/labelstate"
	"github.com/arloliu/tandem/types"
)

// Local is a process-local label store. Label state is visible to every
// goroutine in the process but not to sibling processes.
//
// It is the default store when no shared-state backend is configured.
type Local struct {
	*labelstate.State
}

var _ tandem.LabelStore = (*Local)(nil)

// NewLocal creates an empty process-local label store.
//
// Parameters:
//   - logger: Logger for invalid-label warnings
//
// Returns:
//   - *Local: The label store
func NewLocal(logger types.Logger) *Local {
	return &Local{State: labelstate.New(logger)}
}

// LocalLock is an in-process resume lock. Goroutines in the process are
// serialized, sibling processes are not.
type LocalLock struct {
	*labelstate.Lock
}

var _ tandem.ResumeLock = (*LocalLock)(nil)

// NewLocalLock creates an unheld in-process resume lock.
//
// Returns:
//   - *LocalLock: The lock
func NewLocalLock() *LocalLock {
	return &LocalLock{Lock: labelstate.NewLock()}
}
