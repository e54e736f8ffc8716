package reconcile

import (
	"errors"
	"sync"
)

// ErrRunInProgress is returned when a run is requested while another holds the guard.
var ErrRunInProgress = errors.New("sync run already in progress")

// Guard admits one run at a time within a process. Overlapping triggers are
// rejected rather than queued.
type Guard struct {
	mu sync.Mutex
}

// TryAcquire returns a release func, or ErrRunInProgress.
func (g *Guard) TryAcquire() (func(), error) {
	if !g.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	return g.mu.Unlock, nil
}
