package cart

import (
	"sync"

	"buildmart/internal/domain"
)

// remoteView is the client-side read model of a customer cart. It only
// changes when the subscription delivers a snapshot; writes never patch it.
type remoteView struct {
	mu    sync.RWMutex
	gen   uint64
	lines []domain.CartLine
	ready bool
	err   error
}

// reset drops the current snapshot and returns the generation that
// callbacks of the next subscription must carry.
func (v *remoteView) reset() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.lines = nil
	v.ready = false
	v.err = nil
	return v.gen
}

// replace installs a full snapshot. Deliveries from released subscriptions
// are ignored.
func (v *remoteView) replace(gen uint64, lines []domain.CartLine) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	v.lines = cloneLines(lines)
	v.ready = true
	v.err = nil
}

func (v *remoteView) fail(gen uint64, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	v.lines = nil
	v.ready = false
	v.err = err
}

func (v *remoteView) snapshot() ([]domain.CartLine, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cloneLines(v.lines), v.ready, v.err
}

func (v *remoteView) find(identityKey string) (domain.CartLine, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, line := range v.lines {
		if line.IdentityKey == identityKey {
			return line, true
		}
	}
	return domain.CartLine{}, false
}
