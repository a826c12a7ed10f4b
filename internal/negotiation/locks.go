package negotiation

import "sync"

// leaseLocks serializes negotiation turns per lease. Two concurrent replies
// for the same lease must not both pass the floor check against a stale
// proposed rent; replies for different leases proceed in parallel.
type leaseLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLeaseLocks() *leaseLocks {
	return &leaseLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *leaseLocks) lock(leaseID string) func() {
	l.mu.Lock()
	m, ok := l.locks[leaseID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[leaseID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
