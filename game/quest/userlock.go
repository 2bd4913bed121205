package quest

import "sync"

// userLocks serializes quest mutations per user so the count-check-
// then-insert sequence in Create cannot race with itself. Entries are
// tiny and bounded by the number of users seen by this process, so no
// eviction is done.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

func (ul *userLocks) lock(userID int64) *sync.Mutex {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		ul.locks[userID] = m
	}
	ul.mu.Unlock()
	m.Lock()
	return m
}
