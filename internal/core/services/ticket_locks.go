package services

import (
	"sync"

	"github.com/google/uuid"
)

// TicketLocks provides per-ticket mutual exclusion for writers. A keyed
// mutex keeps unrelated tickets fully concurrent; a single global lock
// would serialize them unnecessarily.
type TicketLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*ticketLock
}

type ticketLock struct {
	mu   sync.Mutex
	refs int
}

func NewTicketLocks() *TicketLocks {
	return &TicketLocks{locks: make(map[uuid.UUID]*ticketLock)}
}

// Lock acquires the mutex for the given ticket and returns the matching
// unlock function. Entries are removed once the last holder releases.
func (l *TicketLocks) Lock(id uuid.UUID) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &ticketLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
