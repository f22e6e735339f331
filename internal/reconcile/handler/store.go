package handler

import (
	"sync"
	"time"

	"inventory-recon/internal/reconcile/service"
)

// entry serialises access to one session; Session itself is not safe for
// concurrent use.
type entry struct {
	mu      sync.Mutex
	sess    *service.Session
	touched time.Time
}

// Store держит сессии в памяти процесса.
type Store struct {
	mu    sync.RWMutex
	items map[string]*entry
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{items: make(map[string]*entry), now: time.Now}
}

func (st *Store) Put(s *service.Session) {
	st.mu.Lock()
	st.items[s.ID] = &entry{sess: s, touched: st.now()}
	st.mu.Unlock()
}

// With runs fn with the session locked. It reports false for an unknown id.
func (st *Store) With(id string, fn func(*service.Session)) bool {
	st.mu.RLock()
	e, ok := st.items[id]
	st.mu.RUnlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = st.now()
	fn(e.sess)
	return true
}

func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.items[id]; !ok {
		return false
	}
	delete(st.items, id)
	return true
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.items)
}

// Sweep drops sessions idle for longer than ttl and returns how many went.
func (st *Store) Sweep(ttl time.Duration) int {
	cutoff := st.now().Add(-ttl)
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, e := range st.items {
		e.mu.Lock()
		idle := e.touched.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(st.items, id)
			n++
		}
	}
	return n
}
