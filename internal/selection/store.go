package selection

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/meetfinder/internal/availability"
	"github.com/teemow/meetfinder/internal/logging"
)

// DefaultSessionTTL is how long an idle selection session is kept.
const DefaultSessionTTL = 2 * time.Hour

// ErrSessionNotFound is returned for unknown, expired or foreign session ids.
var ErrSessionNotFound = errors.New("selection session not found")

type entry struct {
	owner      string
	selector   *Selector
	lastAccess time.Time
}

// Store keeps one Selector per interactive session. Sessions are scoped to
// the account that created them and expire after a period of inactivity.
type Store struct {
	entries       map[string]*entry
	mu            sync.Mutex
	ttl           time.Duration
	now           func() time.Time
	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
	logger        logging.Logger

	// onRemove runs with mu held; it must not call back into the store.
	onRemove func(n int)
}

// NewStore creates a store with the given idle TTL and starts its cleanup loop.
func NewStore(ttl time.Duration, logger logging.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = logging.NewSlogAdapter(nil)
	}

	interval := ttl / 4
	if interval > 10*time.Minute {
		interval = 10 * time.Minute
	}

	s := &Store{
		entries:       make(map[string]*entry),
		ttl:           ttl,
		now:           time.Now,
		cleanupTicker: time.NewTicker(interval),
		cleanupDone:   make(chan struct{}),
		logger:        logger,
	}
	go s.cleanupLoop()
	return s
}

// OnRemove registers fn to be told how many sessions were discarded each
// time sessions are deleted or expire.
func (s *Store) OnRemove(fn func(n int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = fn
}

func (s *Store) removed(n int) {
	if n > 0 && s.onRemove != nil {
		s.onRemove(n)
	}
}

// Create registers a new selector over result for owner and returns its id.
func (s *Store) Create(owner string, result *availability.Result) (string, *Selector) {
	id := uuid.NewString()
	sel := New(result)

	s.mu.Lock()
	s.entries[id] = &entry{owner: owner, selector: sel, lastAccess: s.now()}
	s.mu.Unlock()

	s.logger.Debug("selection session created",
		logging.Selection(id),
		logging.Account(owner))
	return id, sel
}

// Get returns the selector for id if it exists, has not expired and belongs
// to owner. A successful lookup refreshes the session's TTL.
func (s *Store) Get(owner, id string) (*Selector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.owner != owner {
		return nil, ErrSessionNotFound
	}
	if s.now().Sub(e.lastAccess) > s.ttl {
		delete(s.entries, id)
		s.removed(1)
		return nil, ErrSessionNotFound
	}
	e.lastAccess = s.now()
	return e.selector, nil
}

// Delete discards the session. It reports whether a session owned by owner
// was removed.
func (s *Store) Delete(owner, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.owner != owner {
		return false
	}
	delete(s.entries, id)
	s.removed(1)
	return true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes expired sessions and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired := 0
	for id, e := range s.entries {
		if now.Sub(e.lastAccess) > s.ttl {
			delete(s.entries, id)
			expired++
		}
	}
	s.removed(expired)
	return expired
}

func (s *Store) cleanupLoop() {
	for {
		select {
		case <-s.cleanupTicker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Info("Cleaned up expired selection sessions", "count", n)
			}
		case <-s.cleanupDone:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		s.cleanupTicker.Stop()
		close(s.cleanupDone)
	})
}
