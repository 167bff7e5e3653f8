// Package session holds per-conversation state in memory. All mutations for
// one session key are serialized by that key's lock; unrelated keys never
// contend beyond a short map lookup.
package session

import (
	"container/list"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/honeypot/internal/domain"
)

// ErrUnknownSession is returned by key-based operations on a key that was
// never created, or was evicted. Callers must GetOrCreate first.
var ErrUnknownSession = errors.New("unknown session")

// Options configures a Store.
type Options struct {
	// TTL is the idle time after which Sweep removes a session. Zero disables.
	TTL time.Duration
	// MaxSessions bounds the number of live sessions. Zero means unbounded.
	MaxSessions int
	// MaxReported bounds how many evicted keys keep their report latch.
	// Zero uses the default.
	MaxReported int
	Logger      *slog.Logger
	// Now overrides the clock in tests.
	Now func() time.Time
}

type entry struct {
	mu      sync.Mutex
	state   *domain.SessionState
	evicted bool

	// Guarded by Store.mu.
	key       string
	lastTouch time.Time
}

const defaultMaxReported = 100_000

// Store is a concurrency-safe keyed map of SessionState with LRU capacity
// eviction and idle expiry. Keys whose report already fired are remembered
// after eviction so a returning session starts with the latch set.
type Store struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List // front is most recently used

	reported    map[string]*list.Element
	reportedLRU *list.List // front is most recently evicted
	maxReported int

	ttl         time.Duration
	maxSessions int
	logger      *slog.Logger
	now         func() time.Time
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxReported <= 0 {
		opts.MaxReported = defaultMaxReported
	}
	return &Store{
		entries:     make(map[string]*list.Element),
		lru:         list.New(),
		reported:    make(map[string]*list.Element),
		reportedLRU: list.New(),
		maxReported: opts.MaxReported,
		ttl:         opts.TTL,
		maxSessions: opts.MaxSessions,
		logger:      opts.Logger,
		now:         opts.Now,
	}
}

// Update runs fn on the state for key while holding the key's lock, creating
// the session first if it does not exist. fn must not call back into the
// store. The state pointer must not be retained after fn returns.
func (s *Store) Update(key string, fn func(*domain.SessionState) error) error {
	for {
		e := s.acquire(key, true)
		e.mu.Lock()
		if e.evicted {
			// Lost a race with eviction between lookup and lock; retry on a fresh entry.
			e.mu.Unlock()
			continue
		}
		err := fn(e.state)
		e.mu.Unlock()
		return err
	}
}

// Modify is Update for an existing session. It returns ErrUnknownSession when
// key is absent.
func (s *Store) Modify(key string, fn func(*domain.SessionState) error) error {
	e := s.acquire(key, false)
	if e == nil {
		return ErrUnknownSession
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return ErrUnknownSession
	}
	return fn(e.state)
}

// GetOrCreate returns a snapshot of the session for key, creating it with
// zeroed fields if absent.
func (s *Store) GetOrCreate(key string) domain.SessionState {
	var snap domain.SessionState
	_ = s.Update(key, func(st *domain.SessionState) error {
		snap = st.Snapshot()
		return nil
	})
	return snap
}

// Get returns a snapshot of the session for key without creating it or
// refreshing its idle timer.
func (s *Store) Get(key string) (domain.SessionState, bool) {
	s.mu.Lock()
	el, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return domain.SessionState{}, false
	}
	e := el.Value.(*entry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return domain.SessionState{}, false
	}
	return e.state.Snapshot(), true
}

// RecordMessage increments the message counter of an existing session.
func (s *Store) RecordMessage(key string) error {
	now := s.now()
	return s.Modify(key, func(st *domain.SessionState) error {
		st.RecordMessage(now)
		return nil
	})
}

// MergeIntelligence unions rec into the session's accumulated record.
func (s *Store) MergeIntelligence(key string, rec domain.IntelligenceRecord) error {
	return s.Modify(key, func(st *domain.SessionState) error {
		st.MergeIntelligence(rec)
		return nil
	})
}

// UpgradeFlag sets the sticky flag, raises confidence and appends new reasons.
func (s *Store) UpgradeFlag(key string, confidence float64, reasons []string) error {
	return s.Modify(key, func(st *domain.SessionState) error {
		st.UpgradeFlag(confidence, reasons)
		return nil
	})
}

// AddNotes appends unseen notes to the session.
func (s *Store) AddNotes(key string, notes ...string) error {
	return s.Modify(key, func(st *domain.SessionState) error {
		st.AddNotes(notes...)
		return nil
	})
}

// MarkReportSent latches the report flag. The bool reports whether this call
// performed the transition.
func (s *Store) MarkReportSent(key string) (bool, error) {
	var latched bool
	err := s.Modify(key, func(st *domain.SessionState) error {
		latched = st.MarkReportSent()
		return nil
	})
	return latched, err
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear drops every session. Report latches survive like any other eviction.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for el := s.lru.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		e.mu.Lock()
		e.evicted = true
		if e.state.ReportSent {
			s.rememberReportedLocked(e.key)
		}
		e.mu.Unlock()
	}
	s.entries = make(map[string]*list.Element)
	s.lru.Init()
}

// acquire looks up key, optionally creating it, and marks it most recently
// used. It returns nil when the key is absent and create is false.
func (s *Store) acquire(key string, create bool) *entry {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.lastTouch = now
		s.lru.MoveToFront(el)
		return e
	}
	if !create {
		return nil
	}

	e := &entry{
		key:       key,
		state:     domain.NewSessionState(key, now),
		lastTouch: now,
	}
	if s.forgetReportedLocked(key) {
		e.state.ReportSent = true
	}
	s.entries[key] = s.lru.PushFront(e)
	s.enforceCapacityLocked(e)
	return e
}

// enforceCapacityLocked evicts least recently used idle sessions until the
// store is within capacity. Sessions whose lock is held are skipped. Caller
// holds s.mu.
func (s *Store) enforceCapacityLocked(keep *entry) {
	if s.maxSessions <= 0 {
		return
	}
	for el := s.lru.Back(); el != nil && len(s.entries) > s.maxSessions; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if e != keep && s.tryEvictLocked(el) {
			s.logger.Debug("Session evicted", "session_id", e.key, "reason", "capacity")
		}
		el = prev
	}
	if len(s.entries) > s.maxSessions {
		s.logger.Warn("Session store over capacity, all candidates busy",
			"sessions", len(s.entries),
			"max_sessions", s.maxSessions)
	}
}

// tryEvictLocked removes el unless its session lock is held. Caller holds s.mu.
func (s *Store) tryEvictLocked(el *list.Element) bool {
	e := el.Value.(*entry)
	if !e.mu.TryLock() {
		return false
	}
	e.evicted = true
	if e.state.ReportSent {
		s.rememberReportedLocked(e.key)
	}
	e.mu.Unlock()
	delete(s.entries, e.key)
	s.lru.Remove(el)
	return true
}

// ReportedKeys returns the number of evicted keys whose latch is remembered.
func (s *Store) ReportedKeys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reported)
}

// rememberReportedLocked records that key's report fired, dropping the oldest
// remembered key past maxReported. Caller holds s.mu.
func (s *Store) rememberReportedLocked(key string) {
	if el, ok := s.reported[key]; ok {
		s.reportedLRU.MoveToFront(el)
		return
	}
	s.reported[key] = s.reportedLRU.PushFront(key)
	for len(s.reported) > s.maxReported {
		oldest := s.reportedLRU.Back()
		delete(s.reported, oldest.Value.(string))
		s.reportedLRU.Remove(oldest)
	}
}

// forgetReportedLocked removes key from the remembered set and reports
// whether it was there. The live entry carries the latch from then on.
// Caller holds s.mu.
func (s *Store) forgetReportedLocked(key string) bool {
	el, ok := s.reported[key]
	if !ok {
		return false
	}
	delete(s.reported, key)
	s.reportedLRU.Remove(el)
	return true
}
