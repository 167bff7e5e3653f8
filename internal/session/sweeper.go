package session

import (
	"context"
	"time"

	"github.com/ashureev/honeypot/internal/metrics"
)

// Sweep removes sessions idle for longer than the store TTL and returns how
// many were removed. Sessions in use are left for the next sweep.
func (s *Store) Sweep(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	// Back of the list is least recently used; stop at the first fresh entry.
	for el := s.lru.Back(); el != nil; {
		prev := el.Prev()
		e := el.Value.(*entry)
		if !e.lastTouch.Before(cutoff) {
			break
		}
		if s.tryEvictLocked(el) {
			removed++
		}
		el = prev
	}
	return removed
}

// RunSweeper sweeps expired sessions every interval until ctx is canceled.
// It blocks; run it in its own goroutine.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) error {
	if s.ttl <= 0 || interval <= 0 {
		s.logger.Info("Session sweeper disabled", "ttl", s.ttl, "interval", interval)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("Session sweeper started", "interval", interval, "ttl", s.ttl)

	for {
		select {
		case <-ticker.C:
			removed := s.Sweep(s.now())
			metrics.SetSessions(s.Len())
			if removed > 0 {
				metrics.RecordEvictions(removed)
				s.logger.Info("Session sweeper removed idle sessions",
					"removed", removed,
					"remaining", s.Len())
			}
		case <-ctx.Done():
			s.logger.Info("Session sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}
