package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/honeypot/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestGetOrCreateStartsZeroed(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{Now: clock.Now})

	st := s.GetOrCreate("s1")

	assert.Equal(t, "s1", st.SessionID)
	assert.Equal(t, clock.Now(), st.CreatedAt)
	assert.Zero(t, st.MessageCount)
	assert.False(t, st.Flagged)
	assert.False(t, st.ReportSent)
	assert.True(t, st.Intelligence.IsEmpty())
	assert.Equal(t, 1, s.Len())
}

func TestOperationsOnUnknownKeyFail(t *testing.T) {
	s := NewStore(Options{})

	assert.ErrorIs(t, s.RecordMessage("nope"), ErrUnknownSession)
	assert.ErrorIs(t, s.MergeIntelligence("nope", domain.IntelligenceRecord{}), ErrUnknownSession)
	assert.ErrorIs(t, s.UpgradeFlag("nope", 0.5, nil), ErrUnknownSession)
	assert.ErrorIs(t, s.AddNotes("nope", "x"), ErrUnknownSession)
	_, err := s.MarkReportSent("nope")
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.Zero(t, s.Len())
}

func TestAccumulateAcrossTurns(t *testing.T) {
	s := NewStore(Options{})
	s.GetOrCreate("s1")

	require.NoError(t, s.RecordMessage("s1"))
	require.NoError(t, s.UpgradeFlag("s1", 0.7, []string{"Urgency tactics: urgent"}))
	require.NoError(t, s.MergeIntelligence("s1", domain.IntelligenceRecord{
		UPIIDs: domain.NewStringSet("a@ybl"),
	}))

	require.NoError(t, s.RecordMessage("s1"))
	require.NoError(t, s.UpgradeFlag("s1", 0.4, []string{"Urgency tactics: urgent", "Contains suspicious links"}))
	require.NoError(t, s.MergeIntelligence("s1", domain.IntelligenceRecord{
		UPIIDs: domain.NewStringSet("b@ybl", "a@ybl"),
	}))

	st, ok := s.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 2, st.MessageCount)
	assert.True(t, st.Flagged)
	assert.Equal(t, 0.7, st.Confidence)
	assert.Equal(t, []string{"a@ybl", "b@ybl"}, st.Intelligence.UPIIDs.Values())
	assert.Equal(t, []string{"Urgency tactics: urgent", "Contains suspicious links"}, st.Notes.Values())
}

func TestMarkReportSentIsOneWay(t *testing.T) {
	s := NewStore(Options{})
	s.GetOrCreate("s1")

	first, err := s.MarkReportSent("s1")
	require.NoError(t, err)
	second, err := s.MarkReportSent("s1")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
	st, _ := s.Get("s1")
	assert.True(t, st.ReportSent)
}

func TestUpdateLatchesOnceUnderContention(t *testing.T) {
	s := NewStore(Options{})
	const workers = 64

	var fired atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = s.Update("shared", func(st *domain.SessionState) error {
				st.RecordMessage(time.Now())
				if st.MessageCount >= 3 && st.MarkReportSent() {
					fired.Add(1)
				}
				return nil
			})
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), fired.Load())
	st, ok := s.Get("shared")
	require.True(t, ok)
	assert.Equal(t, workers, st.MessageCount)
}

func TestUpdatePropagatesError(t *testing.T) {
	s := NewStore(Options{})
	boom := errors.New("boom")

	err := s.Update("s1", func(*domain.SessionState) error { return boom })

	assert.ErrorIs(t, err, boom)
}

func TestSnapshotIsDetached(t *testing.T) {
	s := NewStore(Options{})
	snap := s.GetOrCreate("s1")
	snap.Intelligence.PhoneNumbers.Add("9876543210")

	st, _ := s.Get("s1")
	assert.Zero(t, st.Intelligence.PhoneNumbers.Len())
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{MaxSessions: 2, Now: clock.Now})

	s.GetOrCreate("a")
	clock.Advance(time.Second)
	s.GetOrCreate("b")
	clock.Advance(time.Second)
	s.GetOrCreate("a") // a is now most recent
	clock.Advance(time.Second)
	s.GetOrCreate("c")

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("b")
	assert.False(t, ok)
	_, ok = s.Get("a")
	assert.True(t, ok)
}

func TestCapacitySkipsBusySessions(t *testing.T) {
	s := NewStore(Options{MaxSessions: 1})

	inside := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Update("busy", func(*domain.SessionState) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	s.GetOrCreate("other")
	_, ok := s.Get("other")
	assert.True(t, ok)
	assert.Equal(t, 2, s.Len())

	close(release)
	<-done
	require.NoError(t, s.RecordMessage("busy"))
}

func TestSweepRemovesIdleSessions(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{TTL: time.Minute, Now: clock.Now})

	s.GetOrCreate("old")
	clock.Advance(45 * time.Second)
	s.GetOrCreate("fresh")
	clock.Advance(30 * time.Second)

	removed := s.Sweep(clock.Now())

	assert.Equal(t, 1, removed)
	_, ok := s.Get("old")
	assert.False(t, ok)
	_, ok = s.Get("fresh")
	assert.True(t, ok)
	assert.ErrorIs(t, s.RecordMessage("old"), ErrUnknownSession)
}

func TestSweepDisabledWithoutTTL(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{Now: clock.Now})
	s.GetOrCreate("a")
	clock.Advance(24 * time.Hour)

	assert.Zero(t, s.Sweep(clock.Now()))
	assert.Equal(t, 1, s.Len())
}

func TestClear(t *testing.T) {
	s := NewStore(Options{})
	s.GetOrCreate("a")
	s.GetOrCreate("b")

	s.Clear()

	assert.Zero(t, s.Len())
	assert.ErrorIs(t, s.RecordMessage("a"), ErrUnknownSession)
}

func latch(t *testing.T, s *Store, key string) {
	t.Helper()
	s.GetOrCreate(key)
	latched, err := s.MarkReportSent(key)
	require.NoError(t, err)
	require.True(t, latched)
}

func TestCapacityEvictionKeepsReportLatch(t *testing.T) {
	s := NewStore(Options{MaxSessions: 1})
	latch(t, s, "a")

	s.GetOrCreate("b")
	_, ok := s.Get("a")
	require.False(t, ok)
	assert.Equal(t, 1, s.ReportedKeys())

	st := s.GetOrCreate("a")
	assert.True(t, st.ReportSent)
	assert.Zero(t, st.MessageCount)
	latched, err := s.MarkReportSent("a")
	require.NoError(t, err)
	assert.False(t, latched)
}

func TestSweepKeepsReportLatch(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(Options{TTL: time.Minute, Now: clock.Now})
	latch(t, s, "a")
	s.GetOrCreate("quiet")

	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, s.Sweep(clock.Now()))
	assert.Equal(t, 1, s.ReportedKeys())

	assert.True(t, s.GetOrCreate("a").ReportSent)
	assert.False(t, s.GetOrCreate("quiet").ReportSent)
	assert.Zero(t, s.ReportedKeys())
}

func TestClearKeepsReportLatch(t *testing.T) {
	s := NewStore(Options{})
	latch(t, s, "a")

	s.Clear()

	assert.True(t, s.GetOrCreate("a").ReportSent)
}

func TestRememberedLatchesAreBounded(t *testing.T) {
	s := NewStore(Options{MaxSessions: 1, MaxReported: 2})
	for _, key := range []string{"a", "b", "c"} {
		latch(t, s, key)
	}
	s.GetOrCreate("d")

	assert.Equal(t, 2, s.ReportedKeys())
	assert.False(t, s.GetOrCreate("a").ReportSent)
	assert.True(t, s.GetOrCreate("c").ReportSent)
}
