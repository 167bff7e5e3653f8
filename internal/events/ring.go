package events

import "sync"

// ring keeps the most recent events for replay to new listeners.
// When full, the oldest event is overwritten.
type ring struct {
	mu   sync.RWMutex
	buf  []Event
	head int // next write position
	full bool
}

func newRing(size int) *ring {
	if size <= 0 {
		size = 64
	}
	return &ring{buf: make([]Event, size)}
}

func (r *ring) add(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.head] = ev
	r.head = (r.head + 1) % len(r.buf)
	if r.head == 0 {
		r.full = true
	}
}

// snapshot returns the buffered events oldest first.
func (r *ring) snapshot() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.full {
		out := make([]Event, r.head)
		copy(out, r.buf[:r.head])
		return out
	}
	out := make([]Event, 0, len(r.buf))
	out = append(out, r.buf[r.head:]...)
	return append(out, r.buf[:r.head]...)
}
