package eventbus

import (
	"sync"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

// DefaultHistorySize bounds Mailbox.History when no size is given.
const DefaultHistorySize = 256

// Mailbox is a single-slot, latest-wins channel for one-shot UI events.
// Offer never blocks; a value not yet taken is overwritten by the next one.
// Every offered value is also appended to a bounded history so observers that
// attach late (or tests) can inspect what was emitted.
type Mailbox[T any] struct {
	mu      sync.Mutex
	slot    T
	full    bool
	notify  chan struct{}
	history []T
	limit   int
}

// NewMailbox creates a mailbox keeping at most historySize past values.
func NewMailbox[T any](historySize int) *Mailbox[T] {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Mailbox[T]{
		notify: make(chan struct{}, 1),
		limit:  historySize,
	}
}

// Offer stores v as the latest value.
func (m *Mailbox[T]) Offer(v T) {
	m.mu.Lock()
	m.slot = v
	m.full = true
	m.history = append(m.history, v)
	if over := len(m.history) - m.limit; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Take returns and clears the latest value.
func (m *Mailbox[T]) Take() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero T
	if !m.full {
		return zero, false
	}
	v := m.slot
	m.slot = zero
	m.full = false
	return v, true
}

// Peek returns the latest value without clearing it.
func (m *Mailbox[T]) Peek() (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slot, m.full
}

// Ready is signalled after an Offer. Receivers should Take after waking;
// several offers may collapse into one signal.
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.notify
}

// History returns a copy of the retained values, oldest first.
func (m *Mailbox[T]) History() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]T, len(m.history))
	copy(out, m.history)
	return out
}

var (
	_ ports.Mailbox[domain.Event] = (*Mailbox[domain.Event])(nil)
	_ ports.Mailbox[string]       = (*Mailbox[string])(nil)
)
