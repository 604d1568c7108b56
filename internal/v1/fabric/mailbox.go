package fabric

import "sync"

// MailboxCapacity is the bounded queue depth of every mailbox.
const MailboxCapacity = 256

// mailbox is a bounded FIFO with at-most-one consumer. The producer side is
// owned by the Fabric; the consumer end is handed to exactly one session.
//
// The mutex exists because Go, unlike a dropped sender handle, needs an
// explicit close to signal the consumer - and a concurrent TrySend must never
// race that close.
type mailbox[T any] struct {
	mu     sync.Mutex
	ch     chan T
	closed bool
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{ch: make(chan T, MailboxCapacity)}
}

// TrySend enqueues without blocking. Returns false when the queue is full or
// the mailbox is already closed.
func (m *mailbox[T]) TrySend(msg T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	select {
	case m.ch <- msg:
		return true
	default:
		return false
	}
}

// Close releases the consumer: after any buffered messages drain, receives
// observe channel closure. Idempotent.
func (m *mailbox[T]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}
