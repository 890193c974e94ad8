package core

import "sync"

// Mailbox is the bounded delivery queue between the Router fan-out and one
// user's outbound session loop. Enqueue never blocks: when the queue is full
// the new message is dropped for this recipient only.
type Mailbox struct {
	mu     sync.Mutex
	ch     chan *ChannelMessage
	closed bool
}

func newMailbox(capacity int) *Mailbox {
	if capacity <= 0 {
		capacity = 1
	}
	return &Mailbox{ch: make(chan *ChannelMessage, capacity)}
}

// Deliver enqueues a message. It returns ErrDeliveryFailed when the mailbox
// is closed or full; the caller logs and moves on to the next recipient.
func (m *Mailbox) Deliver(msg *ChannelMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrDeliveryFailed
	}
	select {
	case m.ch <- msg:
		return nil
	default:
		return ErrDeliveryFailed
	}
}

// Receive exposes the queue to the single consumer. The channel is closed
// when the owning user is deleted from the registry.
func (m *Mailbox) Receive() <-chan *ChannelMessage {
	return m.ch
}

// close shuts the queue down. Idempotent; only the registry calls it.
func (m *Mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.ch)
	}
}

// drain discards buffered messages left over from a previous session so a
// reconnecting user only sees deliveries made after attach.
func (m *Mailbox) drain() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		select {
		case <-m.ch:
		default:
			return
		}
	}
}
