package openseastream

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrChannelClosed reports that the channel, or the connection under
	// it, has shut down. Final for the receiver once its buffer drains.
	ErrChannelClosed = errors.New("channel closed")

	// ErrReceiverClosed reports a Recv on a receiver that was detached
	// with Close.
	ErrReceiverClosed = errors.New("receiver closed")
)

// LagError reports that a receiver fell further behind than its buffer
// holds. The receiver is fast-forwarded to the oldest retained message and
// stays usable; Missed counts the messages skipped over.
type LagError struct {
	Missed uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("receiver lagged, missed %d messages", e.Missed)
}

// broadcastItem is one slot of the ring: either a decoded event or the
// per-message decode outcome for it.
type broadcastItem struct {
	event StreamEvent
	err   error
}

// broadcaster fans one upstream message stream out to any number of
// receivers over a shared bounded ring. Publishing never blocks; a
// receiver that falls out of the retained window observes a LagError
// instead of stalling the others.
type broadcaster struct {
	mu     sync.Mutex
	buf    []broadcastItem
	size   uint64
	head   uint64 // sequence number of the next write
	closed bool
	notify chan struct{} // closed and replaced on every publish/close
}

func newBroadcaster(size int) *broadcaster {
	if size <= 0 {
		size = defaultChannelBuffer
	}
	return &broadcaster{
		buf:    make([]broadcastItem, size),
		size:   uint64(size),
		notify: make(chan struct{}),
	}
}

func (b *broadcaster) publish(item broadcastItem) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.buf[b.head%b.size] = item
	b.head++
	notify := b.notify
	b.notify = make(chan struct{})
	b.mu.Unlock()
	close(notify)
}

func (b *broadcaster) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	notify := b.notify
	b.mu.Unlock()
	close(notify)
}

// subscribe attaches a receiver that observes messages published after
// this call.
func (b *broadcaster) subscribe() *Receiver {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &Receiver{b: b, next: b.head}
}

// Receiver is one consumer-side view of a channel's message stream. Each
// receiver consumes independently; none owns the underlying join or
// connection.
type Receiver struct {
	b      *broadcaster
	next   uint64
	closed bool
}

// Recv blocks until the next message, context cancellation, or channel
// closure. Per-message decode outcomes (*UnknownEventError,
// *MalformedPayloadError) and *LagError are returned as non-fatal errors:
// the receiver stays usable. ErrChannelClosed is final.
func (r *Receiver) Recv(ctx context.Context) (StreamEvent, error) {
	for {
		r.b.mu.Lock()
		if r.closed {
			r.b.mu.Unlock()
			return StreamEvent{}, ErrReceiverClosed
		}
		var oldest uint64
		if r.b.head > r.b.size {
			oldest = r.b.head - r.b.size
		}
		if r.next < oldest {
			missed := oldest - r.next
			r.next = oldest
			r.b.mu.Unlock()
			return StreamEvent{}, &LagError{Missed: missed}
		}
		if r.next < r.b.head {
			item := r.b.buf[r.next%r.b.size]
			r.next++
			r.b.mu.Unlock()
			return item.event, item.err
		}
		if r.b.closed {
			r.b.mu.Unlock()
			return StreamEvent{}, ErrChannelClosed
		}
		notify := r.b.notify
		r.b.mu.Unlock()

		select {
		case <-ctx.Done():
			return StreamEvent{}, ctx.Err()
		case <-notify:
		}
	}
}

// Close detaches this receiver. The join, the channel and every other
// receiver are unaffected; use Channel.Leave to stop the subscription.
func (r *Receiver) Close() {
	r.b.mu.Lock()
	r.closed = true
	r.b.mu.Unlock()
}
