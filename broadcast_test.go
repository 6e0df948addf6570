package openseastream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(nftID string) broadcastItem {
	return broadcastItem{event: StreamEvent{
		EventType: EventItemListed,
		Payload:   &ItemListed{Item: Item{NftID: nftID}},
	}}
}

func nftID(t *testing.T, ev StreamEvent) string {
	t.Helper()
	listing, ok := ev.Payload.(*ItemListed)
	require.True(t, ok)
	return listing.Item.NftID
}

func recvCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestBroadcastFanOutOrder(t *testing.T) {
	b := newBroadcaster(8)
	first := b.subscribe()
	second := b.subscribe()

	b.publish(testEvent("a"))
	b.publish(testEvent("b"))
	b.publish(testEvent("c"))

	for _, r := range []*Receiver{first, second} {
		for _, want := range []string{"a", "b", "c"} {
			ev, err := r.Recv(recvCtx(t))
			require.NoError(t, err)
			assert.Equal(t, want, nftID(t, ev))
		}
	}
}

func TestBroadcastSubscribeSeesOnlyLaterMessages(t *testing.T) {
	b := newBroadcaster(8)
	b.publish(testEvent("before"))

	r := b.subscribe()
	b.publish(testEvent("after"))

	ev, err := r.Recv(recvCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "after", nftID(t, ev))
}

func TestBroadcastLaggedReceiver(t *testing.T) {
	b := newBroadcaster(4)
	slow := b.subscribe()

	for i := 0; i < 10; i++ {
		b.publish(testEvent(string(rune('a' + i))))
	}

	// 10 published, 4 retained: the receiver missed 6 and is
	// fast-forwarded rather than crashed or unbounded.
	_, err := slow.Recv(recvCtx(t))
	var lag *LagError
	require.True(t, errors.As(err, &lag))
	assert.Equal(t, uint64(6), lag.Missed)

	for _, want := range []string{"g", "h", "i", "j"} {
		ev, err := slow.Recv(recvCtx(t))
		require.NoError(t, err)
		assert.Equal(t, want, nftID(t, ev))
	}
}

func TestBroadcastSlowReceiverDoesNotBlockOthers(t *testing.T) {
	b := newBroadcaster(2)
	_ = b.subscribe() // never reads
	fast := b.subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			b.publish(testEvent("x"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on an absent consumer")
	}

	// The fast receiver lags but stays usable.
	_, err := fast.Recv(recvCtx(t))
	var lag *LagError
	require.True(t, errors.As(err, &lag))
	ev, err := fast.Recv(recvCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "x", nftID(t, ev))
}

func TestBroadcastNonFatalErrorsRideTheStream(t *testing.T) {
	b := newBroadcaster(8)
	r := b.subscribe()

	b.publish(broadcastItem{err: &UnknownEventError{EventType: "item_teleported"}})
	b.publish(testEvent("valid"))

	_, err := r.Recv(recvCtx(t))
	var unknown *UnknownEventError
	require.True(t, errors.As(err, &unknown))

	ev, err := r.Recv(recvCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "valid", nftID(t, ev))
}

func TestBroadcastCloseDrainsThenCloses(t *testing.T) {
	b := newBroadcaster(8)
	r := b.subscribe()

	b.publish(testEvent("last"))
	b.close()

	ev, err := r.Recv(recvCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "last", nftID(t, ev))

	_, err = r.Recv(recvCtx(t))
	assert.ErrorIs(t, err, ErrChannelClosed)
}

func TestReceiverCloseDetachesOnlyItself(t *testing.T) {
	b := newBroadcaster(8)
	closed := b.subscribe()
	open := b.subscribe()

	closed.Close()
	b.publish(testEvent("still-flowing"))

	_, err := closed.Recv(recvCtx(t))
	assert.ErrorIs(t, err, ErrReceiverClosed)

	ev, err := open.Recv(recvCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "still-flowing", nftID(t, ev))
}

func TestRecvContextCancellation(t *testing.T) {
	b := newBroadcaster(8)
	r := b.subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := r.Recv(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecvWakesOnPublish(t *testing.T) {
	b := newBroadcaster(8)
	r := b.subscribe()

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.publish(testEvent("woken"))
	}()

	ev, err := r.Recv(recvCtx(t))
	require.NoError(t, err)
	assert.Equal(t, "woken", nftID(t, ev))
}
