package openseastream

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// RegistrationErrorKind classifies why a channel join failed.
type RegistrationErrorKind int

const (
	// ErrKindRejected: the transport refused the join (topic at capacity,
	// topic rejected, bad token).
	ErrKindRejected RegistrationErrorKind = iota

	// ErrKindConfigMismatch: the topic is already joined on this
	// connection with a different configuration.
	ErrKindConfigMismatch

	// ErrKindNotConnected: the socket has no live connection.
	ErrKindNotConnected

	// ErrKindTransport: the join round-trip itself failed (push error,
	// timeout, connection closed mid-join).
	ErrKindTransport
)

func (k RegistrationErrorKind) String() string {
	switch k {
	case ErrKindRejected:
		return "rejected"
	case ErrKindConfigMismatch:
		return "config mismatch"
	case ErrKindNotConnected:
		return "not connected"
	default:
		return "transport"
	}
}

// RegistrationError reports a failed channel join. It is returned to the
// immediate caller and never retried by this layer.
type RegistrationError struct {
	Kind   RegistrationErrorKind
	Topic  string
	Reason string
	cause  error
}

func (e *RegistrationError) Error() string {
	msg := fmt.Sprintf("joining %q failed (%s)", e.Topic, e.Kind)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

func (e *RegistrationError) Unwrap() error {
	return e.cause
}

// ChannelConfig carries the channel setup options the transport engine
// recognizes. The subscription surface passes it through unmodified.
type ChannelConfig struct {
	// RejoinOnReconnect re-registers the channel after the socket
	// reconnects. Enabled by default; a channel with it disabled is
	// closed on reconnect.
	RejoinOnReconnect bool

	// BufferSize bounds each receiver's view of the message stream. A
	// receiver further behind than this observes a LagError. Zero means
	// the socket default.
	BufferSize int

	// Params is sent as the join payload.
	Params map[string]any

	// JoinTimeout bounds the join round-trip. Zero means the socket
	// default.
	JoinTimeout time.Duration
}

func defaultChannelConfig() ChannelConfig {
	return ChannelConfig{RejoinOnReconnect: true}
}

func (c ChannelConfig) equal(other ChannelConfig) bool {
	return c.RejoinOnReconnect == other.RejoinOnReconnect &&
		c.BufferSize == other.BufferSize &&
		c.JoinTimeout == other.JoinTimeout &&
		reflect.DeepEqual(c.Params, other.Params)
}

// DecodeFunc converts one raw channel message (event discriminator plus
// untyped JSON body) into a typed event. The engine treats it as opaque.
type DecodeFunc func(event string, body []byte) (StreamEvent, error)

// Channel is the join handle for one topic. It exclusively owns the right
// to leave the channel; receivers only consume.
type Channel struct {
	socket    *Socket
	topic     string
	config    ChannelConfig
	decode    DecodeFunc
	broadcast *broadcaster

	mu      sync.Mutex
	joinRef string
	left    bool
}

func newChannel(s *Socket, topic string, config ChannelConfig, decode DecodeFunc) *Channel {
	size := config.BufferSize
	if size <= 0 {
		size = s.channelBuffer
	}
	return &Channel{
		socket:    s,
		topic:     topic,
		config:    config,
		decode:    decode,
		broadcast: newBroadcaster(size),
	}
}

// Topic returns the transport-level topic string this channel is joined
// to.
func (c *Channel) Topic() string {
	return c.topic
}

// Subscribe attaches one more independent receiver to this channel. It
// observes messages delivered after this call.
func (c *Channel) Subscribe() *Receiver {
	return c.broadcast.subscribe()
}

// Leave unsubscribes from the topic. This is the only sanctioned way to
// stop the subscription; every receiver observes ErrChannelClosed once its
// buffer drains.
func (c *Channel) Leave(ctx context.Context) error {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.left = true
	c.mu.Unlock()
	return c.socket.leave(ctx, c)
}

func (c *Channel) joinPayload() json.RawMessage {
	if len(c.config.Params) == 0 {
		return emptyObject
	}
	data, err := json.Marshal(c.config.Params)
	if err != nil {
		return emptyObject
	}
	return data
}

func (c *Channel) joinTimeout() time.Duration {
	if c.config.JoinTimeout > 0 {
		return c.config.JoinTimeout
	}
	return c.socket.joinTimeout
}

// dispatch decodes one raw frame delivered on this channel's topic and
// fans the outcome out to every receiver. Decode failures ride the same
// path so each consumer sees them per-message.
func (c *Channel) dispatch(event string, body []byte) {
	ev, err := c.decode(event, body)
	c.broadcast.publish(broadcastItem{event: ev, err: err})
}
