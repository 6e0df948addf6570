// Package openseastream receives updates from the OpenSea Stream API. It
// is a thin layer over a Phoenix-channel websocket engine: it resolves the
// network endpoint, encodes subscription targets into channel topics,
// decodes the tag-discriminated event payloads into typed values, and fans
// each message out to any number of independent receivers.
//
// Events that happen on Solana (and thus carry Solana addresses) are not
// supported.
//
// Subscriptions always carry a target's full event stream; there is no
// server-side per-event filter. Filter client-side by inspecting
// StreamEvent.EventType, or use Router.
package openseastream

import "context"

// Client is the entry point: it resolves the network endpoint, owns the
// socket, and exposes the subscription surface.
type Client struct {
	socket *Socket
}

// New builds a client for the given network. The API token is appended to
// the endpoint URL as a single `token` query parameter before connecting.
func New(network Network, token string, opts ...Option) *Client {
	config := defaultConfig()
	for _, opt := range opts {
		opt(config)
	}

	endpoint := config.Endpoint
	if endpoint == "" {
		endpoint = network.URL()
	}

	return &Client{socket: newSocket(withToken(endpoint, token), config)}
}

// Connect establishes the websocket connection.
func (c *Client) Connect() error {
	return c.socket.Connect()
}

// Disconnect closes the connection. Every receiver observes
// ErrChannelClosed once its buffer drains.
func (c *Client) Disconnect() error {
	return c.socket.Disconnect()
}

// Subscribe joins the full event stream of a subscription target and
// returns the join handle plus a receiver. The Channel exclusively owns
// the right to leave; the Receiver is one of potentially many independent
// consumers. Subscribing again to the same target yields a fresh receiver
// backed by the same underlying channel.
func (c *Client) Subscribe(ctx context.Context, target Collection) (*Channel, *Receiver, error) {
	return c.SubscribeWithConfig(ctx, target, defaultChannelConfig())
}

// SubscribeWithConfig is Subscribe with explicit channel configuration,
// passed through to the transport engine unmodified.
func (c *Client) SubscribeWithConfig(ctx context.Context, target Collection, config ChannelConfig) (*Channel, *Receiver, error) {
	return c.socket.Channel(ctx, target.Topic(), config, DecodeMessage)
}
