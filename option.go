package openseastream

import "time"

const (
	defaultHeartbeatInterval    = 30 * time.Second
	defaultAutoReconnect        = true
	defaultMaxReconnectAttempts = 10 // 0 means infinite retries
	defaultReconnectBackoffInit = 1 * time.Second
	defaultReconnectBackoffMax  = 30 * time.Second
	defaultReadTimeout          = 90 * time.Second
	defaultWriteTimeout         = 10 * time.Second
	defaultJoinTimeout          = 10 * time.Second
	defaultChannelBuffer        = 64
)

// Config collects the connection settings an Option can change.
type Config struct {
	Endpoint             string
	Logger               Logger
	HeartbeatInterval    time.Duration
	AutoReconnect        bool
	MaxReconnectAttempts int
	ReconnectBackoffInit time.Duration
	ReconnectBackoffMax  time.Duration
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	JoinTimeout          time.Duration
	ChannelBuffer        int

	OnConnectCallback    func()
	OnDisconnectCallback func(error)
	OnReconnectCallback  func()
}

// Option configures a client at construction time.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		Logger:               NewSilentLogger(),
		HeartbeatInterval:    defaultHeartbeatInterval,
		AutoReconnect:        defaultAutoReconnect,
		MaxReconnectAttempts: defaultMaxReconnectAttempts,
		ReconnectBackoffInit: defaultReconnectBackoffInit,
		ReconnectBackoffMax:  defaultReconnectBackoffMax,
		ReadTimeout:          defaultReadTimeout,
		WriteTimeout:         defaultWriteTimeout,
		JoinTimeout:          defaultJoinTimeout,
		ChannelBuffer:        defaultChannelBuffer,
	}
}

// WithEndpoint overrides the endpoint URL derived from the Network. Mostly
// useful for tests and proxies; the token parameter is still appended.
func WithEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.Endpoint = endpoint
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithHeartbeatInterval sets how often the client heartbeats the server.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(c *Config) {
		c.HeartbeatInterval = interval
	}
}

// WithAutoReconnect enables or disables automatic reconnection on
// connection failures.
func WithAutoReconnect(enabled bool) Option {
	return func(c *Config) {
		c.AutoReconnect = enabled
	}
}

// WithMaxReconnectAttempts sets the maximum number of reconnection
// attempts. Set to 0 for infinite retries.
func WithMaxReconnectAttempts(max int) Option {
	return func(c *Config) {
		c.MaxReconnectAttempts = max
	}
}

// WithReconnectBackoff sets the initial and maximum backoff duration for
// reconnection attempts.
func WithReconnectBackoff(initial, max time.Duration) Option {
	return func(c *Config) {
		c.ReconnectBackoffInit = initial
		c.ReconnectBackoffMax = max
	}
}

// WithReadTimeout sets the read deadline applied to the connection.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = timeout
	}
}

// WithWriteTimeout sets the write deadline applied to the connection.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = timeout
	}
}

// WithJoinTimeout sets the default bound on the join round-trip, used when
// a ChannelConfig does not set its own.
func WithJoinTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.JoinTimeout = timeout
	}
}

// WithChannelBufferSize sets the default per-receiver buffer, used when a
// ChannelConfig does not set its own. A receiver further behind than this
// observes a LagError.
func WithChannelBufferSize(size int) Option {
	return func(c *Config) {
		c.ChannelBuffer = size
	}
}

// WithOnConnect sets a callback invoked after the connection is
// established.
func WithOnConnect(f func()) Option {
	return func(c *Config) {
		c.OnConnectCallback = f
	}
}

// WithOnDisconnect sets a callback invoked when the connection is lost.
func WithOnDisconnect(f func(error)) Option {
	return func(c *Config) {
		c.OnDisconnectCallback = f
	}
}

// WithOnReconnect sets a callback invoked when reconnection succeeds.
func WithOnReconnect(f func()) Option {
	return func(c *Config) {
		c.OnReconnectCallback = f
	}
}
