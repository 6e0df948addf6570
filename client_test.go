package openseastream

import (
	"errors"
	"io"
	"strings"
	"syscall"
	"testing"
	"time"
)

func TestDefaultConfiguration(t *testing.T) {
	client := New(Mainnet, "key")
	s := client.socket

	if !s.autoReconnect {
		t.Error("Expected autoReconnect to be enabled by default")
	}

	if s.maxReconnectAttempts != defaultMaxReconnectAttempts {
		t.Errorf("Expected maxReconnectAttempts to be %d, got %d", defaultMaxReconnectAttempts, s.maxReconnectAttempts)
	}

	if s.reconnectBackoffInit != defaultReconnectBackoffInit {
		t.Errorf("Expected reconnectBackoffInit to be %v, got %v", defaultReconnectBackoffInit, s.reconnectBackoffInit)
	}

	if s.reconnectBackoffMax != defaultReconnectBackoffMax {
		t.Errorf("Expected reconnectBackoffMax to be %v, got %v", defaultReconnectBackoffMax, s.reconnectBackoffMax)
	}

	if s.heartbeatInterval != defaultHeartbeatInterval {
		t.Errorf("Expected heartbeatInterval to be %v, got %v", defaultHeartbeatInterval, s.heartbeatInterval)
	}

	if s.channelBuffer != defaultChannelBuffer {
		t.Errorf("Expected channelBuffer to be %d, got %d", defaultChannelBuffer, s.channelBuffer)
	}
}

func TestCustomConfiguration(t *testing.T) {
	maxAttempts := 5
	backoffInit := 2 * time.Second
	backoffMax := 60 * time.Second

	client := New(Testnet, "key",
		WithAutoReconnect(false),
		WithMaxReconnectAttempts(maxAttempts),
		WithReconnectBackoff(backoffInit, backoffMax),
		WithChannelBufferSize(8),
	)
	s := client.socket

	if s.autoReconnect {
		t.Error("Expected autoReconnect to be disabled")
	}

	if s.maxReconnectAttempts != maxAttempts {
		t.Errorf("Expected maxReconnectAttempts to be %d, got %d", maxAttempts, s.maxReconnectAttempts)
	}

	if s.reconnectBackoffInit != backoffInit {
		t.Errorf("Expected reconnectBackoffInit to be %v, got %v", backoffInit, s.reconnectBackoffInit)
	}

	if s.reconnectBackoffMax != backoffMax {
		t.Errorf("Expected reconnectBackoffMax to be %v, got %v", backoffMax, s.reconnectBackoffMax)
	}

	if s.channelBuffer != 8 {
		t.Errorf("Expected channelBuffer to be 8, got %d", s.channelBuffer)
	}
}

func TestEndpointCarriesTokenAndVersion(t *testing.T) {
	client := New(Mainnet, "my-key")

	endpoint := client.socket.endpoint
	if !strings.Contains(endpoint, "token=my-key") {
		t.Errorf("Expected endpoint to carry the token, got %s", endpoint)
	}
	if !strings.Contains(endpoint, "vsn=2.0.0") {
		t.Errorf("Expected endpoint to pin the serializer version, got %s", endpoint)
	}
	if strings.Count(endpoint, "token=") != 1 {
		t.Errorf("Expected exactly one token parameter, got %s", endpoint)
	}
}

func TestIsRecoverableError(t *testing.T) {
	s := &Socket{}

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: true,
		},
		{
			name:     "EOF error",
			err:      io.EOF,
			expected: true,
		},
		{
			name:     "unexpected EOF",
			err:      io.ErrUnexpectedEOF,
			expected: true,
		},
		{
			name:     "broken pipe",
			err:      syscall.EPIPE,
			expected: true,
		},
		{
			name:     "connection reset",
			err:      syscall.ECONNRESET,
			expected: true,
		},
		{
			name:     "broken pipe error message",
			err:      errors.New("write tcp: broken pipe"),
			expected: true,
		},
		{
			name:     "connection reset error message",
			err:      errors.New("read tcp: connection reset by peer"),
			expected: true,
		},
		{
			name:     "EOF in message",
			err:      errors.New("unexpected EOF"),
			expected: true,
		},
		{
			name:     "non-recoverable error",
			err:      errors.New("authentication failed"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.isRecoverableError(tt.err)
			if result != tt.expected {
				t.Errorf("isRecoverableError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestReconnectionStateInitial(t *testing.T) {
	client := New(Mainnet, "key")
	s := client.socket

	if s.internal.reconnectAttempts != 0 {
		t.Errorf("Expected initial reconnectAttempts to be 0, got %d", s.internal.reconnectAttempts)
	}

	if s.internal.isReconnecting {
		t.Error("Expected isReconnecting to be false initially")
	}
}
