package openseastream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// writeRequest represents a request to write a message to the websocket.
type writeRequest struct {
	messageType int
	data        []byte
}

// Socket runs one multiplexed connection to the stream endpoint: it owns
// the read, write and heartbeat goroutines, correlates replies to pushes,
// and routes channel messages to their joined Channel. Join state is
// mutated only here.
type Socket struct {
	endpoint string

	conn   *websocket.Conn
	connMu sync.RWMutex

	heartbeatInterval    time.Duration
	autoReconnect        bool
	maxReconnectAttempts int
	reconnectBackoffInit time.Duration
	reconnectBackoffMax  time.Duration
	readTimeout          time.Duration
	writeTimeout         time.Duration
	joinTimeout          time.Duration
	channelBuffer        int

	onConnectCallback    func()
	onDisconnectCallback func(error)
	onReconnectCallback  func()

	logger Logger

	internal struct {
		mu                sync.RWMutex
		connClosed        bool
		reconnectAttempts int
		isReconnecting    bool
	}

	channelMu sync.RWMutex
	channels  map[string]*Channel

	pendingMu sync.Mutex
	pending   map[string]chan phxReplyPayload

	ref atomic.Uint64

	closeChan     chan struct{}
	closeOnce     sync.Once
	writeLoopOnce sync.Once
	writeChan     chan writeRequest
}

// newSocket builds a socket for the given endpoint URL. The Phoenix V2
// serializer version is pinned on the URL here.
func newSocket(endpoint string, config *Config) *Socket {
	return &Socket{
		endpoint:             withProtocolVersion(endpoint),
		heartbeatInterval:    config.HeartbeatInterval,
		autoReconnect:        config.AutoReconnect,
		maxReconnectAttempts: config.MaxReconnectAttempts,
		reconnectBackoffInit: config.ReconnectBackoffInit,
		reconnectBackoffMax:  config.ReconnectBackoffMax,
		readTimeout:          config.ReadTimeout,
		writeTimeout:         config.WriteTimeout,
		joinTimeout:          config.JoinTimeout,
		channelBuffer:        config.ChannelBuffer,
		onConnectCallback:    config.OnConnectCallback,
		onDisconnectCallback: config.OnDisconnectCallback,
		onReconnectCallback:  config.OnReconnectCallback,
		logger:               config.Logger,
		channels:             make(map[string]*Channel),
		pending:              make(map[string]chan phxReplyPayload),
		closeChan:            make(chan struct{}),
		writeChan:            make(chan writeRequest, 100),
	}
}

func withProtocolVersion(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set("vsn", "2.0.0")
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect establishes the websocket connection and starts the engine
// goroutines.
func (s *Socket) Connect() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.conn != nil {
		s.internal.mu.RLock()
		isClosed := s.internal.connClosed
		s.internal.mu.RUnlock()

		if !isClosed {
			return errors.New("already connected")
		}
	}

	s.logger.Debug("Connecting to %s", s.endpoint)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.Dial(s.endpoint, nil)
	if err != nil {
		return err
	}

	s.conn = conn

	s.internal.mu.Lock()
	s.internal.connClosed = false
	s.internal.mu.Unlock()

	go s.heartbeatLoop()
	go s.readLoop()
	go s.writeLoop()

	if s.onConnectCallback != nil {
		s.onConnectCallback()
	}

	s.logger.Info("Connected to stream endpoint")

	return nil
}

// Disconnect closes the connection. Every joined channel is closed and
// every receiver observes ErrChannelClosed once its buffer drains.
func (s *Socket) Disconnect() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.internal.mu.Lock()
	s.autoReconnect = false
	s.internal.mu.Unlock()

	if s.conn == nil {
		return errors.New("not connected")
	}

	s.internal.mu.RLock()
	isClosed := s.internal.connClosed
	s.internal.mu.RUnlock()

	if isClosed {
		return errors.New("connection already closed")
	}

	s.logger.Debug("Disconnecting")

	s.closeOnce.Do(func() {
		close(s.closeChan)
	})

	s.internal.mu.Lock()
	s.internal.connClosed = true
	s.internal.mu.Unlock()

	err := s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(s.writeTimeout))
	if err != nil {
		s.logger.Debug("Close handshake failed: %v", err)
	}

	if err := s.conn.Close(); err != nil {
		s.closeAllChannels()
		return err
	}

	s.closeAllChannels()

	s.logger.Info("Disconnected")

	return nil
}

// Channel registers (or reuses) the channel for topic and returns its join
// handle plus a fresh receiver. A topic already joined with a different
// configuration fails with ErrKindConfigMismatch; joining the same topic
// with the same configuration reuses the join and hands out an independent
// receiver.
func (s *Socket) Channel(ctx context.Context, topic string, config ChannelConfig, decode DecodeFunc) (*Channel, *Receiver, error) {
	if !s.isConnected() {
		return nil, nil, &RegistrationError{Kind: ErrKindNotConnected, Topic: topic}
	}

	s.channelMu.Lock()
	if existing, ok := s.channels[topic]; ok {
		if !existing.config.equal(config) {
			s.channelMu.Unlock()
			return nil, nil, &RegistrationError{
				Kind:   ErrKindConfigMismatch,
				Topic:  topic,
				Reason: "topic already joined with a different configuration",
			}
		}
		s.channelMu.Unlock()
		return existing, existing.Subscribe(), nil
	}

	ch := newChannel(s, topic, config, decode)
	s.channels[topic] = ch
	s.channelMu.Unlock()

	if err := s.join(ctx, ch); err != nil {
		s.channelMu.Lock()
		delete(s.channels, topic)
		s.channelMu.Unlock()
		ch.broadcast.close()
		return nil, nil, err
	}

	s.logger.Info("Joined channel %s", topic)

	return ch, ch.Subscribe(), nil
}

func (s *Socket) isConnected() bool {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()

	if conn == nil {
		return false
	}

	s.internal.mu.RLock()
	defer s.internal.mu.RUnlock()
	return !s.internal.connClosed
}

func (s *Socket) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

// join performs the phx_join round-trip for ch. Also used on rejoin, with
// a fresh join ref.
func (s *Socket) join(ctx context.Context, ch *Channel) error {
	ref := s.nextRef()
	ch.mu.Lock()
	ch.joinRef = ref
	ch.mu.Unlock()

	reply, err := s.pushAndWait(ctx, phxMessage{
		JoinRef: ref,
		Ref:     ref,
		Topic:   ch.topic,
		Event:   phxJoin,
		Payload: ch.joinPayload(),
	}, ch.joinTimeout())
	if err != nil {
		return &RegistrationError{Kind: ErrKindTransport, Topic: ch.topic, cause: err}
	}
	if reply.Status != phxStatusOK {
		return &RegistrationError{
			Kind:   ErrKindRejected,
			Topic:  ch.topic,
			Reason: strings.TrimSpace(string(reply.Response)),
		}
	}
	return nil
}

// leave performs the phx_leave round-trip and closes the channel locally
// regardless of the outcome.
func (s *Socket) leave(ctx context.Context, ch *Channel) error {
	defer s.removeChannel(ch)

	if !s.isConnected() {
		return nil
	}

	ch.mu.Lock()
	joinRef := ch.joinRef
	ch.mu.Unlock()

	reply, err := s.pushAndWait(ctx, phxMessage{
		JoinRef: joinRef,
		Ref:     s.nextRef(),
		Topic:   ch.topic,
		Event:   phxLeave,
	}, ch.joinTimeout())
	if err != nil {
		return fmt.Errorf("leaving %q: %w", ch.topic, err)
	}
	if reply.Status != phxStatusOK {
		return fmt.Errorf("leaving %q rejected: %s", ch.topic, string(reply.Response))
	}

	s.logger.Info("Left channel %s", ch.topic)

	return nil
}

func (s *Socket) removeChannel(ch *Channel) {
	s.channelMu.Lock()
	if s.channels[ch.topic] == ch {
		delete(s.channels, ch.topic)
	}
	s.channelMu.Unlock()
	ch.broadcast.close()
}

func (s *Socket) closeAllChannels() {
	s.channelMu.Lock()
	channels := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	s.channels = make(map[string]*Channel)
	s.channelMu.Unlock()

	for _, ch := range channels {
		ch.broadcast.close()
	}
}

// push queues one frame for the write loop.
func (s *Socket) push(msg phxMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	select {
	case s.writeChan <- writeRequest{messageType: websocket.TextMessage, data: data}:
		return nil
	case <-time.After(5 * time.Second):
		return errors.New("timeout queueing message")
	}
}

// pushAndWait sends a frame and blocks for the matching phx_reply.
func (s *Socket) pushAndWait(ctx context.Context, msg phxMessage, timeout time.Duration) (phxReplyPayload, error) {
	waiter := make(chan phxReplyPayload, 1)

	s.pendingMu.Lock()
	s.pending[msg.Ref] = waiter
	s.pendingMu.Unlock()

	cleanup := func() {
		s.pendingMu.Lock()
		delete(s.pending, msg.Ref)
		s.pendingMu.Unlock()
	}

	if err := s.push(msg); err != nil {
		cleanup()
		return phxReplyPayload{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-waiter:
		return reply, nil
	case <-ctx.Done():
		cleanup()
		return phxReplyPayload{}, ctx.Err()
	case <-timer.C:
		cleanup()
		return phxReplyPayload{}, fmt.Errorf("no reply within %v", timeout)
	case <-s.closeChan:
		cleanup()
		return phxReplyPayload{}, errors.New("connection closed")
	}
}

// heartbeatLoop keeps the connection alive with periodic heartbeats on the
// reserved phoenix topic.
func (s *Socket) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeChan:
			s.logger.Debug("Heartbeat routine stopped")
			return
		case <-ticker.C:
			if !s.isConnected() {
				return
			}
			err := s.push(phxMessage{
				Ref:   s.nextRef(),
				Topic: phoenixTopic,
				Event: phxHeartbeat,
			})
			if err != nil {
				s.logger.Warn("Heartbeat not sent: %v", err)
			}
		}
	}
}

// writeLoop serializes all websocket writes through a channel.
func (s *Socket) writeLoop() {
	s.writeLoopOnce.Do(func() {
		defer func() {
			s.logger.Debug("Write loop stopped")
		}()

		for {
			select {
			case <-s.closeChan:
				return
			case req := <-s.writeChan:
				s.connMu.RLock()
				conn := s.conn
				s.connMu.RUnlock()

				if conn == nil {
					s.logger.Debug("Skipping write, connection is nil")
					continue
				}

				s.internal.mu.RLock()
				isClosed := s.internal.connClosed
				s.internal.mu.RUnlock()

				if isClosed {
					s.logger.Debug("Skipping write, connection is closed")
					continue
				}

				s.logger.Debug("Write frame: %s", string(req.data))

				conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				if err := conn.WriteMessage(req.messageType, req.data); err != nil {
					s.logger.Error("Error writing frame: %v", err)
					// The loop stays up through a reconnect; writes are
					// skipped while the connection is down.
					s.tryAutoReconnect(err)
				}
			}
		}
	})
}

// readLoop reads frames from the websocket connection and routes them.
func (s *Socket) readLoop() {
	defer func() {
		s.logger.Debug("Read loop stopped")
	}()

	for {
		s.connMu.RLock()
		conn := s.conn
		s.connMu.RUnlock()

		if conn == nil {
			s.logger.Warn("Read loop exits, nil connection")
			return
		}

		s.internal.mu.RLock()
		isClosed := s.internal.connClosed
		s.internal.mu.RUnlock()

		if isClosed {
			return
		}

		conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				s.logger.Warn("Reading frame timed out")
			} else {
				s.logger.Error("Error reading frame: %v", err)
			}

			s.tryAutoReconnect(err)

			return
		}

		if messageType != websocket.TextMessage || len(data) == 0 {
			s.logger.Debug("Skipping frame (type=%d, len=%d)", messageType, len(data))
			continue
		}

		s.handleFrame(data)
	}
}

// handleFrame routes a single decoded wire frame: replies to their
// pushers, everything else to the joined channel for its topic.
func (s *Socket) handleFrame(data []byte) {
	var msg phxMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.logger.Warn("Dropping undecodable frame: %v", err)
		return
	}

	if msg.Event == phxReply {
		var reply phxReplyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			s.logger.Warn("Dropping undecodable reply on %s: %v", msg.Topic, err)
			return
		}

		if msg.Topic == phoenixTopic {
			s.logger.Debug("Heartbeat acknowledged")
			return
		}

		s.pendingMu.Lock()
		waiter, ok := s.pending[msg.Ref]
		if ok {
			delete(s.pending, msg.Ref)
		}
		s.pendingMu.Unlock()

		if ok {
			waiter <- reply
		} else {
			s.logger.Debug("Unsolicited reply on %s (ref=%s)", msg.Topic, msg.Ref)
		}
		return
	}

	s.channelMu.RLock()
	ch, ok := s.channels[msg.Topic]
	s.channelMu.RUnlock()

	if !ok {
		s.logger.Debug("Message for unjoined topic %s, dropping", msg.Topic)
		return
	}

	switch msg.Event {
	case phxClose, phxError:
		s.logger.Warn("Channel %s closed by server (%s)", msg.Topic, msg.Event)
		s.removeChannel(ch)
	default:
		ch.dispatch(msg.Event, msg.Payload)
	}
}

func (s *Socket) tryAutoReconnect(err error) {
	s.internal.mu.Lock()
	alreadyClosed := s.internal.connClosed
	s.internal.connClosed = true
	s.internal.mu.Unlock()

	if alreadyClosed {
		// Explicit disconnect already ran; nothing to restore.
		return
	}

	if s.onDisconnectCallback != nil {
		s.onDisconnectCallback(err)
	}

	if !s.autoReconnect {
		s.logger.Info("Auto-reconnect is disabled, connection will not be restored")
		s.closeAllChannels()
		return
	}

	if !s.isRecoverableError(err) {
		s.logger.Error("Unrecoverable error: %v, not attempting reconnection", err)
		s.closeAllChannels()
		return
	}

	s.logger.Info("Connection lost: %v, attempting to reconnect", err)

	go s.reconnect()
}

// isRecoverableError determines if an error should trigger reconnection.
func (s *Socket) isRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return true
	}

	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	recoverableMessages := []string{
		"broken pipe",
		"connection reset",
		"connection refused",
		"connection aborted",
		"i/o timeout",
		"use of closed network connection",
		"connection closed",
		"eof",
		"network is unreachable",
		"no route to host",
	}

	for _, msg := range recoverableMessages {
		if strings.Contains(errMsg, msg) {
			return true
		}
	}

	return false
}

// reconnect re-establishes the connection with exponential backoff and
// rejoins the surviving channels.
func (s *Socket) reconnect() {
	s.internal.mu.Lock()

	if s.internal.isReconnecting {
		s.internal.mu.Unlock()
		return
	}

	s.internal.isReconnecting = true
	s.internal.reconnectAttempts = 0
	s.internal.mu.Unlock()

	backoff := s.reconnectBackoffInit

	for {
		if s.maxReconnectAttempts > 0 {
			s.internal.mu.RLock()
			attempts := s.internal.reconnectAttempts
			s.internal.mu.RUnlock()

			if attempts >= s.maxReconnectAttempts {
				s.logger.Error("Max reconnection attempts (%d) reached, giving up", s.maxReconnectAttempts)
				s.internal.mu.Lock()
				s.internal.isReconnecting = false
				s.internal.mu.Unlock()
				s.closeAllChannels()
				return
			}
		}

		s.internal.mu.Lock()
		s.internal.reconnectAttempts++
		attempt := s.internal.reconnectAttempts
		s.internal.mu.Unlock()

		s.logger.Info("Reconnection attempt %d (waiting %v)", attempt, backoff)

		select {
		case <-s.closeChan:
			s.internal.mu.Lock()
			s.internal.isReconnecting = false
			s.internal.mu.Unlock()
			return
		case <-time.After(backoff):
		}

		if err := s.Connect(); err != nil {
			nextBackoff := backoff * 2
			if nextBackoff > s.reconnectBackoffMax {
				nextBackoff = s.reconnectBackoffMax
			}

			s.logger.Error("Reconnection attempt %d failed: %v (next retry in %v)", attempt, err, nextBackoff)
			backoff = nextBackoff

			continue
		}

		s.logger.Info("Reconnection successful after %d attempts", attempt)

		s.rejoinChannels()

		if s.onReconnectCallback != nil {
			s.onReconnectCallback()
		}

		s.internal.mu.Lock()
		s.internal.isReconnecting = false
		s.internal.reconnectAttempts = 0
		s.internal.mu.Unlock()

		return
	}
}

// rejoinChannels re-registers every channel configured to survive a
// reconnect; the rest are closed.
func (s *Socket) rejoinChannels() {
	s.channelMu.RLock()
	channels := make([]*Channel, 0, len(s.channels))
	for _, ch := range s.channels {
		channels = append(channels, ch)
	}
	s.channelMu.RUnlock()

	if len(channels) == 0 {
		return
	}

	s.logger.Info("Rejoining %d channels", len(channels))

	for _, ch := range channels {
		if !ch.config.RejoinOnReconnect {
			s.logger.Info("Channel %s not configured to rejoin, closing", ch.topic)
			s.removeChannel(ch)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), ch.joinTimeout())
		err := s.join(ctx, ch)
		cancel()
		if err != nil {
			s.logger.Error("Failed to rejoin %s: %v", ch.topic, err)
			s.removeChannel(ch)
		}
	}
}
