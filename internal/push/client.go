package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matheus3301/chatstore/internal/status"
	"go.uber.org/zap"
)

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("push: client closed")

// Envelope is the wire format of every push frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Config configures a Client.
type Config struct {
	URL    string
	UserID string
	// Token is sent as the jwt cookie on the upgrade request.
	Token string

	ReconnectBaseDelay   time.Duration
	ReconnectMaxDelay    time.Duration
	MaxReconnectAttempts int
	HandshakeTimeout     time.Duration
}

func (c *Config) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 500 * time.Millisecond
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// Client is a websocket push channel. Registered handlers outlive individual
// connections, so a reconnect never loses a subscription.
type Client struct {
	*Emitter

	cfg     Config
	dialer  *websocket.Dialer
	machine *status.Machine
	logger  *zap.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	running bool
	closed  bool
	closing chan struct{}
	done    chan struct{} // closed when the current run loop exits
	recon   *backoff
}

// NewClient creates a disconnected client. machine may be nil.
func NewClient(cfg Config, machine *status.Machine, logger *zap.Logger) *Client {
	cfg.defaults()
	if machine == nil {
		machine = status.NewMachine(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Emitter: NewEmitter(),
		cfg:     cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout, Proxy: http.ProxyFromEnvironment},
		machine: machine,
		logger:  logger,
		closing: make(chan struct{}),
		recon: &backoff{
			base:        cfg.ReconnectBaseDelay,
			max:         cfg.ReconnectMaxDelay,
			maxAttempts: cfg.MaxReconnectAttempts,
			stableAfter: time.Minute,
		},
	}
}

// State returns the connection state.
func (c *Client) State() status.State {
	return c.machine.Current()
}

// Connect dials the push endpoint and starts the read loop. ctx bounds the
// initial dial only; the connection lives until Close. Calling Connect on a
// running client is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.running {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.machine.Transition(status.Connecting); err != nil {
		return err
	}
	conn, err := c.dial(ctx)
	if err != nil {
		_ = c.machine.Transition(status.Disconnected)
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.running = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	_ = c.machine.Transition(status.Connected)
	c.recon.attempt = 0
	c.recon.markConnected()
	c.logger.Info("push connected", zap.String("url", c.cfg.URL))

	go c.run(conn, done)
	return nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("parse push url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	if c.cfg.UserID != "" {
		q := u.Query()
		q.Set("userId", c.cfg.UserID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	target, err := c.endpoint()
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Cookie", (&http.Cookie{Name: "jwt", Value: c.cfg.Token}).String())
	}
	conn, _, err := c.dialer.DialContext(ctx, target, header)
	if err != nil {
		return nil, fmt.Errorf("push dial: %w", err)
	}
	return conn, nil
}

func (c *Client) run(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		c.readLoop(conn)
		if c.isClosing() {
			return
		}
		next, ok := c.reconnect()
		if !ok {
			c.mu.Lock()
			c.conn = nil
			c.running = false
			c.mu.Unlock()
			return
		}
		conn = next
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !c.isClosing() {
				c.logger.Warn("push connection lost", zap.Error(err))
			}
			_ = conn.Close()
			return
		}
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("dropping undecodable push frame", zap.Error(err))
			continue
		}
		c.Emit(env.Event, env.Data)
	}
}

func (c *Client) reconnect() (*websocket.Conn, bool) {
	_ = c.machine.Transition(status.Reconnecting)
	for {
		if c.recon.exhausted() {
			_ = c.machine.Transition(status.Connecting)
			_ = c.machine.Transition(status.Disconnected)
			c.logger.Error("push reconnect attempts exhausted")
			return nil, false
		}
		delay := c.recon.next()
		c.logger.Info("push reconnecting", zap.Int("attempt", c.recon.attempt), zap.Duration("delay", delay))

		t := time.NewTimer(delay)
		select {
		case <-c.closing:
			t.Stop()
			return nil, false
		case <-t.C:
		}

		_ = c.machine.Transition(status.Connecting)
		conn, err := c.dial(context.Background())
		if err != nil {
			c.logger.Warn("push reconnect failed", zap.Error(err))
			_ = c.machine.Transition(status.Reconnecting)
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return nil, false
		}
		c.conn = conn
		c.mu.Unlock()

		_ = c.machine.Transition(status.Connected)
		c.recon.markConnected()
		c.logger.Info("push reconnected")
		return conn, true
	}
}

func (c *Client) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

// Close shuts the connection down and stops reconnecting. Safe to call more
// than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.closing)
	conn := c.conn
	done := c.done
	c.mu.Unlock()

	var err error
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client close"),
			time.Now().Add(time.Second))
		err = conn.Close()
	}
	if done != nil {
		<-done
	}
	_ = c.machine.Transition(status.Closed)
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}
