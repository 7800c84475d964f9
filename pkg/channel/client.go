// Package channel is the capture side of the patch channel: a connection
// manager that keeps one WebSocket open to the patch server and reconnects
// on a fixed delay.
package channel

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/devsync/errors"
	"github.com/grovetools/devsync/pkg/models"
)

// State is the connection state.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "disconnected"
	}
}

// DefaultReconnectDelay is used when Options.ReconnectDelay is zero.
const DefaultReconnectDelay = 2 * time.Second

const writeTimeout = 5 * time.Second

// Options configures a Client.
type Options struct {
	Endpoint       string
	ReconnectDelay time.Duration
	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
	// OnStateChange is called after every transition, outside the client lock.
	OnStateChange func(State)
}

// Client is the connection manager. Its zero value is not usable; call New.
type Client struct {
	opts   Options
	logger *logrus.Entry

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	timer   *time.Timer
	closed  bool
	changed chan struct{}

	writeMu sync.Mutex
}

// New creates a disconnected client. Call Connect to start dialing.
func New(opts Options, logger *logrus.Entry) *Client {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		opts:    opts,
		logger:  logger.WithField("endpoint", opts.Endpoint),
		changed: make(chan struct{}),
	}
}

// Connect starts a dial in the background if the client is disconnected
// and not waiting on its reconnect timer.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.closed || c.state != Disconnected || c.timer != nil {
		c.mu.Unlock()
		return
	}
	c.setState(Connecting)
	c.mu.Unlock()
	c.notify(Connecting)

	go c.dial()
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// WaitOpen blocks until the connection is open or ctx is done.
func (c *Client) WaitOpen(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.state == Open {
			c.mu.Unlock()
			return nil
		}
		if c.closed {
			c.mu.Unlock()
			return errors.ConnectionUnavailable(c.opts.Endpoint).WithDetail("reason", "client closed")
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), errors.ErrCodeConnectionUnavailable, "patch server unavailable").
				WithDetail("endpoint", c.opts.Endpoint)
		}
	}
}

// Send writes one event as a text message. It returns false when the event
// was dropped because the connection is not open or the write failed.
// There is no queue; a dropped event is gone.
func (c *Client) Send(ev models.ChangeEvent) bool {
	c.mu.Lock()
	conn := c.conn
	open := c.state == Open
	c.mu.Unlock()
	if !open || conn == nil {
		c.logger.WithField("kind", ev.Kind).Debug("Dropping change: not connected")
		return false
	}

	data, err := models.Encode(ev)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to encode change")
		return false
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.logger.WithError(err).Warn("Failed to send change")
		// The read loop observes the close and schedules the reconnect.
		conn.Close()
		return false
	}
	return true
}

// Close stops reconnecting and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	conn := c.conn
	c.conn = nil
	prev := c.state
	c.setState(Disconnected)
	c.mu.Unlock()

	if prev != Disconnected {
		c.notify(Disconnected)
	}
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return conn.Close()
}

func (c *Client) dial() {
	conn, _, err := c.opts.Dialer.Dial(c.opts.Endpoint, nil)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.setState(Disconnected)
		c.scheduleReconnect()
		c.mu.Unlock()
		c.logger.WithError(err).Debugf("Dial failed, retrying in %s", c.opts.ReconnectDelay)
		c.notify(Disconnected)
		return
	}
	c.conn = conn
	c.setState(Open)
	c.mu.Unlock()

	c.logger.Info("Connected to patch server")
	c.notify(Open)
	go c.readLoop(conn)
}

// readLoop exists to notice the server going away; the server never sends
// application messages.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	conn.Close()

	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.setState(Disconnected)
	if !c.closed {
		c.scheduleReconnect()
	}
	c.mu.Unlock()

	c.logger.Warnf("Connection to patch server lost, retrying in %s", c.opts.ReconnectDelay)
	c.notify(Disconnected)
}

// scheduleReconnect arms the single reconnect timer. Callers hold mu.
func (c *Client) scheduleReconnect() {
	if c.timer != nil {
		return
	}
	c.timer = time.AfterFunc(c.opts.ReconnectDelay, func() {
		c.mu.Lock()
		c.timer = nil
		c.mu.Unlock()
		c.Connect()
	})
}

// setState records a transition and wakes WaitOpen. Callers hold mu.
func (c *Client) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	close(c.changed)
	c.changed = make(chan struct{})
}

func (c *Client) notify(s State) {
	if c.opts.OnStateChange != nil {
		c.opts.OnStateChange(s)
	}
}
