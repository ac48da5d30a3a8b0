package display

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
	"github.com/iris-glasses/iris-core/internal/session"
)

// Logger is the minimal logging interface the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

const defaultDialTimeout = 2 * time.Second

// Client pushes frames to the display server on the Pi over a plain
// TCP socket, one JSON object per line.
//
// The connection is dialed lazily and kept open between frames. A
// failed write closes the connection and retries once on a fresh one;
// past that the error is returned to the caller, who treats rendering
// as best-effort.
type Client struct {
	addr        string
	dialTimeout time.Duration
	writeTimeout time.Duration

	registry *device.Registry
	menu     func() []string

	mu   sync.Mutex
	conn net.Conn

	logger Logger
}

// NewClient creates a display client. registry supplies the device
// list and detail screens; menu returns the ordered feature names
// shown on the main menu. The first frame dials the connection.
func NewClient(cfg config.DisplayConfig, registry *device.Registry, menu func() []string) *Client {
	if menu == nil {
		menu = func() []string { return nil }
	}
	return &Client{
		addr:         cfg.Address,
		dialTimeout:  defaultDialTimeout,
		writeTimeout: cfg.WriteTimeout(),
		registry:     registry,
		menu:         menu,
		logger:       noopLogger{},
	}
}

// SetLogger replaces the no-op logger.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Render draws the full screen for the given session state.
func (c *Client) Render(st session.State) error {
	var devices []device.Record
	if c.registry != nil {
		devices = c.registry.Snapshot()
	}
	return c.Send(frameForState(st, devices, c.menu()))
}

// Overlay shows transient word-wrapped text without a screen change.
// The next Render replaces it.
func (c *Client) Overlay(text string) error {
	return c.Send(WrapText(text))
}

// Send writes one frame to the display server.
func (c *Client) Send(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()

	firstErr := c.writeLocked(data)
	if firstErr == nil {
		return nil
	}
	c.logger.Debug("display write failed, reconnecting", "error", firstErr)

	// Stale connection (display server restarted, Pi rebooted).
	// One fresh dial, then give up for this frame.
	c.closeLocked()
	if err := c.writeLocked(data); err != nil {
		c.closeLocked()
		return fmt.Errorf("writing frame to %s: %w", c.addr, err)
	}
	return nil
}

// Close shuts the connection. The client remains usable; the next
// frame dials again.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
	return nil
}

func (c *Client) writeLocked(data []byte) error {
	if c.conn == nil {
		conn, err := net.DialTimeout("tcp", c.addr, c.dialTimeout)
		if err != nil {
			return fmt.Errorf("dialing display server: %w", err)
		}
		c.conn = conn
	}
	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := c.conn.Write(data)
	return err
}

func (c *Client) closeLocked() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// NopSpeaker satisfies the session speaker when no TTS transport is
// wired. Spoken confirmations are dropped.
type NopSpeaker struct{}

// Say discards the phrase.
func (NopSpeaker) Say(string) error { return nil }
