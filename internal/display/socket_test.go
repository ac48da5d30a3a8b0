package display

import (
	"bufio"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
	"github.com/iris-glasses/iris-core/internal/session"
)

// frameServer is a stand-in for the Pi display server: it accepts TCP
// connections and decodes one JSON frame per line.
type frameServer struct {
	ln     net.Listener
	frames chan Frame
}

func newFrameServer(t *testing.T) *frameServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &frameServer{ln: ln, frames: make(chan Frame, 16)}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *frameServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go func(c net.Conn) {
			defer c.Close()
			sc := bufio.NewScanner(c)
			for sc.Scan() {
				var f Frame
				if json.Unmarshal(sc.Bytes(), &f) == nil {
					s.frames <- f
				}
			}
		}(conn)
	}
}

func (s *frameServer) next(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-s.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func testClient(t *testing.T, s *frameServer, registry *device.Registry, menu func() []string) *Client {
	t.Helper()
	cfg := config.DisplayConfig{
		Address:        s.ln.Addr().String(),
		WriteTimeoutMs: 1000,
	}
	c := NewClient(cfg, registry, menu)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientSendsFrame(t *testing.T) {
	s := newFrameServer(t)
	c := testClient(t, s, nil, nil)

	if err := c.Send(NewFrame("hello", "world")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got := s.next(t)
	if got.Lines[0] != "hello" || got.Lines[1] != "world" {
		t.Errorf("got frame %v", got.Lines)
	}
}

func TestClientRendersIdleScreen(t *testing.T) {
	s := newFrameServer(t)
	c := testClient(t, s, nil, nil)

	if err := c.Render(session.State{Screen: session.ScreenIdle}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	got := s.next(t)
	if got.Lines[0] != "Iris Smart Glasses" {
		t.Errorf("line 0 = %q", got.Lines[0])
	}
}

func TestClientRendersRegistrySnapshot(t *testing.T) {
	registry := device.NewRegistry(time.Minute)
	if err := registry.Upsert(device.Record{Name: "light", Label: "Living Light"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	s := newFrameServer(t)
	c := testClient(t, s, registry, nil)

	if err := c.Render(session.State{Screen: session.ScreenDeviceList}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	got := s.next(t)
	if got.Lines[0] != "Devices" || got.Lines[1] != "1. Living Light" {
		t.Errorf("got frame %v", got.Lines)
	}
}

func TestClientRendersMenu(t *testing.T) {
	s := newFrameServer(t)
	c := testClient(t, s, nil, func() []string { return []string{"todo"} })

	if err := c.Render(session.State{Screen: session.ScreenMenu}); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	got := s.next(t)
	if got.Lines[1] != "1. todo" {
		t.Errorf("line 1 = %q", got.Lines[1])
	}
}

func TestClientOverlayWraps(t *testing.T) {
	s := newFrameServer(t)
	c := testClient(t, s, nil, nil)

	if err := c.Overlay("motion detected in the living room"); err != nil {
		t.Fatalf("Overlay() error = %v", err)
	}

	got := s.next(t)
	if got.Lines[0] != "motion detected in" {
		t.Errorf("line 0 = %q", got.Lines[0])
	}
}

func TestClientReconnectsAfterDeadConnection(t *testing.T) {
	s := newFrameServer(t)
	c := testClient(t, s, nil, nil)

	if err := c.Send(NewFrame("first")); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	s.next(t)

	// Kill the socket out from under the client without clearing its
	// handle, as a display server restart would.
	c.mu.Lock()
	c.conn.Close()
	c.mu.Unlock()

	if err := c.Send(NewFrame("second")); err != nil {
		t.Fatalf("Send() after dead connection error = %v", err)
	}
	if got := s.next(t); got.Lines[0] != "second" {
		t.Errorf("line 0 = %q, want %q", got.Lines[0], "second")
	}
}

func TestClientDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := NewClient(config.DisplayConfig{Address: addr, WriteTimeoutMs: 100}, nil, nil)
	if err := c.Send(NewFrame("hello")); err == nil {
		t.Fatal("Send() to closed address succeeded, want error")
	}
}
