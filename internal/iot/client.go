package iot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
)

// Logger is the minimal logging interface the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client invokes operations on IoT actuators.
//
// Devices expose their operations as bare HTTP GET endpoints
// (http://<addr>/on, /off, /low, ...). The client resolves addresses
// through the registry on every call so a device that moved since
// selection is still reached, and checks health and capability before
// touching the network.
//
// The client never mutates the registry. On failure the session loop
// marks the device unhealthy; keeping that decision in one place keeps
// the failure path observable.
type Client struct {
	registry *device.Registry
	http     *http.Client
	logger   Logger
}

// NewClient creates a client with the configured per-request timeout.
func NewClient(registry *device.Registry, cfg config.IoTConfig) *Client {
	return &Client{
		registry: registry,
		http: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
		logger: noopLogger{},
	}
}

// SetLogger attaches a logger. Nil is ignored.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Invoke runs one operation on a named device.
//
// Parameters:
//   - ctx: Bounds the call together with the client timeout
//   - deviceName: Registry name of the target
//   - operation: Operation tag ("on", "off", "low", "high", "status")
//
// Returns:
//   - error: device.ErrNotFound for an unknown name,
//     device.ErrOffline when the record is unhealthy,
//     device.ErrUnsupportedOperation when the device does not
//     advertise the operation, or the wrapped transport error
func (c *Client) Invoke(ctx context.Context, deviceName, operation string) error {
	rec, err := c.registry.Lookup(deviceName)
	if err != nil {
		return err
	}
	if !rec.Healthy || rec.Address == nil {
		return fmt.Errorf("%w: %s", device.ErrOffline, deviceName)
	}
	if len(rec.Capabilities) > 0 && !rec.HasCapability(operation) {
		return fmt.Errorf("%w: %s does not support %q",
			device.ErrUnsupportedOperation, deviceName, operation)
	}

	url := fmt.Sprintf("http://%s/%s", rec.Address.String(), operation)
	c.logger.Debug("invoking device operation", "device", deviceName, "url", url)

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", deviceName, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("device unreachable",
			"device", deviceName, "operation", operation, "error", err)
		return fmt.Errorf("invoking %s on %s: %w", operation, deviceName, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort cleanup

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("invoking %s on %s: device returned %d",
			operation, deviceName, resp.StatusCode)
	}

	c.logger.Debug("device operation ok",
		"device", deviceName, "operation", operation, "latency", time.Since(start))
	return nil
}
