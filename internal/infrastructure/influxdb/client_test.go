package influxdb_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
	"github.com/iris-glasses/iris-core/internal/infrastructure/influxdb"
)

// fakeInfluxServer serves the minimal endpoints the client touches:
// /ping for connectivity checks and /api/v2/write for batched writes.
func fakeInfluxServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/v2/write", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "iris-dev-token",
		Org:           "iris",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func TestConnect(t *testing.T) {
	server := fakeInfluxServer(t)

	client, err := influxdb.Connect(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:8086")
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	_, err := influxdb.Connect(testConfig("http://127.0.0.1:59999"))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnectDefaultBatchSettings(t *testing.T) {
	server := fakeInfluxServer(t)
	cfg := testConfig(server.URL)
	cfg.BatchSize = 0
	cfg.FlushInterval = -1

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup
}

func TestHealthCheck(t *testing.T) {
	server := fakeInfluxServer(t)

	client, err := influxdb.Connect(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestHealthCheckAfterClose(t *testing.T) {
	server := fakeInfluxServer(t)

	client, err := influxdb.Connect(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close() //nolint:errcheck // Under test

	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after close error = %v, want ErrNotConnected", err)
	}
}

func TestRecordMethodsAfterCloseAreSafe(t *testing.T) {
	server := fakeInfluxServer(t)

	client, err := influxdb.Connect(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close() //nolint:errcheck // Under test

	// All writes must silently no-op on a closed client.
	client.RecordTransition("idle", "menu", "command")
	client.RecordActuation("kitchen-light", "on", true, 50*time.Millisecond)
	client.RecordInterrupt("motion-alert")
	client.RecordInterruptDrops("motion-alert", 3)
	client.RecordDiscoveryCycle("mdns", 2, 900*time.Millisecond)
	client.Flush()
}

func TestRecordTransition(t *testing.T) {
	server := fakeInfluxServer(t)

	client, err := influxdb.Connect(testConfig(server.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close() //nolint:errcheck // Test cleanup

	client.RecordTransition("idle", "menu", "command")
	client.RecordActuation("kitchen-light", "on", true, 50*time.Millisecond)
	client.RecordInterrupt("device-error")
	client.RecordDiscoveryCycle("broadcast", 1, 200*time.Millisecond)
	client.Flush()
}
