// Iris Core - voice-driven session coordinator for smart glasses.
//
// This is the main entry point for the Iris Core daemon. It wires the
// device registry, discovery scanner, interrupt channel, voice command
// source, display bridge and session loop together, and serves the
// HTTP/WebSocket API for sensors and companion UIs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/iris-glasses/iris-core/migrations"

	"github.com/iris-glasses/iris-core/internal/api"
	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/discovery"
	"github.com/iris-glasses/iris-core/internal/display"
	"github.com/iris-glasses/iris-core/internal/feature"
	"github.com/iris-glasses/iris-core/internal/infrastructure/config"
	"github.com/iris-glasses/iris-core/internal/infrastructure/database"
	"github.com/iris-glasses/iris-core/internal/infrastructure/influxdb"
	"github.com/iris-glasses/iris-core/internal/infrastructure/logging"
	"github.com/iris-glasses/iris-core/internal/infrastructure/mqtt"
	"github.com/iris-glasses/iris-core/internal/interrupt"
	"github.com/iris-glasses/iris-core/internal/iot"
	"github.com/iris-glasses/iris-core/internal/session"
	"github.com/iris-glasses/iris-core/internal/voice"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Iris Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Device registry and interrupt channel
	registry := device.NewRegistry(cfg.Registry.FreshnessWindow())
	registry.SetLogger(log)

	interrupts := interrupt.NewChannel(cfg.Session.InterruptBufferSize)
	defer interrupts.Close()

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT connected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Discovery: one synchronous bootstrap cycle so the session starts
	// with a populated registry, then periodic rescans in the background.
	scanner := discovery.NewScanner(registry, interrupts, cfg.Discovery)
	scanner.SetLogger(log)
	if influxClient != nil {
		scanner.SetTelemetry(influxClient)
	}
	scanner.Bootstrap(ctx)
	go scanner.Run(ctx)
	log.Info("discovery running", "devices", registry.Count())

	// Sensor events arrive over MQTT and the HTTP push endpoint; both
	// feed the same interrupt channel.
	topics := mqtt.Topics{}
	bridge := interrupt.NewSensorBridge(interrupts, log)
	if err := mqttClient.Subscribe(topics.AllSensorEvents(), byte(cfg.MQTT.QoS), bridge.HandleMessage); err != nil {
		return fmt.Errorf("subscribing to sensor events: %w", err)
	}

	// Feature registry and display bridge. The renderer reads the
	// feature names lazily, so it can be created before registration.
	speaker := display.NopSpeaker{}
	features := feature.NewRegistry()

	renderer := display.NewClient(cfg.Display, registry, features.Names)
	renderer.SetLogger(log)
	defer renderer.Close()

	todo := feature.NewTodo(feature.NewTodoStore(db), renderer, speaker)
	todo.SetLogger(log)
	if featureEnabled(cfg.Session.Features, todo.Name()) {
		if err := features.Register(todo); err != nil {
			return fmt.Errorf("registering todo feature: %w", err)
		}
	}

	// Voice command source: phone STT transcripts over MQTT. The
	// parser resolves feature numbers against the menu order.
	parser := voice.NewParser(cfg.Voice.WakePhrase, features.Names())
	source := voice.NewMQTTSource(parser, cfg.Session.InterruptBufferSize)
	source.SetLogger(log)
	transcriptTopic := cfg.Voice.TranscriptTopic
	if transcriptTopic == "" {
		transcriptTopic = topics.VoiceTranscript()
	}
	if err := mqttClient.Subscribe(transcriptTopic, byte(cfg.MQTT.QoS), source.HandleTranscript); err != nil {
		return fmt.Errorf("subscribing to voice transcripts: %w", err)
	}

	// Actuator client for device operations
	actuator := iot.NewClient(registry, cfg.IoT)
	actuator.SetLogger(log)

	// Session machine and loop
	machine := session.NewMachine(registry, features.Known, cfg.Session.IdleTimeout())
	loop := session.NewLoop(session.Options{
		Machine:     machine,
		Interrupts:  interrupts,
		Source:      source,
		Renderer:    renderer,
		Actuator:    actuator,
		Registry:    registry,
		Features:    features,
		PollTimeout: cfg.Session.CommandPollTimeout(),
	})
	loop.SetLogger(log)
	loop.SetSpeaker(speaker)
	if influxClient != nil {
		loop.SetTelemetry(influxClient)
		go reportInterruptDrops(ctx, interrupts, influxClient)
	}

	// HTTP/WebSocket API
	health := map[string]api.HealthChecker{
		"database": db,
		"mqtt":     mqttClient,
	}
	if influxClient != nil {
		health["influxdb"] = influxClient
	}
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Logger:     log,
		Registry:   registry,
		Interrupts: interrupts,
		Session:    loop,
		Health:     health,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Session transitions go to WebSocket clients and, retained, to the
	// session topic so companion UIs can catch up after reconnecting.
	loop.SetBroadcaster(&sessionAnnouncer{
		hub:    server.Hub(),
		mqtt:   mqttClient,
		topic:  topics.SessionScreen(),
		logger: log,
	})

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, session starting")

	// The session loop owns the calling goroutine until shutdown.
	loop.Run(ctx)

	log.Info("Iris Core stopped")
	return nil
}

// sessionAnnouncer fans session events out to the WebSocket hub and
// mirrors transitions onto the retained MQTT session topic.
type sessionAnnouncer struct {
	hub    *api.Hub
	mqtt   *mqtt.Client
	topic  string
	logger *logging.Logger
}

func (a *sessionAnnouncer) Broadcast(event string, payload any) {
	a.hub.Broadcast(event, payload)

	data, err := json.Marshal(payload)
	if err != nil {
		a.logger.Warn("session announce marshal failed", "error", err)
		return
	}
	if err := a.mqtt.PublishRetained(a.topic, data); err != nil {
		a.logger.Debug("session announce publish failed", "error", err)
	}
}

// dropReportInterval is how often interrupt drop counters are
// forwarded to telemetry.
const dropReportInterval = time.Minute

// reportInterruptDrops periodically forwards the channel's per-kind
// drop counters to InfluxDB. Counters are cumulative; unchanged kinds
// are skipped.
func reportInterruptDrops(ctx context.Context, interrupts *interrupt.Channel, telemetry *influxdb.Client) {
	ticker := time.NewTicker(dropReportInterval)
	defer ticker.Stop()

	last := make(map[interrupt.Kind]uint64)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for kind, count := range interrupts.Dropped() {
				if count != last[kind] {
					telemetry.RecordInterruptDrops(string(kind), count)
					last[kind] = count
				}
			}
		}
	}
}

// featureEnabled reports whether a built-in feature should register.
// An empty list in config enables all built-ins.
func featureEnabled(enabled []string, name string) bool {
	if len(enabled) == 0 {
		return true
	}
	for _, n := range enabled {
		if n == name {
			return true
		}
	}
	return false
}

// getConfigPath returns the configuration file path.
// Uses IRIS_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IRIS_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
