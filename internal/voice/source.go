package voice

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iris-glasses/iris-core/internal/session"
)

// Logger is the minimal logging interface the source needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// transcriptMessage is the payload the phone publishes on
// iris/voice/transcript after speech recognition.
type transcriptMessage struct {
	Text string `json:"text"`
}

// MQTTSource buffers parsed commands arriving over MQTT and hands them
// to the session loop one per poll.
//
// HandleTranscript matches the MQTT client's MessageHandler signature;
// register it as the subscription handler for the transcript topic.
// The source itself carries no broker dependency, which keeps it
// testable by calling HandleTranscript directly.
type MQTTSource struct {
	parser *Parser
	buf    chan session.Command
	logger Logger
}

// NewMQTTSource creates a source with the given command buffer size.
// The buffer absorbs bursts between loop ticks; when it overflows the
// newest command is dropped with a warning, since stale speech is
// worthless anyway.
func NewMQTTSource(parser *Parser, bufferSize int) *MQTTSource {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &MQTTSource{
		parser: parser,
		buf:    make(chan session.Command, bufferSize),
		logger: noopLogger{},
	}
}

// SetLogger attaches a logger. Nil is ignored.
func (s *MQTTSource) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// HandleTranscript parses one transcript message and queues the
// resulting command. Malformed payloads fall back to treating the raw
// bytes as the transcript, matching what simple STT bridges send.
func (s *MQTTSource) HandleTranscript(topic string, payload []byte) error {
	var msg transcriptMessage
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Text == "" {
		msg.Text = string(payload)
	}

	cmd, ok := s.parser.Parse(msg.Text)
	if !ok {
		return nil
	}
	s.logger.Debug("voice command parsed",
		"action", cmd.Action, "target", cmd.Target, "text", cmd.Text)

	select {
	case s.buf <- cmd:
	default:
		s.logger.Warn("voice command dropped, buffer full", "action", cmd.Action)
	}
	return nil
}

// Next returns the next queued command, waiting at most timeout.
func (s *MQTTSource) Next(ctx context.Context, timeout time.Duration) (session.Command, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case cmd := <-s.buf:
		return cmd, true
	case <-timer.C:
		return session.Command{}, false
	case <-ctx.Done():
		return session.Command{}, false
	}
}
