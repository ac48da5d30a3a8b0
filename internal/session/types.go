package session

import (
	"context"
	"time"
)

// Screen identifies where the session is in the UI hierarchy.
type Screen string

// The closed set of session screens.
const (
	// ScreenIdle is the resting state. Only the wake phrase leaves it.
	ScreenIdle Screen = "idle"

	// ScreenMenu is the main menu shown after the wake phrase.
	ScreenMenu Screen = "menu"

	// ScreenFeature means a feature (todo, translation, ...) owns the
	// display; passthrough text is forwarded to it.
	ScreenFeature Screen = "feature"

	// ScreenDeviceList shows the registry snapshot for selection.
	ScreenDeviceList Screen = "device-list"

	// ScreenDeviceDetail shows one selected device and accepts
	// operation commands for it.
	ScreenDeviceDetail Screen = "device-detail"
)

// State is the single live session state. It is owned exclusively by
// the Loop; everything else sees copies.
type State struct {
	// Screen is the current screen.
	Screen Screen `json:"screen"`

	// Feature is the active feature name when Screen is ScreenFeature.
	Feature string `json:"feature,omitempty"`

	// Device is the selected device name when Screen is ScreenDeviceDetail.
	Device string `json:"device,omitempty"`

	// Notice is a short line carried into the next render
	// ("light not found", "command sent").
	Notice string `json:"notice,omitempty"`

	// EnteredAt is when the last command input was applied. The idle
	// timeout measures from here; interrupts do not extend it.
	EnteredAt time.Time `json:"entered_at"`
}

// Action classifies a parsed voice command.
type Action string

// The command actions the machine understands.
const (
	// ActionActivate opens the menu (target "menu", from the wake
	// phrase) or a named feature.
	ActionActivate Action = "activate"

	// ActionStop ends whatever is active and returns to idle.
	ActionStop Action = "stop"

	// ActionPassthrough carries free text for the active feature.
	ActionPassthrough Action = "passthrough"

	// ActionConnectDevice opens the device list (no target) or selects
	// a device (target set).
	ActionConnectDevice Action = "connect-device"

	// ActionDeviceAction is an operation word for the selected device.
	ActionDeviceAction Action = "device-action"

	// ActionBack steps up one level in the screen hierarchy.
	ActionBack Action = "back"

	// ActionUnknown is anything the parser could not place.
	ActionUnknown Action = "unknown"
)

// Command is one parsed voice command.
type Command struct {
	Action Action `json:"action"`
	Target string `json:"target,omitempty"`
	Text   string `json:"text,omitempty"`
}

// EffectKind tags a side-effect instruction.
type EffectKind string

// The side effects the machine can request. The machine never performs
// them; the Loop executes the list after each transition.
const (
	// EffectRender asks for a full screen render this tick.
	EffectRender EffectKind = "render"

	// EffectOverlay shows transient text without changing the screen.
	EffectOverlay EffectKind = "overlay"

	// EffectSpeak asks the speaker collaborator to say Text.
	EffectSpeak EffectKind = "speak"

	// EffectActuate invokes Operation on Device via the actuator.
	EffectActuate EffectKind = "actuate"

	// EffectMarkUnhealthy invalidates Device in the registry.
	EffectMarkUnhealthy EffectKind = "mark-unhealthy"

	// EffectFeatureEnter/Command/Exit drive the active feature.
	EffectFeatureEnter   EffectKind = "feature-enter"
	EffectFeatureCommand EffectKind = "feature-command"
	EffectFeatureExit    EffectKind = "feature-exit"
)

// Effect is one declarative side-effect instruction.
type Effect struct {
	Kind      EffectKind
	Device    string
	Operation string
	Feature   string
	Text      string
}

// Source supplies parsed voice commands to the loop.
type Source interface {
	// Next returns the next command, waiting at most timeout. The
	// second return is false when the timeout expired with no speech
	// or ctx was cancelled.
	Next(ctx context.Context, timeout time.Duration) (Command, bool)
}

// Renderer pushes session output to the display bridge.
// Both methods are best-effort; failures are logged and the session
// continues.
type Renderer interface {
	Render(state State) error
	Overlay(text string) error
}

// Speaker voices short confirmations. TTS transport is external; a
// no-op implementation is fine.
type Speaker interface {
	Say(text string) error
}

// Actuator invokes an operation on a named device.
type Actuator interface {
	Invoke(ctx context.Context, deviceName, operation string) error
}

// FeatureRunner hosts the feature implementations the session can
// activate. Satisfied by the feature registry.
type FeatureRunner interface {
	Known(name string) bool
	Enter(ctx context.Context, name string) error
	Command(ctx context.Context, name, text string) error
	Exit(ctx context.Context, name string) error
}

// Telemetry records session activity. Satisfied by the influxdb
// client; nil disables recording.
type Telemetry interface {
	RecordTransition(from, to, trigger string)
	RecordInterrupt(kind string)
	RecordActuation(device, operation string, ok bool, latency time.Duration)
}

// Broadcaster pushes session events to debug listeners (the websocket
// hub). Best-effort and non-blocking.
type Broadcaster interface {
	Broadcast(event string, payload any)
}

// Logger is the minimal logging interface the loop needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
