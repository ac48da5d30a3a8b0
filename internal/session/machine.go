package session

import (
	"fmt"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/interrupt"
)

// Machine is the session's decision engine.
//
// Apply is a pure function of (state, input, now): it never touches
// collaborators and never blocks. Every side effect comes back as an
// instruction for the Loop to execute, which keeps the whole
// transition table unit-testable without mocks.
//
// The machine is total: any input it has no rule for produces the
// unrecognized self-loop, state unchanged plus a feedback effect.
type Machine struct {
	registry    *device.Registry
	knownFeat   func(name string) bool
	idleTimeout time.Duration
}

// NewMachine creates a machine.
//
// Parameters:
//   - registry: Resolves device names on selection
//   - knownFeature: Reports whether a feature name can be activated
//   - idleTimeout: Non-idle screens revert to idle after this much
//     time without a command
func NewMachine(registry *device.Registry, knownFeature func(string) bool, idleTimeout time.Duration) *Machine {
	if knownFeature == nil {
		knownFeature = func(string) bool { return false }
	}
	return &Machine{
		registry:    registry,
		knownFeat:   knownFeature,
		idleTimeout: idleTimeout,
	}
}

// ApplyCommand applies one parsed voice command and returns the next
// state plus the side effects it demands.
//
// Every command, recognized or not, counts as input: it resets the
// idle clock.
func (m *Machine) ApplyCommand(state State, cmd Command, now time.Time) (State, []Effect) {
	state.Notice = ""
	state.EnteredAt = now

	switch cmd.Action {
	case ActionActivate:
		return m.applyActivate(state, cmd)
	case ActionStop:
		return m.applyStop(state)
	case ActionConnectDevice:
		return m.applyConnect(state, cmd)
	case ActionDeviceAction:
		return m.applyDeviceAction(state, cmd)
	case ActionBack:
		return m.applyBack(state)
	case ActionPassthrough:
		return m.applyPassthrough(state, cmd)
	default:
		return unrecognized(state)
	}
}

// ApplyEvent applies one interrupt event. Interrupts never change the
// screen and never reset the idle clock; the session must resume
// exactly where it was.
func (m *Machine) ApplyEvent(state State, ev interrupt.Event) (State, []Effect) {
	switch ev.Kind {
	case interrupt.KindMotionAlert:
		return state, []Effect{{Kind: EffectOverlay, Text: motionText(ev)}}

	case interrupt.KindDeviceError:
		name := eventDevice(ev)
		if name == "" {
			return state, []Effect{{Kind: EffectOverlay, Text: "Device fault reported"}}
		}
		return state, []Effect{
			{Kind: EffectMarkUnhealthy, Device: name},
			{Kind: EffectOverlay, Text: fmt.Sprintf("%s reported a fault", name)},
		}

	case interrupt.KindDiscoveryChange:
		// Only the device list renders registry contents; everything
		// else ignores the change.
		if state.Screen == ScreenDeviceList {
			return state, []Effect{{Kind: EffectRender}}
		}
		return state, nil

	default:
		return state, nil
	}
}

// CheckIdle reverts any non-idle screen to idle once the idle timeout
// has elapsed without a command. Evaluated every tick, so the session
// falls back even when nobody is speaking.
func (m *Machine) CheckIdle(state State, now time.Time) (State, []Effect, bool) {
	if state.Screen == ScreenIdle {
		return state, nil, false
	}
	if now.Sub(state.EnteredAt) < m.idleTimeout {
		return state, nil, false
	}

	var effects []Effect
	if state.Screen == ScreenFeature && state.Feature != "" {
		effects = append(effects, Effect{Kind: EffectFeatureExit, Feature: state.Feature})
	}
	next := m.toScreen(state, ScreenIdle, now)
	effects = append(effects, Effect{Kind: EffectRender})
	return next, effects, true
}

// applyActivate handles the wake phrase ("activate menu") and feature
// activation.
func (m *Machine) applyActivate(state State, cmd Command) (State, []Effect) {
	if cmd.Target == "menu" || cmd.Target == "" {
		if state.Screen == ScreenMenu {
			return state, []Effect{{Kind: EffectRender}}
		}
		next := m.toScreen(state, ScreenMenu, state.EnteredAt)
		return next, m.leaveEffects(state, Effect{Kind: EffectRender})
	}

	if !m.knownFeat(cmd.Target) {
		state.Notice = fmt.Sprintf("unknown feature %q", cmd.Target)
		return state, []Effect{{Kind: EffectSpeak, Text: "Unknown feature"}, {Kind: EffectRender}}
	}

	next := m.toScreen(state, ScreenFeature, state.EnteredAt)
	next.Feature = cmd.Target
	effects := m.leaveEffects(state,
		Effect{Kind: EffectFeatureEnter, Feature: cmd.Target},
		Effect{Kind: EffectRender},
	)
	return next, effects
}

// applyStop ends the session from any state.
func (m *Machine) applyStop(state State) (State, []Effect) {
	if state.Screen == ScreenIdle {
		return state, []Effect{{Kind: EffectRender}}
	}
	next := m.toScreen(state, ScreenIdle, state.EnteredAt)
	return next, m.leaveEffects(state, Effect{Kind: EffectRender})
}

// applyConnect opens the device list or selects a device from it.
// Selection is permissive: an unhealthy record can still be selected,
// reachability is checked when an action is attempted.
func (m *Machine) applyConnect(state State, cmd Command) (State, []Effect) {
	if cmd.Target == "" {
		switch state.Screen {
		case ScreenIdle, ScreenMenu:
			next := m.toScreen(state, ScreenDeviceList, state.EnteredAt)
			return next, []Effect{{Kind: EffectRender}}
		case ScreenDeviceList:
			return state, []Effect{{Kind: EffectRender}}
		default:
			return unrecognized(state)
		}
	}

	switch state.Screen {
	case ScreenIdle, ScreenMenu, ScreenDeviceList:
		if _, err := m.registry.Lookup(cmd.Target); err != nil {
			state.Notice = fmt.Sprintf("%s not found", cmd.Target)
			return state, []Effect{{Kind: EffectSpeak, Text: "Device not found"}, {Kind: EffectRender}}
		}
		next := m.toScreen(state, ScreenDeviceDetail, state.EnteredAt)
		next.Device = cmd.Target
		return next, []Effect{{Kind: EffectRender}}
	default:
		return unrecognized(state)
	}
}

// applyDeviceAction turns an operation word into an actuator effect.
// The screen never changes; success or failure shows up as an overlay
// from the Loop's effect executor.
func (m *Machine) applyDeviceAction(state State, cmd Command) (State, []Effect) {
	if state.Screen != ScreenDeviceDetail || state.Device == "" {
		return unrecognized(state)
	}
	op := cmd.Text
	if op == "" {
		op = cmd.Target
	}
	if op == "" {
		return unrecognized(state)
	}
	return state, []Effect{{Kind: EffectActuate, Device: state.Device, Operation: op}}
}

// applyBack walks one step up the containment hierarchy:
// DeviceDetail -> DeviceList -> Menu -> Idle, FeatureActive -> Menu.
func (m *Machine) applyBack(state State) (State, []Effect) {
	switch state.Screen {
	case ScreenDeviceDetail:
		next := m.toScreen(state, ScreenDeviceList, state.EnteredAt)
		return next, []Effect{{Kind: EffectRender}}
	case ScreenDeviceList:
		next := m.toScreen(state, ScreenMenu, state.EnteredAt)
		return next, []Effect{{Kind: EffectRender}}
	case ScreenFeature:
		next := m.toScreen(state, ScreenMenu, state.EnteredAt)
		return next, m.leaveEffects(state, Effect{Kind: EffectRender})
	case ScreenMenu:
		next := m.toScreen(state, ScreenIdle, state.EnteredAt)
		return next, []Effect{{Kind: EffectRender}}
	default:
		return state, []Effect{{Kind: EffectRender}}
	}
}

// applyPassthrough forwards free text to the active feature.
func (m *Machine) applyPassthrough(state State, cmd Command) (State, []Effect) {
	if state.Screen != ScreenFeature || state.Feature == "" {
		return unrecognized(state)
	}
	return state, []Effect{{Kind: EffectFeatureCommand, Feature: state.Feature, Text: cmd.Text}}
}

// toScreen builds the next state for a screen change, clearing the
// fields that belong to the screen being left.
func (m *Machine) toScreen(state State, screen Screen, enteredAt time.Time) State {
	next := state
	next.Screen = screen
	next.EnteredAt = enteredAt
	next.Notice = ""
	if screen != ScreenFeature {
		next.Feature = ""
	}
	if screen != ScreenDeviceDetail {
		next.Device = ""
	}
	return next
}

// leaveEffects prepends a feature-exit effect when the state being
// left had an active feature.
func (m *Machine) leaveEffects(prior State, effects ...Effect) []Effect {
	if prior.Screen == ScreenFeature && prior.Feature != "" {
		return append([]Effect{{Kind: EffectFeatureExit, Feature: prior.Feature}}, effects...)
	}
	return effects
}

// unrecognized is the totality fallback: state unchanged, feedback only.
func unrecognized(state State) (State, []Effect) {
	state.Notice = "command not recognized"
	return state, []Effect{{Kind: EffectSpeak, Text: "Command not recognized"}, {Kind: EffectRender}}
}

// motionText renders a motion alert overlay line.
func motionText(ev interrupt.Event) string {
	if loc, ok := ev.Payload["location"].(string); ok && loc != "" {
		return fmt.Sprintf("Motion detected: %s", loc)
	}
	return "Motion detected"
}

// eventDevice extracts the device name from a device-error event.
func eventDevice(ev interrupt.Event) string {
	if name, ok := ev.Payload["device"].(string); ok && name != "" {
		return name
	}
	return ev.Source
}
