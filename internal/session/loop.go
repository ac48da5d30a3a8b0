package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/interrupt"
)

// Options carries the Loop's required collaborators.
type Options struct {
	Machine    *Machine
	Interrupts *interrupt.Channel
	Source     Source
	Renderer   Renderer
	Actuator   Actuator
	Registry   *device.Registry
	Features   FeatureRunner

	// PollTimeout bounds the per-tick wait for a voice command. This
	// is the loop's only suspension point; interrupts and the idle
	// timeout are serviced at least this often.
	PollTimeout time.Duration
}

// Loop drives the session.
//
// It is the single writer of the session state: every transition is
// applied sequentially here, so the machine needs no locking at all.
// Each tick:
//
//  1. Drain the interrupt channel and apply every event in order.
//  2. Poll for at most one voice command (bounded wait).
//  3. Apply the command against the post-interrupt state.
//  4. Evaluate the idle timeout.
//  5. Execute the accumulated effects; render at most once.
//
// No side-effect failure stops the loop. A dead display or an
// unreachable actuator degrades the session, never ends it.
type Loop struct {
	machine    *Machine
	interrupts *interrupt.Channel
	source     Source
	renderer   Renderer
	actuator   Actuator
	registry   *device.Registry
	features   FeatureRunner

	pollTimeout time.Duration

	speaker     Speaker
	telemetry   Telemetry
	broadcaster Broadcaster
	logger      Logger

	// state is owned by Run's goroutine; the mutex exists only so
	// State() can serve concurrent readers (the API).
	mu    sync.RWMutex
	state State

	now func() time.Time
}

// NewLoop creates a session loop. Optional collaborators (speaker,
// telemetry, broadcaster, logger) are attached with setters.
func NewLoop(opts Options) *Loop {
	return &Loop{
		machine:     opts.Machine,
		interrupts:  opts.Interrupts,
		source:      opts.Source,
		renderer:    opts.Renderer,
		actuator:    opts.Actuator,
		registry:    opts.Registry,
		features:    opts.Features,
		pollTimeout: opts.PollTimeout,
		logger:      noopLogger{},
		now:         time.Now,
	}
}

// SetLogger attaches a logger. Nil is ignored.
func (l *Loop) SetLogger(logger Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// SetSpeaker attaches a speaker for voice feedback.
func (l *Loop) SetSpeaker(s Speaker) { l.speaker = s }

// SetTelemetry attaches a telemetry recorder.
func (l *Loop) SetTelemetry(t Telemetry) { l.telemetry = t }

// SetBroadcaster attaches a debug event broadcaster.
func (l *Loop) SetBroadcaster(b Broadcaster) { l.broadcaster = b }

// State returns a copy of the current session state.
func (l *Loop) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Run executes ticks until ctx is cancelled. It renders the idle
// screen once on entry so the display is never blank.
func (l *Loop) Run(ctx context.Context) {
	l.setState(State{Screen: ScreenIdle, EnteredAt: l.now()})
	if err := l.renderer.Render(l.State()); err != nil {
		l.logger.Warn("initial render failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("session loop stopping")
			return
		default:
		}
		l.tick(ctx)
	}
}

// tick runs one full loop iteration.
func (l *Loop) tick(ctx context.Context) {
	state := l.State()
	var effects []Effect

	// A notice lives for one render. Whatever the previous tick set
	// has been shown by now; drop it so an interrupt-driven re-render
	// cannot repeat a stale confirmation line.
	state.Notice = ""

	// Interrupts first: they are time-sensitive and must not be
	// starved by command processing.
	for _, ev := range l.interrupts.Drain() {
		var evEffects []Effect
		state, evEffects = l.machine.ApplyEvent(state, ev)
		effects = append(effects, evEffects...)
		l.logger.Debug("interrupt applied", "kind", ev.Kind, "source", ev.Source)
		if l.telemetry != nil {
			l.telemetry.RecordInterrupt(string(ev.Kind))
		}
	}

	// At most one command per tick, applied to the post-interrupt state.
	if cmd, ok := l.source.Next(ctx, l.pollTimeout); ok {
		prior := state
		var cmdEffects []Effect
		state, cmdEffects = l.machine.ApplyCommand(state, cmd, l.now())
		effects = append(effects, cmdEffects...)
		l.observeTransition(prior, state, "command")
	}

	// The idle timeout runs every tick so the session falls back to
	// idle even in total silence.
	prior := state
	idleState, idleEffects, timedOut := l.machine.CheckIdle(state, l.now())
	if timedOut {
		state = idleState
		effects = append(effects, idleEffects...)
		l.observeTransition(prior, state, "idle_timeout")
		l.logger.Info("session idle timeout", "from", prior.Screen)
	}

	l.setState(state)
	l.execute(ctx, effects)
}

// execute runs the tick's side effects. Renders are collapsed to at
// most one, issued last so it reflects the final state (including any
// notice an earlier effect set).
func (l *Loop) execute(ctx context.Context, effects []Effect) {
	render := false

	for _, ef := range effects {
		switch ef.Kind {
		case EffectRender:
			render = true

		case EffectOverlay:
			if err := l.renderer.Overlay(ef.Text); err != nil {
				l.logger.Warn("overlay failed", "text", ef.Text, "error", err)
			}

		case EffectSpeak:
			if l.speaker != nil {
				if err := l.speaker.Say(ef.Text); err != nil {
					l.logger.Warn("speak failed", "error", err)
				}
			}

		case EffectActuate:
			l.actuate(ctx, ef)
			render = true

		case EffectMarkUnhealthy:
			l.registry.MarkUnhealthy(ef.Device)

		case EffectFeatureEnter:
			if err := l.features.Enter(ctx, ef.Feature); err != nil {
				l.logger.Warn("feature enter failed", "feature", ef.Feature, "error", err)
				l.setNotice(fmt.Sprintf("%s unavailable", ef.Feature))
			}

		case EffectFeatureCommand:
			if err := l.features.Command(ctx, ef.Feature, ef.Text); err != nil {
				l.logger.Warn("feature command failed", "feature", ef.Feature, "error", err)
			}

		case EffectFeatureExit:
			if err := l.features.Exit(ctx, ef.Feature); err != nil {
				l.logger.Warn("feature exit failed", "feature", ef.Feature, "error", err)
			}
		}
	}

	if render {
		if err := l.renderer.Render(l.State()); err != nil {
			l.logger.Warn("render failed", "error", err)
		}
	}
}

// actuate invokes one device operation. Failure marks the device
// unhealthy and surfaces a notice; the session carries on.
func (l *Loop) actuate(ctx context.Context, ef Effect) {
	start := l.now()
	err := l.actuator.Invoke(ctx, ef.Device, ef.Operation)
	if l.telemetry != nil {
		l.telemetry.RecordActuation(ef.Device, ef.Operation, err == nil, time.Since(start))
	}

	if err != nil {
		l.logger.Warn("actuator call failed",
			"device", ef.Device, "operation", ef.Operation, "error", err)
		l.registry.MarkUnhealthy(ef.Device)
		l.setNotice(fmt.Sprintf("%s not responding", ef.Device))
		return
	}

	l.logger.Debug("actuator call ok", "device", ef.Device, "operation", ef.Operation)
	l.setNotice(fmt.Sprintf("%s %s sent", ef.Device, ef.Operation))
}

// observeTransition reports a screen change to telemetry and the
// broadcaster. No-op when the screen did not change.
func (l *Loop) observeTransition(from, to State, trigger string) {
	if from.Screen == to.Screen {
		return
	}
	l.logger.Info("session transition",
		"from", from.Screen, "to", to.Screen, "trigger", trigger)
	if l.telemetry != nil {
		l.telemetry.RecordTransition(string(from.Screen), string(to.Screen), trigger)
	}
	if l.broadcaster != nil {
		l.broadcaster.Broadcast("session.transition", map[string]any{
			"from":    from.Screen,
			"to":      to.Screen,
			"trigger": trigger,
			"state":   to,
		})
	}
}

func (l *Loop) setState(state State) {
	l.mu.Lock()
	l.state = state
	l.mu.Unlock()
}

// setNotice updates the live state's notice line between effects so
// the tick's final render carries it.
func (l *Loop) setNotice(text string) {
	l.mu.Lock()
	l.state.Notice = text
	l.mu.Unlock()
}
