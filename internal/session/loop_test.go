package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/interrupt"
)

// scriptSource hands out queued commands, one per poll.
type scriptSource struct {
	mu   sync.Mutex
	cmds []Command
}

func (s *scriptSource) push(cmd Command) {
	s.mu.Lock()
	s.cmds = append(s.cmds, cmd)
	s.mu.Unlock()
}

func (s *scriptSource) Next(ctx context.Context, timeout time.Duration) (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cmds) == 0 {
		return Command{}, false
	}
	cmd := s.cmds[0]
	s.cmds = s.cmds[1:]
	return cmd, true
}

// fakeRenderer records everything pushed to the display.
type fakeRenderer struct {
	mu       sync.Mutex
	renders  []State
	overlays []string
	err      error
}

func (r *fakeRenderer) Render(state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, state)
	return r.err
}

func (r *fakeRenderer) Overlay(text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overlays = append(r.overlays, text)
	return r.err
}

func (r *fakeRenderer) lastRender(t *testing.T) State {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.renders) == 0 {
		t.Fatal("nothing rendered")
	}
	return r.renders[len(r.renders)-1]
}

// fakeActuator records invocations and can be told to fail.
type fakeActuator struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (a *fakeActuator) Invoke(ctx context.Context, deviceName, operation string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, deviceName+"/"+operation)
	return a.err
}

// fakeFeatures accepts only "todo".
type fakeFeatures struct {
	mu      sync.Mutex
	entered []string
	cmds    []string
	exited  []string
}

func (f *fakeFeatures) Known(name string) bool { return name == "todo" }

func (f *fakeFeatures) Enter(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entered = append(f.entered, name)
	return nil
}

func (f *fakeFeatures) Command(ctx context.Context, name, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, name+":"+text)
	return nil
}

func (f *fakeFeatures) Exit(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exited = append(f.exited, name)
	return nil
}

type harness struct {
	loop     *Loop
	source   *scriptSource
	renderer *fakeRenderer
	actuator *fakeActuator
	features *fakeFeatures
	registry *device.Registry
	channel  *interrupt.Channel
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	registry := device.NewRegistry(45 * time.Second)
	if err := registry.Upsert(device.Record{
		Name:         "light",
		Kind:         device.KindActuator,
		Label:        "Lights",
		Address:      &device.HostPort{Host: "192.168.1.20", Port: 80},
		Capabilities: []string{"on", "off"},
	}); err != nil {
		t.Fatalf("seeding registry: %v", err)
	}

	features := &fakeFeatures{}
	machine := NewMachine(registry, features.Known, 10*time.Second)

	h := &harness{
		source:   &scriptSource{},
		renderer: &fakeRenderer{},
		actuator: &fakeActuator{},
		features: features,
		registry: registry,
		channel:  interrupt.NewChannel(16),
	}
	h.loop = NewLoop(Options{
		Machine:     machine,
		Interrupts:  h.channel,
		Source:      h.source,
		Renderer:    h.renderer,
		Actuator:    h.actuator,
		Registry:    registry,
		Features:    features,
		PollTimeout: 10 * time.Millisecond,
	})
	h.loop.setState(State{Screen: ScreenIdle, EnteredAt: time.Now()})
	return h
}

func TestEndToEndDeviceControl(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.source.push(Command{Action: ActionActivate, Target: "menu"})
	h.loop.tick(ctx)
	if got := h.loop.State().Screen; got != ScreenMenu {
		t.Fatalf("after wake: screen = %q, want menu", got)
	}

	h.source.push(Command{Action: ActionConnectDevice, Target: "light"})
	h.loop.tick(ctx)
	state := h.loop.State()
	if state.Screen != ScreenDeviceDetail || state.Device != "light" {
		t.Fatalf("after connect: state = %+v", state)
	}

	h.source.push(Command{Action: ActionDeviceAction, Text: "on"})
	h.loop.tick(ctx)

	if len(h.actuator.calls) != 1 || h.actuator.calls[0] != "light/on" {
		t.Errorf("actuator calls = %v, want [light/on]", h.actuator.calls)
	}
	state = h.loop.State()
	if state.Screen != ScreenDeviceDetail || state.Device != "light" {
		t.Errorf("device action changed state: %+v", state)
	}
	if got := h.renderer.lastRender(t).Notice; got != "light on sent" {
		t.Errorf("render notice = %q, want confirmation", got)
	}
}

func TestActuatorFailureMarksUnhealthy(t *testing.T) {
	h := newHarness(t)
	h.actuator.err = errors.New("connection refused")
	h.loop.setState(State{Screen: ScreenDeviceDetail, Device: "light", EnteredAt: time.Now()})

	h.source.push(Command{Action: ActionDeviceAction, Text: "on"})
	h.loop.tick(context.Background())

	rec, err := h.registry.Lookup("light")
	if err != nil {
		t.Fatalf("Lookup(light) error = %v", err)
	}
	if rec.Healthy {
		t.Error("failed actuation should mark the device unhealthy")
	}
	state := h.loop.State()
	if state.Screen != ScreenDeviceDetail {
		t.Errorf("failure changed screen to %q", state.Screen)
	}
	if got := h.renderer.lastRender(t).Notice; got != "light not responding" {
		t.Errorf("render notice = %q, want failure message", got)
	}
}

func TestInterruptsApplyBeforeCommand(t *testing.T) {
	h := newHarness(t)
	h.loop.setState(State{Screen: ScreenMenu, EnteredAt: time.Now()})

	// A device-error for "light" and a command selecting it arrive in
	// the same tick. The interrupt is applied first; selection stays
	// permissive, so the session still reaches the detail screen.
	if err := h.channel.Publish(interrupt.Event{
		Kind:    interrupt.KindDeviceError,
		Payload: map[string]any{"device": "light"},
	}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	h.source.push(Command{Action: ActionConnectDevice, Target: "light"})

	h.loop.tick(context.Background())

	rec, _ := h.registry.Lookup("light")
	if rec.Healthy {
		t.Error("device-error interrupt was not applied")
	}
	state := h.loop.State()
	if state.Screen != ScreenDeviceDetail || state.Device != "light" {
		t.Errorf("state = %+v, want selection to proceed", state)
	}
	if len(h.renderer.overlays) != 1 {
		t.Errorf("overlays = %v, want the fault notice", h.renderer.overlays)
	}
}

func TestMotionOverlayKeepsScreen(t *testing.T) {
	h := newHarness(t)
	h.loop.setState(State{Screen: ScreenFeature, Feature: "todo", EnteredAt: time.Now()})

	if err := h.channel.Publish(interrupt.Event{Kind: interrupt.KindMotionAlert}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	h.loop.tick(context.Background())

	state := h.loop.State()
	if state.Screen != ScreenFeature || state.Feature != "todo" {
		t.Errorf("overlay changed state: %+v", state)
	}
	if len(h.renderer.overlays) != 1 || h.renderer.overlays[0] != "Motion detected" {
		t.Errorf("overlays = %v", h.renderer.overlays)
	}
}

func TestIdleTimeoutWithoutInput(t *testing.T) {
	h := newHarness(t)

	entered := time.Now()
	h.loop.setState(State{Screen: ScreenDeviceDetail, Device: "fan", EnteredAt: entered})
	h.loop.now = func() time.Time { return entered.Add(11 * time.Second) }

	h.loop.tick(context.Background())

	state := h.loop.State()
	if state.Screen != ScreenIdle {
		t.Errorf("screen = %q, want idle after timeout", state.Screen)
	}
	if state.Device != "" {
		t.Errorf("device = %q, want cleared", state.Device)
	}
}

func TestRenderOncePerTick(t *testing.T) {
	h := newHarness(t)
	h.loop.setState(State{Screen: ScreenDeviceList, EnteredAt: time.Now()})

	// Two discovery changes and a command each want a render; the
	// tick must collapse them into one.
	for i := 0; i < 2; i++ {
		if err := h.channel.Publish(interrupt.Event{Kind: interrupt.KindDiscoveryChange}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	h.source.push(Command{Action: ActionBack})

	h.loop.tick(context.Background())

	if len(h.renderer.renders) != 1 {
		t.Errorf("renders = %d, want exactly 1 per tick", len(h.renderer.renders))
	}
}

func TestNoticeClearedOnNextTick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.loop.setState(State{Screen: ScreenDeviceList, EnteredAt: time.Now()})

	// A miss leaves a notice on the device list.
	h.source.push(Command{Action: ActionConnectDevice, Target: "heater"})
	h.loop.tick(ctx)
	if got := h.renderer.lastRender(t).Notice; got != "heater not found" {
		t.Fatalf("render notice = %q, want the miss message", got)
	}

	// A discovery change on the next tick re-renders the list; the
	// old notice must not come back with it.
	if err := h.channel.Publish(interrupt.Event{Kind: interrupt.KindDiscoveryChange}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	h.loop.tick(ctx)

	if len(h.renderer.renders) != 2 {
		t.Fatalf("renders = %d, want 2", len(h.renderer.renders))
	}
	if got := h.renderer.lastRender(t).Notice; got != "" {
		t.Errorf("render notice = %q, want cleared", got)
	}
}

func TestRenderFailureDoesNotStopLoop(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = errors.New("display gone")

	h.source.push(Command{Action: ActionActivate, Target: "menu"})
	h.loop.tick(context.Background())

	// The transition still applied despite the render failure.
	if got := h.loop.State().Screen; got != ScreenMenu {
		t.Errorf("screen = %q, want menu", got)
	}
}

func TestFeatureLifecycleThroughLoop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.source.push(Command{Action: ActionActivate, Target: "todo"})
	h.loop.tick(ctx)
	h.source.push(Command{Action: ActionPassthrough, Text: "add buy milk"})
	h.loop.tick(ctx)
	h.source.push(Command{Action: ActionStop})
	h.loop.tick(ctx)

	if len(h.features.entered) != 1 || h.features.entered[0] != "todo" {
		t.Errorf("entered = %v", h.features.entered)
	}
	if len(h.features.cmds) != 1 || h.features.cmds[0] != "todo:add buy milk" {
		t.Errorf("cmds = %v", h.features.cmds)
	}
	if len(h.features.exited) != 1 || h.features.exited[0] != "todo" {
		t.Errorf("exited = %v", h.features.exited)
	}
	if got := h.loop.State().Screen; got != ScreenIdle {
		t.Errorf("screen = %q, want idle", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.loop.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
