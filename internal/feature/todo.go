package feature

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/iris-glasses/iris-core/internal/display"
)

// Logger is the minimal logging interface features need.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Screen is where a feature draws while it owns the display.
// Satisfied by the display client.
type Screen interface {
	Send(frame display.Frame) error
}

// Speaker voices feedback lines. Satisfied by any session speaker.
type Speaker interface {
	Say(text string) error
}

// Cursor and status markers in the todo list rendering.
const (
	cursorMark     = ">"
	incompleteMark = "o"
	completeMark   = "x"
)

// Todo is the voice-driven todo list. Items persist in sqlite; the
// cursor is per-activation state and starts at the first item.
//
// Commands: "add <text>", "done", "next", "previous", "delete",
// "clear done".
type Todo struct {
	store   *TodoStore
	screen  Screen
	speaker Speaker
	logger  Logger

	mu     sync.Mutex
	items  []Item
	cursor int
}

// NewTodo creates the todo feature. screen and speaker may be nil.
func NewTodo(store *TodoStore, screen Screen, speaker Speaker) *Todo {
	return &Todo{
		store:   store,
		screen:  screen,
		speaker: speaker,
		logger:  noopLogger{},
	}
}

// SetLogger replaces the no-op logger.
func (f *Todo) SetLogger(logger Logger) {
	if logger != nil {
		f.logger = logger
	}
}

// Name returns the name the feature is activated by.
func (f *Todo) Name() string { return "todo" }

// OnEnter loads the persisted list and draws it.
func (f *Todo) OnEnter(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.reloadLocked(ctx); err != nil {
		return err
	}
	f.cursor = 0
	f.renderLocked()
	return nil
}

// OnExit releases the display. Nothing to persist; every command
// already wrote through.
func (f *Todo) OnExit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.cursor = 0
	return nil
}

// OnCommand handles one passthrough transcript.
func (f *Todo) OnCommand(ctx context.Context, text string) error {
	command := strings.ToLower(strings.TrimSpace(text))
	if command == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasPrefix(command, "add "):
		return f.addLocked(ctx, strings.TrimSpace(command[len("add "):]))
	case command == "done" || command == "complete":
		return f.doneLocked(ctx)
	case command == "next":
		return f.moveLocked(1)
	case command == "previous":
		return f.moveLocked(-1)
	case command == "delete":
		return f.deleteLocked(ctx)
	case command == "clear done":
		return f.clearDoneLocked(ctx)
	default:
		f.logger.Debug("unknown todo command", "command", command)
		f.say("Command not recognized")
		return nil
	}
}

func (f *Todo) addLocked(ctx context.Context, text string) error {
	if text == "" {
		f.say("Cannot add empty todo")
		return nil
	}
	if _, err := f.store.Add(ctx, text); err != nil {
		return err
	}
	if err := f.reloadLocked(ctx); err != nil {
		return err
	}
	f.cursor = len(f.items) - 1
	f.renderLocked()
	f.say("Added: " + text)
	return nil
}

func (f *Todo) doneLocked(ctx context.Context) error {
	if len(f.items) == 0 {
		f.say("No items to complete")
		return nil
	}
	if err := f.store.MarkDone(ctx, f.items[f.cursor].ID); err != nil {
		return err
	}
	f.items[f.cursor].Done = true
	f.renderLocked()
	f.say("Marked complete")
	return nil
}

func (f *Todo) moveLocked(step int) error {
	if len(f.items) == 0 {
		f.say("No items")
		return nil
	}
	n := len(f.items)
	f.cursor = ((f.cursor+step)%n + n) % n
	f.renderLocked()

	current := f.items[f.cursor]
	status := "incomplete"
	if current.Done {
		status = "completed"
	}
	f.say(current.Text + ", " + status)
	return nil
}

func (f *Todo) deleteLocked(ctx context.Context) error {
	if len(f.items) == 0 {
		f.say("No items to delete")
		return nil
	}
	deleted := f.items[f.cursor]
	if err := f.store.Delete(ctx, deleted.ID); err != nil {
		return err
	}
	if err := f.reloadLocked(ctx); err != nil {
		return err
	}
	f.clampCursorLocked()
	f.renderLocked()
	f.say("Deleted: " + deleted.Text)
	return nil
}

func (f *Todo) clearDoneLocked(ctx context.Context) error {
	removed, err := f.store.ClearDone(ctx)
	if err != nil {
		return err
	}
	if removed == 0 {
		f.say("No completed items")
		return nil
	}
	if err := f.reloadLocked(ctx); err != nil {
		return err
	}
	f.clampCursorLocked()
	f.renderLocked()
	plural := "s"
	if removed == 1 {
		plural = ""
	}
	f.say(fmt.Sprintf("Cleared %d completed item%s", removed, plural))
	return nil
}

func (f *Todo) reloadLocked(ctx context.Context) error {
	items, err := f.store.List(ctx)
	if err != nil {
		return err
	}
	f.items = items
	return nil
}

func (f *Todo) clampCursorLocked() {
	if f.cursor >= len(f.items) {
		f.cursor = len(f.items) - 1
	}
	if f.cursor < 0 {
		f.cursor = 0
	}
}

// renderLocked draws the list window around the cursor. Display
// failures are logged; the list state is already consistent.
func (f *Todo) renderLocked() {
	if f.screen == nil {
		return
	}
	frame := display.NewFrame(f.linesLocked()...)
	if err := f.screen.Send(frame); err != nil {
		f.logger.Warn("todo render failed", "error", err)
	}
}

func (f *Todo) linesLocked() []string {
	if len(f.items) == 0 {
		return []string{
			"  No todos!",
			"  Say 'add [item]'",
			"  to create one",
		}
	}

	start, end := f.windowLocked(display.MaxLines)
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := f.items[i]
		cursor := " "
		if i == f.cursor {
			cursor = cursorMark
		}
		status := incompleteMark
		if item.Done {
			status = completeMark
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", cursor, status, item.Text))
	}
	return lines
}

// windowLocked returns the [start, end) slice of items to show,
// centered on the cursor when the list is longer than the display.
func (f *Todo) windowLocked(max int) (int, int) {
	total := len(f.items)
	if total <= max {
		return 0, total
	}
	start := f.cursor - max/2
	if start < 0 {
		start = 0
	}
	end := start + max
	if end > total {
		end = total
		start = end - max
	}
	return start, end
}

func (f *Todo) say(text string) {
	if f.speaker == nil {
		return
	}
	if err := f.speaker.Say(text); err != nil {
		f.logger.Warn("todo feedback failed", "error", err)
	}
}
