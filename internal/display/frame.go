package display

import (
	"fmt"
	"strings"

	"github.com/iris-glasses/iris-core/internal/device"
	"github.com/iris-glasses/iris-core/internal/session"
)

// Physical contract of the glasses OLED: four rows of 21 characters.
// Anything longer is truncated with an ellipsis before it leaves the
// process.
const (
	// MaxLines is the number of text rows the display can show.
	MaxLines = 4

	// CharsPerLine is the row width in characters.
	CharsPerLine = 21
)

// Frame is one complete display refresh. Lines always holds exactly
// MaxLines entries, each at most CharsPerLine runes.
type Frame struct {
	Lines []string `json:"lines"`
}

// NewFrame builds a frame from the given lines, truncating each to the
// row width and padding or cutting to exactly MaxLines.
func NewFrame(lines ...string) Frame {
	out := make([]string, 0, MaxLines)
	for _, line := range lines {
		if len(out) == MaxLines {
			break
		}
		out = append(out, fitLine(line))
	}
	for len(out) < MaxLines {
		out = append(out, "")
	}
	return Frame{Lines: out}
}

// WrapText word-wraps free text into a frame, dropping whatever does
// not fit on four rows.
func WrapText(text string) Frame {
	words := strings.Fields(text)
	var lines []string
	var current string
	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if len([]rune(candidate)) <= CharsPerLine {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
		}
		current = word
		if len(lines) == MaxLines {
			break
		}
	}
	if current != "" && len(lines) < MaxLines {
		lines = append(lines, current)
	}
	return NewFrame(lines...)
}

// fitLine truncates a row to the display width, replacing the final
// character with an ellipsis when anything was cut.
func fitLine(s string) string {
	runes := []rune(s)
	if len(runes) <= CharsPerLine {
		return s
	}
	return string(runes[:CharsPerLine-1]) + "…"
}

// frameForState renders a session state into a frame. devices is the
// registry snapshot (device list and detail screens); menu is the
// ordered feature list shown on the main menu.
func frameForState(st session.State, devices []device.Record, menu []string) Frame {
	var lines []string
	switch st.Screen {
	case session.ScreenMenu:
		lines = append(lines, "Main Menu")
		for i, name := range menu {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, name))
		}
	case session.ScreenDeviceList:
		lines = append(lines, "Devices")
		if len(devices) == 0 {
			lines = append(lines, "No devices found")
		}
		for i, rec := range devices {
			entry := fmt.Sprintf("%d. %s", i+1, deviceLabel(rec))
			if !rec.Healthy {
				entry += " !"
			}
			lines = append(lines, entry)
		}
	case session.ScreenDeviceDetail:
		lines = detailLines(st.Device, devices)
	case session.ScreenFeature:
		lines = append(lines, st.Feature, "", "Listening...")
	default: // idle
		lines = append(lines, "Iris Smart Glasses", "", "Ready for commands", "Say 'Hey Iris...'")
	}

	frame := NewFrame(lines...)
	if st.Notice != "" {
		frame.Lines[MaxLines-1] = fitLine(st.Notice)
	}
	return frame
}

// detailLines renders the selected-device screen. The record may have
// gone unhealthy, or vanished entirely, between selection and render.
func detailLines(name string, devices []device.Record) []string {
	for _, rec := range devices {
		if rec.Name != name {
			continue
		}
		addr := "unresolved"
		if rec.Address != nil {
			addr = rec.Address.String()
		}
		status := "online"
		if !rec.Healthy {
			status = "offline"
		}
		lines := []string{deviceLabel(rec), addr, status}
		if len(rec.Capabilities) > 0 {
			lines = append(lines, strings.Join(rec.Capabilities, " "))
		}
		return lines
	}
	return []string{name, "not in registry"}
}

func deviceLabel(rec device.Record) string {
	if rec.Label != "" {
		return rec.Label
	}
	return rec.Name
}
