package voice

import (
	"strings"

	"github.com/iris-glasses/iris-core/internal/session"
)

// operationWords are the device operation commands understood on the
// device detail screen.
var operationWords = map[string]bool{
	"on":     true,
	"off":    true,
	"low":    true,
	"high":   true,
	"status": true,
}

// numberWords normalizes spoken digits for menu selection.
var numberWords = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9",
}

// deviceAliases maps common spoken variants to registry names.
var deviceAliases = map[string]string{
	"lights":    "light",
	"the light": "light",
	"the fan":   "fan",
	"glasses":   "glasses",
	"display":   "pi",
	"screen":    "pi",
}

// Parser turns speech transcripts into session commands.
//
// The parser is stateless: the session machine decides what a command
// means on the current screen, the parser only classifies the words.
// Grammar, in match order:
//
//	<wake phrase>            activate menu
//	stop | exit | deactivate stop
//	back                     back
//	connect                  connect-device (open the list)
//	connect <device>         connect-device with target
//	<feature name or number> activate <feature>
//	<operation word>         device-action
//	anything else            passthrough (for the active feature)
//
// A leading "iris " is stripped first, so "iris connect" and "connect"
// parse the same. The wake phrase itself is never stripped.
type Parser struct {
	wakePhrase string
	features   []string
}

// NewParser creates a parser.
//
// Parameters:
//   - wakePhrase: The phrase that opens the menu ("hey iris")
//   - features: Activatable feature names, in menu order; spoken
//     numbers select by position (1-based)
func NewParser(wakePhrase string, features []string) *Parser {
	return &Parser{
		wakePhrase: strings.ToLower(strings.TrimSpace(wakePhrase)),
		features:   features,
	}
}

// Parse classifies one transcript. The second return is false when the
// transcript is empty; everything else produces a command, with
// passthrough as the catch-all so features can receive free text.
func (p *Parser) Parse(transcript string) (session.Command, bool) {
	text := strings.ToLower(strings.TrimSpace(transcript))
	if text == "" {
		return session.Command{}, false
	}

	// The wake phrase is its own command and survives prefix stripping.
	if strings.Contains(text, p.wakePhrase) {
		return session.Command{Action: session.ActionActivate, Target: "menu"}, true
	}

	text = p.stripPrefix(text)
	if text == "" {
		return session.Command{}, false
	}

	switch text {
	case "stop", "exit", "deactivate":
		return session.Command{Action: session.ActionStop}, true
	case "back":
		return session.Command{Action: session.ActionBack}, true
	case "connect":
		return session.Command{Action: session.ActionConnectDevice}, true
	}

	if rest, found := strings.CutPrefix(text, "connect "); found {
		return session.Command{
			Action: session.ActionConnectDevice,
			Target: canonicalDevice(rest),
		}, true
	}

	if feature, ok := p.matchFeature(text); ok {
		return session.Command{Action: session.ActionActivate, Target: feature}, true
	}

	if operationWords[text] {
		return session.Command{Action: session.ActionDeviceAction, Text: text}, true
	}

	return session.Command{Action: session.ActionPassthrough, Text: text}, true
}

// stripPrefix removes a leading "iris " so prefixed and bare commands
// parse identically.
func (p *Parser) stripPrefix(text string) string {
	if rest, found := strings.CutPrefix(text, "iris "); found {
		return strings.TrimSpace(rest)
	}
	return text
}

// matchFeature resolves a feature by name or spoken menu position.
func (p *Parser) matchFeature(text string) (string, bool) {
	for _, f := range p.features {
		if text == f {
			return f, true
		}
	}

	digit := text
	if d, ok := numberWords[text]; ok {
		digit = d
	}
	if len(digit) == 1 && digit[0] >= '1' && digit[0] <= '9' {
		idx := int(digit[0] - '1')
		if idx < len(p.features) {
			return p.features[idx], true
		}
	}

	return "", false
}

// canonicalDevice maps spoken device variants to registry names.
func canonicalDevice(spoken string) string {
	spoken = strings.TrimSpace(spoken)
	if name, ok := deviceAliases[spoken]; ok {
		return name
	}
	return spoken
}
