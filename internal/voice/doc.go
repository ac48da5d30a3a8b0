// Package voice turns speech transcripts into session commands.
//
// Speech-to-text happens on the phone; the core only sees transcripts
// on the MQTT transcript topic. The parser classifies each transcript
// into a command (wake phrase, navigation, feature activation, device
// operations, passthrough text) and the MQTT source buffers them for
// the session loop's one-command-per-tick poll.
package voice
