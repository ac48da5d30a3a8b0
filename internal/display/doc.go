// Package display renders session state onto the glasses OLED.
//
// The physical display is a 4x21 character panel driven by a small
// server on the Pi. This package owns the text contract (Frame,
// truncation, word wrap) and the transport: a persistent TCP client
// sending one JSON frame per line, reconnecting transparently when
// the server restarts.
//
// The Client implements the session Renderer interface. Rendering is
// best-effort throughout; a dead display never stalls the session.
package display
