// Package feature hosts the voice-driven features the session can
// activate from the main menu.
//
// A Feature owns the display while active: the session forwards every
// passthrough transcript to it and calls OnExit when the user stops,
// navigates back, or times out. The Registry holds the registered
// features and is what the session loop dispatches through; its
// registration order is the menu order.
//
// The built-in todo feature keeps its list in sqlite through the
// database package, so items survive restarts.
package feature
