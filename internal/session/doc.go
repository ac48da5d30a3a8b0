// Package session is the coordination core of Iris: the command state
// machine and the loop that drives it.
//
// Three timing domains meet here. Background discovery refreshes the
// device registry on its own schedule, sensors push interrupt events
// whenever they like, and voice commands arrive in synchronous turns.
// The loop reconciles them by being the single writer: interrupts are
// drained first each tick, then at most one command is applied against
// the post-interrupt state, then the idle timeout is evaluated.
//
// The machine itself is pure. It maps (state, input) to (next state,
// effect instructions) and performs nothing; the loop executes the
// effects against the display, actuator, feature, and registry
// collaborators, logging failures instead of dying. The only blocking
// wait anywhere is the bounded voice-command poll.
package session
