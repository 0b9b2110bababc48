// Package session presents one recording interface over two recognition
// backends and owns the retry, restart and error-normalization policy.
package session

// Event is a transcription update as the controller sees it.
type Event struct {
	Text    string
	IsFinal bool
}

// BackendEvent is what a backend pushes to the manager. Exactly one of
// Transcript, Ended or Err is meaningful. Gen is the manager generation
// the backend was started with; events from superseded sessions are
// discarded by the manager.
type BackendEvent struct {
	Gen        uint64
	Transcript *Event
	Ended      bool
	Err        error
}

// Backend is one recognition environment. Implementations must deliver
// events for a given session in emission order and stop delivering once
// Stop returns.
type Backend interface {
	Name() string

	// Supported is evaluated once at manager construction.
	Supported() bool

	// AutoTerminates reports whether the recognizer ends sessions on its
	// own (and so needs the manager's continuous-mode restart policy).
	AutoTerminates() bool

	// RequestPermission resolves microphone access asynchronously and
	// invokes fn exactly once. err carries the cause of a denial when the
	// platform distinguishes one.
	RequestPermission(fn func(granted bool, err error))

	// Start opens a recognition session tagged with gen. It blocks until
	// the session is live or failed.
	Start(gen uint64) error

	// Stop tears the current session down and blocks until teardown is
	// complete, so a following Start cannot race a dangling tap.
	Stop()

	Events() <-chan BackendEvent
}
