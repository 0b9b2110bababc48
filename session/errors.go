package session

import (
	"errors"
	"fmt"
	"time"

	"dictate/audio"
	"dictate/recognizer"
)

// Kind classifies session-terminating errors. Every backend error is
// normalized to one of these before it reaches the controller or the UI.
type Kind int

const (
	KindPermissionDenied Kind = iota
	KindNoMicrophone
	KindNetworkFailure
	KindEngineStartFailed
	KindTapInstallFailed
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindNoMicrophone:
		return "no_microphone"
	case KindNetworkFailure:
		return "network_failure"
	case KindEngineStartFailed:
		return "engine_start_failed"
	case KindTapInstallFailed:
		return "tap_install_failed"
	case KindUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// ErrPermission marks a start refused because microphone permission is
// missing.
var ErrPermission = errors.New("microphone permission denied")

// Error is the one error type crossing the manager boundary.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Sticky errors stay visible until the user dismisses them; retrying
// cannot succeed without the user changing something.
func (e *Error) Sticky() bool {
	return e.Kind == KindPermissionDenied || e.Kind == KindUnsupported
}

// ClearAfter is how long a surface should show the error before
// auto-clearing. Zero for sticky errors.
func (e *Error) ClearAfter() time.Duration {
	switch e.Kind {
	case KindNoMicrophone:
		return 4 * time.Second
	case KindNetworkFailure:
		return 10 * time.Second
	case KindEngineStartFailed, KindTapInstallFailed:
		return 6 * time.Second
	default:
		return 0
	}
}

// Message is the user-facing text for this error.
func (e *Error) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Microphone access denied. Enable it in system settings to use dictation."
	case KindNoMicrophone:
		return "No microphone found."
	case KindNetworkFailure:
		return "Could not reach the speech service. Check your connection and try again."
	case KindUnsupported:
		return "Dictation is not available in this environment."
	default:
		return "Failed to start dictation."
	}
}

// normalize maps raw backend errors onto the taxonomy. Errors already
// classified pass through unchanged.
func normalize(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	switch {
	case errors.Is(err, ErrPermission):
		return &Error{Kind: KindPermissionDenied, Err: err}
	case errors.Is(err, audio.ErrNoDevice):
		return &Error{Kind: KindNoMicrophone, Err: err}
	case recognizer.IsNetwork(err):
		return &Error{Kind: KindNetworkFailure, Err: err}
	case errors.Is(err, audio.ErrTapInstall):
		return &Error{Kind: KindTapInstallFailed, Err: err}
	default:
		return &Error{Kind: KindEngineStartFailed, Err: err}
	}
}
