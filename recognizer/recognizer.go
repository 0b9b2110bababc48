// Package recognizer turns streams of PCM16 audio into incremental
// transcription results.
package recognizer

import (
	"context"
	"errors"
)

// Result is one incremental recognition update. Interim results may be
// revised by later results; a final result is never revised. Err is set on
// the last result of a failed task.
type Result struct {
	Text  string
	Final bool
	Err   error
}

// Task is one live recognition attempt. Feed never blocks the audio
// thread; Results is closed when the task ends, benignly or not.
type Task interface {
	Feed(pcm []byte)
	Results() <-chan Result
	Close() error
}

// Config describes the audio the task will receive.
type Config struct {
	SampleRate int
	Channels   int
	Language   string
	Model      string
}

// Factory creates recognition tasks.
type Factory interface {
	Name() string
	Available() bool
	NewTask(ctx context.Context, cfg Config) (Task, error)
}

// ErrNetwork marks failures of the transport to the recognition backend.
// Callers retry these within a small budget before surfacing them.
var ErrNetwork = errors.New("recognizer network failure")

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}
