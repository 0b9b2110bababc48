package main

import (
	"fmt"

	"dictate/dictation"
	"dictate/session"
)

// consoleSink renders session events to stdout.
type consoleSink struct{}

func (consoleSink) RecordingStart() { fmt.Println("* recording (enter to stop)") }
func (consoleSink) RecordingStop()  { fmt.Println("* stopped") }

func (consoleSink) Interim(text string) {
	fmt.Printf("\r  ... %s\033[K", text)
}

func (consoleSink) Final(text string) {
	fmt.Printf("\r\033[K  %s\n", text)
}

func (consoleSink) DocumentLine(text string) {
	fmt.Printf("> %s\n", text)
}

func (consoleSink) SessionError(kind string, message string) {
	fmt.Printf("\r\033[K! %s: %s\n", kind, message)
}

// frontend fans session output out to the dictation controller and the
// display sink. The manager invokes it from a single goroutine, so the
// document and the console stay consistent with each other.
type frontend struct {
	ctrl *dictation.Controller
	doc  *dictation.MemDocument
	sink EventSink
}

func newFrontend(sink EventSink) *frontend {
	doc := dictation.NewMemDocument()
	return &frontend{
		ctrl: dictation.NewController(doc),
		doc:  doc,
		sink: sink,
	}
}

// SessionStarted fires from the manager once the backend is live, so the
// recording banner never shows for a start that failed its permission or
// network checks.
func (f *frontend) SessionStarted() {
	f.ctrl.SessionStarted()
	f.sink.RecordingStart()
}

func (f *frontend) Transcript(ev session.Event) {
	f.ctrl.Transcript(ev)
	if ev.IsFinal {
		f.sink.Final(ev.Text)
	} else {
		f.sink.Interim(ev.Text)
	}
}

func (f *frontend) SessionEnded() {
	f.ctrl.SessionEnded()
	f.sink.RecordingStop()
	if text := f.doc.Text(); text != "" {
		f.sink.DocumentLine(text)
	}
}

func (f *frontend) SessionFailed(err *session.Error) {
	f.ctrl.SessionFailed(err)
	f.sink.SessionError(err.Kind.String(), err.Message())
}
