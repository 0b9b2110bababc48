package main

// EventSink abstracts the display layer so the console frontend and
// tests receive the same recording and transcription events.
type EventSink interface {
	RecordingStart()
	RecordingStop()
	Interim(text string)
	Final(text string)
	DocumentLine(text string)
	SessionError(kind string, message string)
}
