// Package dictation applies transcription events to an editable document,
// tracking the single region of not-yet-final text.
package dictation

import (
	"unicode/utf8"

	"dictate/log"
	"dictate/session"
)

// Document is the text surface the controller mutates. Offsets are rune
// offsets. The controller is a pure consumer: it knows nothing about
// formatting, media or persistence.
type Document interface {
	DeleteRange(from, to int)
	InsertAt(pos int, text string, provisional bool)
	CurrentSelection() (from, to int)
}

// provisionalRange is the one contiguous span currently holding interim
// text. It is deleted, whole, before anything replaces it.
type provisionalRange struct {
	from, to int
	text     string
}

// Controller translates transcript events into document edits. It is not
// safe for concurrent use; the session manager serializes all calls onto
// one goroutine.
type Controller struct {
	doc       Document
	prov      *provisionalRange
	separator string
}

func NewController(doc Document) *Controller {
	return &Controller{doc: doc, separator: " "}
}

// HasProvisional reports whether interim text is on screen.
func (c *Controller) HasProvisional() bool { return c.prov != nil }

// Transcript applies one event. Events must arrive in emission order;
// the controller never reorders or coalesces.
func (c *Controller) Transcript(ev session.Event) {
	if ev.IsFinal {
		c.commit(ev.Text)
	} else {
		c.revise(ev.Text)
	}
}

// revise replaces the provisional span with new interim text.
func (c *Controller) revise(text string) {
	pos := c.clearProvisional()
	if text == "" {
		return
	}
	c.doc.InsertAt(pos, text, true)
	c.prov = &provisionalRange{
		from: pos,
		to:   pos + utf8.RuneCountInString(text),
		text: text,
	}
}

// commit replaces the provisional span with committed text and a trailing
// separator.
func (c *Controller) commit(text string) {
	pos := c.clearProvisional()
	if text == "" {
		return
	}
	committed := text + c.separator
	c.doc.InsertAt(pos, committed, false)
	log.TranscriptionText(text)
}

// clearProvisional deletes the tracked span in one edit and returns the
// insertion position for whatever replaces it.
func (c *Controller) clearProvisional() int {
	if c.prov != nil {
		pos := c.prov.from
		c.doc.DeleteRange(c.prov.from, c.prov.to)
		c.prov = nil
		return pos
	}
	from, _ := c.doc.CurrentSelection()
	return from
}

// SessionStarted satisfies the session listener. SessionEnded already
// settled any provisional text, so a fresh session needs no document work.
func (c *Controller) SessionStarted() {}

// SessionEnded commits any provisional text left when recording stops:
// the styled span is deleted and the same text reinserted as committed
// content, so no draft-looking text is stranded. The trailing separator
// matches what a final event would have produced, so stopping
// mid-utterance and a synthesized final yield the same document.
func (c *Controller) SessionEnded() {
	if c.prov == nil {
		return
	}
	c.commit(c.prov.text)
}

// SessionFailed satisfies the session listener; mutation-wise a failed
// session ends like any other (SessionEnded has already committed any
// provisional text).
func (c *Controller) SessionFailed(err *session.Error) {
	log.Errorf("dictation: session failed: %v", err)
}
