package dictation

import (
	"testing"

	"dictate/session"
)

func interim(text string) session.Event {
	return session.Event{Text: text}
}

func final(text string) session.Event {
	return session.Event{Text: text, IsFinal: true}
}

func TestInterimThenFinal(t *testing.T) {
	doc := NewMemDocument()
	c := NewController(doc)

	c.Transcript(interim("hello"))
	c.Transcript(interim("hello world"))
	c.Transcript(final("hello world"))

	if got := doc.Text(); got != "hello world " {
		t.Fatalf("document = %q, want %q", got, "hello world ")
	}
	if doc.ProvisionalText() != "" {
		t.Fatalf("styled remnants left: %q", doc.ProvisionalText())
	}
	if c.HasProvisional() {
		t.Fatal("provisional range not cleared after final")
	}
}

func TestInterimReplacesPreviousInterim(t *testing.T) {
	doc := NewMemDocument()
	c := NewController(doc)

	c.Transcript(interim("hel"))
	c.Transcript(interim("hello"))

	if got := doc.Text(); got != "hello" {
		t.Fatalf("document = %q, want %q", got, "hello")
	}
	if got := doc.ProvisionalSpans(); got != 1 {
		t.Fatalf("provisional spans = %d, want 1", got)
	}
}

func TestAtMostOneProvisionalRange(t *testing.T) {
	doc := NewMemDocument()
	c := NewController(doc)

	events := []session.Event{
		interim("a"),
		interim("ab"),
		final("ab"),
		interim("c"),
		interim("cd"),
		interim("cde"),
	}
	for _, ev := range events {
		c.Transcript(ev)
		if got := doc.ProvisionalSpans(); got > 1 {
			t.Fatalf("after %+v: %d provisional spans, want at most 1", ev, got)
		}
	}
}

func TestOrderingLaw(t *testing.T) {
	doc := NewMemDocument()
	c := NewController(doc)

	c.Transcript(interim("first dra"))
	c.Transcript(final("first draft"))
	c.Transcript(interim("second"))
	c.Transcript(final("second thought"))
	c.Transcript(final("third"))

	want := "first draft second thought third "
	if got := doc.Text(); got != want {
		t.Fatalf("document = %q, want %q", got, want)
	}
	if doc.ProvisionalText() != "" {
		t.Fatalf("provisional leftovers: %q", doc.ProvisionalText())
	}
}

func TestSessionEndCommitsOpenProvisional(t *testing.T) {
	doc := NewMemDocument()
	c := NewController(doc)

	c.Transcript(interim("checking the"))
	c.SessionEnded()

	if got := doc.Text(); got != "checking the " {
		t.Fatalf("document = %q, want %q", got, "checking the ")
	}
	if doc.ProvisionalText() != "" {
		t.Fatalf("text still styled provisional: %q", doc.ProvisionalText())
	}
	if c.HasProvisional() {
		t.Fatal("provisional range not cleared on session end")
	}
}

func TestSessionEndWithoutProvisionalIsNoop(t *testing.T) {
	doc := NewMemDocument()
	c := NewController(doc)

	c.Transcript(final("done"))
	before := doc.Text()
	c.SessionEnded()
	c.SessionEnded()
	if doc.Text() != before {
		t.Fatalf("document changed by no-op session end: %q", doc.Text())
	}
}

func TestSynthesizedFinalOnStop(t *testing.T) {
	// The bridge synthesizes a final carrying the open interim text when
	// the user stops mid-utterance; the controller then commits it with
	// the separator like any other final.
	doc := NewMemDocument()
	c := NewController(doc)

	c.Transcript(interim("checking the"))
	c.Transcript(final("checking the"))
	c.SessionEnded()

	if got := doc.Text(); got != "checking the " {
		t.Fatalf("document = %q, want %q", got, "checking the ")
	}
}

func TestEmptyInterimClearsRange(t *testing.T) {
	doc := NewMemDocument()
	c := NewController(doc)

	c.Transcript(interim("oops"))
	c.Transcript(interim(""))

	if got := doc.Text(); got != "" {
		t.Fatalf("document = %q, want empty", got)
	}
	if c.HasProvisional() {
		t.Fatal("provisional range should be cleared by empty interim")
	}
}

func TestInsertionAtSelectionWithExistingText(t *testing.T) {
	doc := NewMemDocument()
	doc.InsertAt(0, "notes: ", false)
	c := NewController(doc)

	c.Transcript(interim("buy milk"))
	c.Transcript(final("buy milk"))

	if got := doc.Text(); got != "notes: buy milk " {
		t.Fatalf("document = %q, want %q", got, "notes: buy milk ")
	}
}

func TestMemDocumentDeleteRangeBounds(t *testing.T) {
	doc := NewMemDocument()
	doc.InsertAt(0, "abc", false)
	doc.DeleteRange(-1, 99)
	if doc.Text() != "" {
		t.Fatalf("document = %q, want empty", doc.Text())
	}
	doc.DeleteRange(0, 0) // empty range on empty doc is fine
}
