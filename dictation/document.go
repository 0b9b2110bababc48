package dictation

import "strings"

// MemDocument is an in-memory Document for tests and the demo shell. Each
// rune remembers whether it was inserted as provisional, which lets tests
// assert that no styled remnants survive a session.
type MemDocument struct {
	runes  []rune
	prov   []bool
	cursor int
}

func NewMemDocument() *MemDocument {
	return &MemDocument{}
}

func (d *MemDocument) DeleteRange(from, to int) {
	if from < 0 {
		from = 0
	}
	if to > len(d.runes) {
		to = len(d.runes)
	}
	if from >= to {
		return
	}
	d.runes = append(d.runes[:from], d.runes[to:]...)
	d.prov = append(d.prov[:from], d.prov[to:]...)
	d.cursor = from
}

func (d *MemDocument) InsertAt(pos int, text string, provisional bool) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(d.runes) {
		pos = len(d.runes)
	}
	ins := []rune(text)
	flags := make([]bool, len(ins))
	for i := range flags {
		flags[i] = provisional
	}
	d.runes = append(d.runes[:pos], append(ins, d.runes[pos:]...)...)
	d.prov = append(d.prov[:pos], append(flags, d.prov[pos:]...)...)
	d.cursor = pos + len(ins)
}

func (d *MemDocument) CurrentSelection() (int, int) {
	return d.cursor, d.cursor
}

// Text returns the whole document.
func (d *MemDocument) Text() string {
	return string(d.runes)
}

// ProvisionalText returns the concatenation of all provisional runes.
func (d *MemDocument) ProvisionalText() string {
	var b strings.Builder
	for i, r := range d.runes {
		if d.prov[i] {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ProvisionalSpans counts contiguous provisional regions.
func (d *MemDocument) ProvisionalSpans() int {
	spans := 0
	in := false
	for _, p := range d.prov {
		if p && !in {
			spans++
		}
		in = p
	}
	return spans
}
