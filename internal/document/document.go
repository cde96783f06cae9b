// Package document defines the fragment-list document whose edits the rewind
// CLI tracks. Every method returns a new Document and leaves the receiver
// untouched, so values can be kept in a history safely
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type (
	// Document is a titled, ordered list of text fragments
	Document struct {
		Title     string     `json:"title" yaml:"title"`
		Fragments []Fragment `json:"fragments" yaml:"fragments"`
	}

	// Fragment is one block of a Document's text
	Fragment struct {
		ID   string `json:"id" yaml:"id"`
		Text string `json:"text" yaml:"text"`
	}
)

// ErrNoSuchFragment indicates a fragment index outside the Document
var ErrNoSuchFragment = errors.New("no such fragment")

// New returns an empty Document with the given title
func New(title string) Document {
	return Document{
		Title:     title,
		Fragments: []Fragment{},
	}
}

// Append returns a copy of the Document with a new fragment at the end
func (d Document) Append(text string) Document {
	res := d.clone(len(d.Fragments) + 1)
	res.Fragments = append(res.Fragments, Fragment{
		ID:   uuid.NewString(),
		Text: text,
	})
	return res
}

// Edit returns a copy of the Document with fragment i's text replaced
func (d Document) Edit(i int, text string) (Document, error) {
	if err := d.checkIndex(i); err != nil {
		return d, err
	}
	res := d.clone(len(d.Fragments))
	res.Fragments[i].Text = text
	return res, nil
}

// Remove returns a copy of the Document without fragment i
func (d Document) Remove(i int) (Document, error) {
	if err := d.checkIndex(i); err != nil {
		return d, err
	}
	res := d.clone(len(d.Fragments))
	res.Fragments = append(res.Fragments[:i], res.Fragments[i+1:]...)
	return res, nil
}

// Retitle returns a copy of the Document with a new title
func (d Document) Retitle(title string) Document {
	res := d.clone(len(d.Fragments))
	res.Title = title
	return res
}

// Markdown renders the Document as the preview layer displays it
func (d Document) Markdown() string {
	var buf strings.Builder
	if d.Title != "" {
		buf.WriteString("# ")
		buf.WriteString(d.Title)
		buf.WriteString("\n")
	}
	for _, f := range d.Fragments {
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(f.Text)
		buf.WriteString("\n")
	}
	return buf.String()
}

// Equal compares two Documents, treating nil and empty fragment lists as
// the same
func Equal(a, b Document) bool {
	if a.Title != b.Title || len(a.Fragments) != len(b.Fragments) {
		return false
	}
	for i, f := range a.Fragments {
		if b.Fragments[i] != f {
			return false
		}
	}
	return true
}

func (d Document) clone(capacity int) Document {
	frags := make([]Fragment, len(d.Fragments), capacity)
	copy(frags, d.Fragments)
	return Document{
		Title:     d.Title,
		Fragments: frags,
	}
}

func (d Document) checkIndex(i int) error {
	if i < 0 || i >= len(d.Fragments) {
		return fmt.Errorf("%w: %d of %d", ErrNoSuchFragment, i, len(d.Fragments))
	}
	return nil
}
