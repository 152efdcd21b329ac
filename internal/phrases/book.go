package phrases

import (
	"sort"
	"sync"

	"github.com/soyle-app/soyle/internal/gesture"
)

// Entry is one resolved phrase.
type Entry struct {
	Label      gesture.Label `json:"label"`
	Text       string        `json:"text"`
	Overridden bool          `json:"overridden"`
}

// Book is a Phrasebook whose phrases can be overridden at runtime, e.g. from
// the HTTP API, while a session keeps reading it.
type Book struct {
	mu        sync.RWMutex
	base      Table
	overrides Table
}

// NewBook creates a book over a copy of base.
func NewBook(base Table) *Book {
	return &Book{
		base:      base.Clone(),
		overrides: make(Table),
	}
}

// Phrase implements stability.Phrasebook.
func (b *Book) Phrase(label gesture.Label) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if p, ok := b.overrides[label]; ok {
		return p, true
	}
	p, ok := b.base[label]
	return p, ok
}

// Set overrides the phrase for label.
func (b *Book) Set(label gesture.Label, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[label] = text
}

// Reset drops the override for label and reports whether one existed.
func (b *Book) Reset(label gesture.Label) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.overrides[label]
	delete(b.overrides, label)
	return ok
}

// Entries returns every resolved phrase sorted by label.
func (b *Book) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	seen := make(map[gesture.Label]bool)
	var out []Entry
	for label, text := range b.overrides {
		seen[label] = true
		out = append(out, Entry{Label: label, Text: text, Overridden: true})
	}
	for label, text := range b.base {
		if !seen[label] {
			out = append(out, Entry{Label: label, Text: text})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// Snapshot returns the resolved table.
func (b *Book) Snapshot() Table {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t := b.base.Clone()
	for label, text := range b.overrides {
		t[label] = text
	}
	return t
}
