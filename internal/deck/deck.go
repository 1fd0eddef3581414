// Package deck loads slide decks from the presentation API and tracks the
// presenter's position in them.
package deck

import (
	"fmt"
	"strings"
)

// Slide is one immutable slide as served by the presentation API
type Slide struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Narration string `json:"tts,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// SpeakText returns the narration script, falling back to the slide content
func (s Slide) SpeakText() string {
	if strings.TrimSpace(s.Narration) != "" {
		return s.Narration
	}
	return s.Content
}

// Deck is an ordered, read-only list of slides with unique ids
type Deck struct {
	name   string
	lang   string
	slides []Slide
}

// New validates slides and builds a deck in the given order
func New(name, language string, slides []Slide) (*Deck, error) {
	if len(slides) == 0 {
		return nil, fmt.Errorf("deck has no slides")
	}

	seen := make(map[int]bool, len(slides))
	for i, s := range slides {
		if s.ID < 1 {
			return nil, fmt.Errorf("slide at position %d has invalid id %d", i, s.ID)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate slide id %d", s.ID)
		}
		seen[s.ID] = true
	}

	owned := make([]Slide, len(slides))
	copy(owned, slides)
	return &Deck{name: name, lang: language, slides: owned}, nil
}

// Name returns the deck name requested at load time (may be empty)
func (d *Deck) Name() string { return d.name }

// Language returns the deck language
func (d *Deck) Language() string { return d.lang }

// Len returns the number of slides
func (d *Deck) Len() int { return len(d.slides) }

// At returns the slide at index i
func (d *Deck) At(i int) (Slide, bool) {
	if i < 0 || i >= len(d.slides) {
		return Slide{}, false
	}
	return d.slides[i], true
}

// Slides returns a copy of the slide list
func (d *Deck) Slides() []Slide {
	out := make([]Slide, len(d.slides))
	copy(out, d.slides)
	return out
}
