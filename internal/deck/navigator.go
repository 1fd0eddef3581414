package deck

// Navigator holds a clamped position within a deck. It has no side effects
// beyond its own index.
type Navigator struct {
	deck  *Deck
	index int
}

// NewNavigator starts at the first slide
func NewNavigator(d *Deck) *Navigator {
	return &Navigator{deck: d}
}

// Deck returns the deck being navigated
func (n *Navigator) Deck() *Deck { return n.deck }

// Index returns the current position
func (n *Navigator) Index() int { return n.index }

// Current returns the slide at the current position
func (n *Navigator) Current() Slide {
	s, _ := n.deck.At(n.index)
	return s
}

// AtLast reports whether the current slide is the last one
func (n *Navigator) AtLast() bool {
	return n.index == n.deck.Len()-1
}

// Next moves forward one slide; it is a no-op on the last slide
func (n *Navigator) Next() (int, bool) {
	return n.Seek(n.index + 1)
}

// Previous moves back one slide; it is a no-op on the first slide
func (n *Navigator) Previous() (int, bool) {
	return n.Seek(n.index - 1)
}

// Seek jumps to index i. Out-of-range targets leave the position unchanged.
func (n *Navigator) Seek(i int) (int, bool) {
	if i < 0 || i >= n.deck.Len() || i == n.index {
		return n.index, false
	}
	n.index = i
	return n.index, true
}
