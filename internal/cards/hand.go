package cards

import "sort"

// Hand is one player's cards plus the set of card ids currently marked for play.
// Cards are kept sorted by value, then suit.
type Hand struct {
	cards    []Card
	selected map[string]struct{}
}

// NewHand builds a sorted hand from the given cards.
func NewHand(cs ...Card) *Hand {
	h := &Hand{selected: make(map[string]struct{})}
	h.Add(cs...)
	return h
}

// Add inserts cards and re-sorts.
func (h *Hand) Add(cs ...Card) {
	h.cards = append(h.cards, cs...)
	h.Sort()
}

// Remove drops the first occurrence of each card. It returns false if any card
// was missing; cards that were present are still removed.
func (h *Hand) Remove(cs ...Card) bool {
	all := true
	for _, c := range cs {
		idx := h.indexOf(c)
		if idx == -1 {
			all = false
			continue
		}
		h.cards = append(h.cards[:idx], h.cards[idx+1:]...)
		delete(h.selected, c.ID())
	}
	return all
}

func (h *Hand) indexOf(c Card) int {
	for i, hc := range h.cards {
		if hc.Equals(c) {
			return i
		}
	}
	return -1
}

// Sort orders by ascending value, breaking ties by suit order.
func (h *Hand) Sort() {
	sort.SliceStable(h.cards, func(i, j int) bool {
		a, b := h.cards[i], h.cards[j]
		if a.Value() != b.Value() {
			return a.Value() < b.Value()
		}
		return suitIndex(a.Suit) < suitIndex(b.Suit)
	})
}

// Cards returns a copy of the hand in sorted order.
func (h *Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

func (h *Hand) Size() int {
	return len(h.cards)
}

func (h *Hand) IsEmpty() bool {
	return len(h.cards) == 0
}

// Has reports whether the hand holds c.
func (h *Hand) Has(c Card) bool {
	return h.indexOf(c) != -1
}

// HasJoker reports whether the hand holds the round's joker.
func (h *Hand) HasJoker(joker Card) bool {
	return !joker.IsZero() && h.Has(joker)
}

// Value is the raw sum of card values.
func (h *Hand) Value() int {
	return Sum(h.cards, Card{}, false)
}

// ValueWithJoker sums card values counting the joker as 0.
func (h *Hand) ValueWithJoker(joker Card) int {
	return Sum(h.cards, joker, true)
}

// ToggleSelection flips the selection state of the card with the given id.
// Ids that are not in the hand are ignored.
func (h *Hand) ToggleSelection(cardID string) {
	if _, ok := h.selected[cardID]; ok {
		delete(h.selected, cardID)
		return
	}
	for _, c := range h.cards {
		if c.ID() == cardID {
			h.selected[cardID] = struct{}{}
			return
		}
	}
}

// Select marks the given cards, ignoring any not held.
func (h *Hand) Select(cs ...Card) {
	for _, c := range cs {
		if h.Has(c) {
			h.selected[c.ID()] = struct{}{}
		}
	}
}

func (h *Hand) ClearSelection() {
	h.selected = make(map[string]struct{})
}

// Selected returns the selected cards in hand order.
func (h *Hand) Selected() []Card {
	var out []Card
	for _, c := range h.cards {
		if _, ok := h.selected[c.ID()]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (h *Hand) SelectionSize() int {
	return len(h.selected)
}

func (h *Hand) CanPlaySingle() bool {
	return len(h.selected) == 1
}

// CanPlayPair ignores the joker; use ValidPlay for joker-aware checks.
func (h *Hand) CanPlayPair() bool {
	sel := h.Selected()
	return len(sel) == 2 && sel[0].MatchesRank(sel[1])
}

// CanPlaySequence checks a joker-free same-suit run of three or more.
func (h *Hand) CanPlaySequence() bool {
	sel := h.Selected()
	if len(sel) < 3 {
		return false
	}
	v, err := ValidatePlay(sel, Card{})
	return err == nil && v.Type == Sequence
}

// ValidPlay classifies the current selection against the round's joker.
func (h *Hand) ValidPlay(joker Card) (Validation, error) {
	return ValidatePlay(h.Selected(), joker)
}

// Clone returns an independent copy, selection included.
func (h *Hand) Clone() *Hand {
	c := &Hand{
		cards:    h.Cards(),
		selected: make(map[string]struct{}, len(h.selected)),
	}
	for id := range h.selected {
		c.selected[id] = struct{}{}
	}
	return c
}
