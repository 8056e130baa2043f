package cards

import (
	"math/rand"
)

// DeckSize is the number of cards in a fully reset deck.
const DeckSize = 52

// Deck is an ordered pile. The top of the deck is the end of the slice and the
// bottom is index 0.
type Deck struct {
	cards []Card
}

// NewDeck returns a full, unshuffled deck.
func NewDeck() *Deck {
	d := &Deck{}
	d.Reset()
	return d
}

// DeckFrom rebuilds a deck from an ordered card list (bottom first).
func DeckFrom(cs []Card) *Deck {
	d := &Deck{cards: make([]Card, len(cs))}
	copy(d.cards, cs)
	return d
}

// Reset restores one card per suit and rank in build order.
func (d *Deck) Reset() {
	d.cards = make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			d.cards = append(d.cards, Card{Suit: s, Rank: r})
		}
	}
}

// Shuffle performs a Fisher-Yates shuffle with the given source.
func (d *Deck) Shuffle(r *rand.Rand) {
	r.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw takes up to n cards from the top. Fewer are returned once the deck runs out.
func (d *Deck) Draw(n int) []Card {
	drawn := make([]Card, 0, n)
	for i := 0; i < n && len(d.cards) > 0; i++ {
		last := len(d.cards) - 1
		drawn = append(drawn, d.cards[last])
		d.cards = d.cards[:last]
	}
	return drawn
}

// DrawOne draws the top card; ok is false on an empty deck.
func (d *Deck) DrawOne() (Card, bool) {
	drawn := d.Draw(1)
	if len(drawn) == 0 {
		return Card{}, false
	}
	return drawn[0], true
}

// DrawBottom takes up to n cards from the bottom.
func (d *Deck) DrawBottom(n int) []Card {
	drawn := make([]Card, 0, n)
	for i := 0; i < n && len(d.cards) > 0; i++ {
		drawn = append(drawn, d.cards[0])
		d.cards = d.cards[1:]
	}
	return drawn
}

func (d *Deck) Len() int {
	return len(d.cards)
}

func (d *Deck) IsEmpty() bool {
	return len(d.cards) == 0
}

// Cards returns a copy of the deck contents, bottom first.
func (d *Deck) Cards() []Card {
	out := make([]Card, len(d.cards))
	copy(out, d.cards)
	return out
}
