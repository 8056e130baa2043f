// internal/cards/card.go
package cards

import (
	"errors"
	"fmt"
)

// Suit is one of the four French suits.
type Suit string

const (
	Spades   Suit = "spades"
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
)

// Rank is the face of a card, "A" through "K".
type Rank string

const (
	Ace   Rank = "A"
	Two   Rank = "2"
	Three Rank = "3"
	Four  Rank = "4"
	Five  Rank = "5"
	Six   Rank = "6"
	Seven Rank = "7"
	Eight Rank = "8"
	Nine  Rank = "9"
	Ten   Rank = "10"
	Jack  Rank = "J"
	Queen Rank = "Q"
	King  Rank = "K"
)

// Suits and Ranks list the deck domain in build order. Suit order also breaks
// value ties when a hand is sorted.
var (
	Suits = []Suit{Spades, Hearts, Diamonds, Clubs}
	Ranks = []Rank{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

var rankValues = map[Rank]int{
	Ace: 1, Two: 2, Three: 3, Four: 4, Five: 5, Six: 6, Seven: 7,
	Eight: 8, Nine: 9, Ten: 10, Jack: 11, Queen: 12, King: 13,
}

var suitSymbols = map[Suit]string{
	Spades:   "♠",
	Hearts:   "♥",
	Diamonds: "♦",
	Clubs:    "♣",
}

// ErrUnknownCard is returned when a suit or rank lies outside the 52-card domain.
var ErrUnknownCard = errors.New("unknown card")

// Card is an immutable playing card. Two cards are equal iff suit and rank match.
// The zero Card is "no card".
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewCard validates suit and rank.
func NewCard(suit Suit, rank Rank) (Card, error) {
	c := Card{Suit: suit, Rank: rank}
	if !c.Valid() {
		return Card{}, fmt.Errorf("%w: %q of %q", ErrUnknownCard, rank, suit)
	}
	return c, nil
}

// MustCard is NewCard for literals known to be valid.
func MustCard(suit Suit, rank Rank) Card {
	c, err := NewCard(suit, rank)
	if err != nil {
		panic(err)
	}
	return c
}

// Valid reports whether the card belongs to the standard 52-card deck.
func (c Card) Valid() bool {
	_, okSuit := suitSymbols[c.Suit]
	_, okRank := rankValues[c.Rank]
	return okSuit && okRank
}

// IsZero reports whether c is the empty card.
func (c Card) IsZero() bool {
	return c == Card{}
}

// Value is the point value: A=1, 2-10 face, J=11, Q=12, K=13.
func (c Card) Value() int {
	return rankValues[c.Rank]
}

// ID is the stable identity used for selection tracking, e.g. "7-spades".
func (c Card) ID() string {
	return string(c.Rank) + "-" + string(c.Suit)
}

func (c Card) Equals(other Card) bool {
	return c.Suit == other.Suit && c.Rank == other.Rank
}

func (c Card) MatchesRank(other Card) bool {
	return c.Rank == other.Rank
}

// IsJoker reports whether c is the round's designated joker. An empty joker
// matches nothing.
func (c Card) IsJoker(joker Card) bool {
	return !joker.IsZero() && c.Equals(joker)
}

// SuitSymbol returns the glyph for the card's suit.
func (c Card) SuitSymbol() string {
	return suitSymbols[c.Suit]
}

// Color is "red" for hearts and diamonds, "black" otherwise.
func (c Card) Color() string {
	if c.Suit == Hearts || c.Suit == Diamonds {
		return "red"
	}
	return "black"
}

func (c Card) String() string {
	if c.IsZero() {
		return "-"
	}
	return string(c.Rank) + c.SuitSymbol()
}

func suitIndex(s Suit) int {
	for i, v := range Suits {
		if v == s {
			return i
		}
	}
	return len(Suits)
}

// Sum adds card values. Cards equal to joker count 0 when zeroJoker is set.
func Sum(cs []Card, joker Card, zeroJoker bool) int {
	total := 0
	for _, c := range cs {
		if zeroJoker && c.IsJoker(joker) {
			continue
		}
		total += c.Value()
	}
	return total
}

// ContainsJoker reports whether any card in cs is the joker.
func ContainsJoker(cs []Card, joker Card) bool {
	for _, c := range cs {
		if c.IsJoker(joker) {
			return true
		}
	}
	return false
}
