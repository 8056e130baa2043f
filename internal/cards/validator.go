package cards

import (
	"errors"
	"sort"
)

// PlayType classifies a legal discard.
type PlayType string

const (
	Single   PlayType = "single"
	Pair     PlayType = "pair"
	Sequence PlayType = "sequence"
)

// Validator rejections. Messages are shown to players as-is.
var (
	ErrNoCardsSelected = errors.New("no cards selected")
	ErrInvalidPair     = errors.New("not a valid pair")
	ErrMixedSuits      = errors.New("sequence must be same suit")
	ErrNotSequential   = errors.New("cards must be sequential")
	ErrInvalidPlay     = errors.New("invalid play")
)

// Validation is the outcome of a successful ValidatePlay.
type Validation struct {
	Type     PlayType
	HasJoker bool
}

// ValidatePlay classifies selected cards as a single, pair or sequence.
//
// A pair is two cards of one rank, or any two cards when one is the joker. A
// sequence is three or more cards of one suit with consecutive values; the joker
// is exempt from the suit check and, when present, is assumed to fill any gap.
func ValidatePlay(selected []Card, joker Card) (Validation, error) {
	if len(selected) == 0 {
		return Validation{}, ErrNoCardsSelected
	}
	hasJoker := ContainsJoker(selected, joker)

	switch n := len(selected); {
	case n == 1:
		return Validation{Type: Single, HasJoker: hasJoker}, nil

	case n == 2:
		if selected[0].MatchesRank(selected[1]) || hasJoker {
			return Validation{Type: Pair, HasJoker: hasJoker}, nil
		}
		return Validation{}, ErrInvalidPair

	case n >= 3:
		sorted := make([]Card, n)
		copy(sorted, selected)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Value() < sorted[j].Value()
		})

		var suit Suit
		for _, c := range sorted {
			if c.IsJoker(joker) {
				continue
			}
			if suit == "" {
				suit = c.Suit
				continue
			}
			if c.Suit != suit {
				return Validation{}, ErrMixedSuits
			}
		}

		// any joker makes a same-suit run valid, whatever the gaps
		if hasJoker {
			return Validation{Type: Sequence, HasJoker: true}, nil
		}
		for i := 1; i < len(sorted); i++ {
			if sorted[i].Value() != sorted[i-1].Value()+1 {
				return Validation{}, ErrNotSequential
			}
		}
		return Validation{Type: Sequence}, nil
	}

	return Validation{}, ErrInvalidPlay
}

// IsSafePlay reports whether played shares a rank with previous. With no
// previous play every play is safe.
func IsSafePlay(played, previous []Card) bool {
	if len(previous) == 0 {
		return true
	}
	for _, p := range played {
		for _, prev := range previous {
			if p.MatchesRank(prev) {
				return true
			}
		}
	}
	return false
}
