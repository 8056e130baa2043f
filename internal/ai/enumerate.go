package ai

import "github.com/jason-s-yu/falseshow/internal/cards"

// Candidate is one legal play found in a hand.
type Candidate struct {
	Type  cards.PlayType
	Cards []cards.Card
	Value int // joker counts 0
}

func (c Candidate) hasJoker(joker cards.Card) bool {
	return cards.ContainsJoker(c.Cards, joker)
}

// Enumerate lists every single, every pair (same rank or involving the joker)
// and the same-suit runs found by scanning forward from each card. The run
// scan is greedy: from each start it extends with the next same-suit card one
// value higher, or the joker, skipping anything else, and records every prefix
// of length three or more. Runs that need a skipped start are not found.
func Enumerate(hand []cards.Card, joker cards.Card) []Candidate {
	var out []Candidate

	for _, c := range hand {
		out = append(out, newCandidate(cards.Single, joker, c))
	}

	for i := 0; i < len(hand)-1; i++ {
		for j := i + 1; j < len(hand); j++ {
			a, b := hand[i], hand[j]
			if a.MatchesRank(b) || a.IsJoker(joker) || b.IsJoker(joker) {
				out = append(out, newCandidate(cards.Pair, joker, a, b))
			}
		}
	}

	for i := 0; i < len(hand)-2; i++ {
		run := []cards.Card{hand[i]}
		suit := hand[i].Suit
		lastValue := hand[i].Value()
		for j := i + 1; j < len(hand); j++ {
			next := hand[j]
			isJoker := next.IsJoker(joker)
			if !(isJoker || (next.Suit == suit && next.Value() == lastValue+1)) {
				continue
			}
			run = append(run, next)
			if isJoker {
				lastValue++
			} else {
				lastValue = next.Value()
			}
			if len(run) >= 3 {
				out = append(out, newCandidate(cards.Sequence, joker, run...))
			}
		}
	}

	return out
}

func newCandidate(t cards.PlayType, joker cards.Card, cs ...cards.Card) Candidate {
	own := make([]cards.Card, len(cs))
	copy(own, cs)
	return Candidate{Type: t, Cards: own, Value: cards.Sum(own, joker, true)}
}
