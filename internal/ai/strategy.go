package ai

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/jason-s-yu/falseshow/internal/cards"
)

// Hard-tier weights.
const (
	safeBonus          = 10.0
	valueWeight        = 0.5
	sequenceCardWeight = 3.0
	earlyJokerPenalty  = 15.0

	jokerHoldHandSize = 5 // above this many cards the joker is saved
	endgameCards      = 3 // at or below this many cards the hard tier dumps value
)

// turn is what a strategy may look at besides the candidates.
type turn struct {
	lastPlay []cards.Card
	joker    cards.Card
	handSize int
	rng      *rand.Rand
}

// strategy picks one of a non-empty list of candidates.
type strategy interface {
	choose(plays []Candidate, t turn) Candidate
}

func newStrategy(d Difficulty) (strategy, error) {
	switch d {
	case Easy:
		return easyStrategy{}, nil
	case Medium:
		return mediumStrategy{}, nil
	case Hard:
		return hardStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown difficulty: %q", d)
	}
}

// safeFirst keeps only the safe candidates when there are any.
func safeFirst(plays []Candidate, last []cards.Card) []Candidate {
	var safe []Candidate
	for _, c := range plays {
		if cards.IsSafePlay(c.Cards, last) {
			safe = append(safe, c)
		}
	}
	if len(safe) > 0 {
		return safe
	}
	return plays
}

type easyStrategy struct{}

func (easyStrategy) choose(plays []Candidate, t turn) Candidate {
	return plays[t.rng.Intn(len(plays))]
}

// mediumStrategy dumps the highest value first, keeping the joker while the
// hand is large.
type mediumStrategy struct{}

func (mediumStrategy) choose(plays []Candidate, t turn) Candidate {
	sorted := make([]Candidate, len(plays))
	copy(sorted, plays)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		aSafe, bSafe := cards.IsSafePlay(a.Cards, t.lastPlay), cards.IsSafePlay(b.Cards, t.lastPlay)
		if aSafe != bSafe {
			return aSafe
		}
		if t.handSize > jokerHoldHandSize {
			aJoker, bJoker := a.hasJoker(t.joker), b.hasJoker(t.joker)
			if aJoker != bJoker {
				return !aJoker
			}
		}
		return a.Value > b.Value
	})
	return sorted[0]
}

type hardStrategy struct{}

func (hardStrategy) choose(plays []Candidate, t turn) Candidate {
	if t.handSize <= endgameCards {
		best := plays[0]
		for _, c := range plays[1:] {
			if c.Value > best.Value {
				best = c
			}
		}
		return best
	}

	best, bestScore := plays[0], hardScore(plays[0], t)
	for _, c := range plays[1:] {
		if s := hardScore(c, t); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}

func hardScore(c Candidate, t turn) float64 {
	score := 0.0
	if cards.IsSafePlay(c.Cards, t.lastPlay) {
		score += safeBonus
	}
	score += float64(c.Value) * valueWeight
	if c.Type == cards.Sequence {
		score += float64(len(c.Cards)) * sequenceCardWeight
	}
	if c.hasJoker(t.joker) && t.handSize > jokerHoldHandSize {
		score -= earlyJokerPenalty
	}
	return score
}
