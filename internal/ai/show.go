package ai

import "github.com/jason-s-yu/falseshow/internal/game"

const (
	maxShowCards        = 5
	bluffChance         = 0.1
	bluffMaxValue       = 15
	loadedOpponentCards = 4
)

// shouldCallShow applies the tier's Show thresholds. value counts the joker as 0.
func (p *Player) shouldCallShow(state game.GameState, value, cardsLeft int) bool {
	if cardsLeft > maxShowCards {
		return false
	}

	switch p.Difficulty {
	case Easy:
		return value <= 5 && cardsLeft <= 2

	case Medium:
		if value <= 3 {
			return true
		}
		return value <= 8 && cardsLeft <= 2

	case Hard:
		switch {
		case value == 0:
			return true
		case value <= 5 && cardsLeft <= 3:
			return true
		case value <= 10 && cardsLeft == 1:
			return true
		}
		return opponentsLoaded(state, p.ID) && value <= bluffMaxValue && p.rng.Float64() < bluffChance
	}
	return false
}

// opponentsLoaded reports whether the other active players average four or
// more cards. With no opponents it is false.
func opponentsLoaded(state game.GameState, selfID string) bool {
	opps := state.Opponents(selfID)
	if len(opps) == 0 {
		return false
	}
	total := 0
	for _, o := range opps {
		total += o.HandSize
	}
	return float64(total)/float64(len(opps)) >= loadedOpponentCards
}
