package ai

import (
	"github.com/jason-s-yu/falseshow/internal/cards"
	"github.com/jason-s-yu/falseshow/internal/game"
)

const (
	averageCardValue = 7
	pickupMaxHand    = 6
)

// ChoosePenalty decides how to pay for an unsafe play. Picking up is preferred
// unless the cards on offer are worth more than average or the hand is already
// large.
func (p *Player) ChoosePenalty(state game.GameState, hand *cards.Hand) game.PenaltyChoice {
	prev := state.PreviousPlay
	if prev == nil || len(prev.Cards) == 0 {
		return game.PenaltyDeck
	}
	if prev.Value(state.JokerCard()) > len(prev.Cards)*averageCardValue {
		return game.PenaltyDeck
	}
	if hand.Size() > pickupMaxHand {
		return game.PenaltyDeck
	}
	return game.PenaltyPickup
}
