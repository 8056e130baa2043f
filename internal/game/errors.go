// internal/game/errors.go
package game

import "errors"

// Engine rejections. Every mutating Engine method reports one of these (possibly
// wrapped) instead of panicking; match with errors.Is.
var (
	ErrInvalidPlayer = errors.New("invalid player")
	ErrNotYourTurn   = errors.New("not your turn")
	ErrInvalidPlay   = errors.New("invalid play")
	ErrCardNotInHand = errors.New("card not in hand")

	ErrRoundNotActive  = errors.New("round is not in progress")
	ErrRoundInProgress = errors.New("round already in progress")
	ErrGameOver        = errors.New("game is over")

	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrTooManyPlayers   = errors.New("too many players")

	ErrPenaltyPending       = errors.New("penalty choice pending")
	ErrNoPenaltyPending     = errors.New("no penalty choice pending")
	ErrInvalidPenaltyChoice = errors.New("invalid penalty choice")

	ErrInvalidSnapshot = errors.New("invalid snapshot")
)
