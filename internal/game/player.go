// internal/game/player.go
package game

import "github.com/jason-s-yu/falseshow/internal/cards"

// State is the lifecycle of a game.
type State string

const (
	StateWaiting  State = "waiting"
	StatePlaying  State = "playing"
	StateRoundEnd State = "roundEnd"
	StateGameOver State = "gameOver"
)

func (s State) valid() bool {
	switch s {
	case StateWaiting, StatePlaying, StateRoundEnd, StateGameOver:
		return true
	}
	return false
}

// DealerID attributes the opening card of a round.
const (
	DealerID   = "dealer"
	DealerName = "Initial Card"
)

// PlayerInfo seats a player at Initialize.
type PlayerInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	IsBot  bool   `json:"isBot"`
}

// Player is the engine's record of a seated player.
type Player struct {
	ID              string
	Name            string
	Avatar          string
	IsBot           bool
	Score           int
	IsEliminated    bool
	HasDrawnPenalty bool
	Hand            *cards.Hand
}

// Play is one accepted discard, or the dealer's opening card.
type Play struct {
	PlayerID   string         `json:"playerId"`
	PlayerName string         `json:"playerName"`
	Cards      []cards.Card   `json:"cards"`
	Type       cards.PlayType `json:"type"`
	IsSafe     bool           `json:"isSafe"`
	Timestamp  int64          `json:"timestamp"` // unix millis
}

func (p *Play) clone() *Play {
	if p == nil {
		return nil
	}
	c := *p
	c.Cards = make([]cards.Card, len(p.Cards))
	copy(c.Cards, p.Cards)
	return &c
}

// Value sums the play's cards, counting the joker as 0.
func (p *Play) Value(joker cards.Card) int {
	if p == nil {
		return 0
	}
	return cards.Sum(p.Cards, joker, true)
}

// PenaltyChoice is how a pending penalty is paid.
type PenaltyChoice string

const (
	PenaltyDeck   PenaltyChoice = "deck"   // draw one card blind
	PenaltyPickup PenaltyChoice = "pickup" // take back the play the unsafe play answered
)

// PendingPenalty marks a player who made an unsafe play under Settings.PenaltyChoice.
type PendingPenalty struct {
	PlayerID string `json:"playerId"`
}

// RoundStart describes a freshly dealt round.
type RoundStart struct {
	RoundNumber   int            `json:"roundNumber"`
	Joker         cards.Card     `json:"joker"`
	JokerOptions  []cards.Card   `json:"jokerOptions"`
	InitialCard   cards.Card     `json:"initialCard"`
	CurrentPlayer string         `json:"currentPlayer"`
	HandSizes     map[string]int `json:"handSizes"`
}

// PlayResult is returned by PlayCards and HandlePenaltyChoice.
type PlayResult struct {
	Play           Play           `json:"play"`
	Penalty        bool           `json:"penalty"`        // the play was unsafe
	PenaltyDrawn   bool           `json:"penaltyDrawn"`   // a card was added to the hand for it
	PenaltyPending bool           `json:"penaltyPending"` // waiting on HandlePenaltyChoice
	PickedUp       []cards.Card   `json:"pickedUp,omitempty"`
	JokerRedrawn   bool           `json:"jokerRedrawn"`
	CurrentPlayer  string         `json:"currentPlayer"`
	HandSizes      map[string]int `json:"handSizes"`
	RoundOver      *RoundResult   `json:"roundOver,omitempty"`
}

// RoundEndReason says how a round finished.
type RoundEndReason string

const (
	RoundEndShow      RoundEndReason = "show"
	RoundEndEmptyHand RoundEndReason = "emptyHand"
)

// HandValue reveals one player's hand at round end.
type HandValue struct {
	PlayerID string       `json:"playerId"`
	Value    int          `json:"value"`
	Cards    []cards.Card `json:"cards"`
}

// RoundResult reports the scoring of a finished round.
type RoundResult struct {
	Round       int            `json:"round"`
	Reason      RoundEndReason `json:"reason"`
	CallerID    string         `json:"callerId,omitempty"`
	Correct     bool           `json:"correct"`
	RoundWinner string         `json:"roundWinner,omitempty"`
	Scores      map[string]int `json:"scores"` // points added this round
	Totals      map[string]int `json:"totals"`
	HandValues  []HandValue    `json:"handValues"`
	Eliminated  []string       `json:"eliminated,omitempty"`
	GameOver    bool           `json:"gameOver"`
	Winner      string         `json:"winner,omitempty"`
}
