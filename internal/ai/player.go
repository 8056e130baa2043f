// Package ai chooses actions for computer-controlled seats.
package ai

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/falseshow/internal/cards"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/sirupsen/logrus"
)

// Difficulty selects the heuristic tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ParseDifficulty accepts "easy", "medium" or "hard".
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(s); d {
	case Easy, Medium, Hard:
		return d, nil
	}
	return "", fmt.Errorf("unknown difficulty: %q", s)
}

// DefaultThinkingTime paces bot turns so humans can follow them.
const DefaultThinkingTime = 1500 * time.Millisecond

// ActionKind is what a bot decided to do.
type ActionKind string

const (
	ActionShow ActionKind = "show"
	ActionPlay ActionKind = "play"
)

// Action is a bot's chosen move.
type Action struct {
	Kind  ActionKind   `json:"action"`
	Cards []cards.Card `json:"cards,omitempty"`
}

// Decision is delivered by MakePlay once the thinking time has passed. OK is
// false when the hand had nothing to play.
type Decision struct {
	Action Action
	OK     bool
}

// Player is a computer opponent bound to one seat.
type Player struct {
	ID           string
	Difficulty   Difficulty
	ThinkingTime time.Duration

	rng      *rand.Rand
	strategy strategy
	log      logrus.FieldLogger
}

// Option configures a Player.
type Option func(*Player)

// WithRand sets the random source for easy picks and hard-tier bluffs.
func WithRand(r *rand.Rand) Option {
	return func(p *Player) { p.rng = r }
}

func WithThinkingTime(d time.Duration) Option {
	return func(p *Player) { p.ThinkingTime = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Player) { p.log = l }
}

// NewPlayer creates a bot for the seat id at the given tier.
func NewPlayer(id string, d Difficulty, opts ...Option) (*Player, error) {
	s, err := newStrategy(d)
	if err != nil {
		return nil, err
	}
	p := &Player{
		ID:           id,
		Difficulty:   d,
		ThinkingTime: DefaultThinkingTime,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		strategy:     s,
		log:          logrus.WithFields(logrus.Fields{"component": "ai", "player": id}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// jokerShowValue is the hand value at or below which a lone joker is shown.
const jokerShowValue = 10

// Decide picks an action without waiting. It returns false only when the hand
// offers no play at all.
func (p *Player) Decide(state game.GameState, hand *cards.Hand, joker cards.Card) (Action, bool) {
	held := hand.Cards()
	plays := Enumerate(held, joker)
	if len(plays) == 0 {
		return Action{}, false
	}

	value := hand.ValueWithJoker(joker)
	if p.shouldCallShow(state, value, len(held)) {
		p.log.WithFields(logrus.Fields{"value": value, "cards": len(held)}).Debug("calling show")
		return Action{Kind: ActionShow}, true
	}

	if len(held) == 1 && hand.HasJoker(joker) {
		if value <= jokerShowValue {
			return Action{Kind: ActionShow}, true
		}
		return Action{Kind: ActionPlay, Cards: held}, true
	}

	last := state.LastPlayCards()
	pick := p.strategy.choose(safeFirst(plays, last), turn{
		lastPlay: last,
		joker:    joker,
		handSize: len(held),
		rng:      p.rng,
	})
	return Action{Kind: ActionPlay, Cards: pick.Cards}, true
}

// MakePlay decides immediately and delivers the decision after ThinkingTime.
// The wait cannot be cancelled; callers that need to abandon it select on the
// channel alongside their own context. The channel is buffered, so an
// abandoned decision does not leak the goroutine.
func (p *Player) MakePlay(state game.GameState, hand *cards.Hand, joker cards.Card) <-chan Decision {
	action, ok := p.Decide(state, hand, joker)
	out := make(chan Decision, 1)
	go func() {
		defer close(out)
		time.Sleep(p.ThinkingTime)
		out <- Decision{Action: action, OK: ok}
	}()
	return out
}
