// internal/game/serialize.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/falseshow/internal/cards"
)

// SnapshotVersion is bumped whenever a Snapshot field changes shape.
const SnapshotVersion = 1

// SnapshotPlayer is a player with their hand as a plain card list.
type SnapshotPlayer struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Avatar          string       `json:"avatar"`
	IsBot           bool         `json:"isBot"`
	Score           int          `json:"score"`
	HandSize        int          `json:"handSize"`
	IsEliminated    bool         `json:"isEliminated"`
	HasDrawnPenalty bool         `json:"hasDrawnPenalty"`
	Cards           []cards.Card `json:"cards"`
}

// Snapshot is the full engine state, the unit of synchronization between an
// authoritative host and its followers. Settings fields sit at the top level.
type Snapshot struct {
	Version int `json:"version"`
	Settings

	Players            []SnapshotPlayer `json:"players"`
	Deck               []cards.Card     `json:"deck"` // bottom first
	PlayedCards        []cards.Card     `json:"playedCards"`
	CurrentPlayerIndex int              `json:"currentPlayerIndex"`
	LastPlay           *Play            `json:"lastPlay"`
	PreviousPlay       *Play            `json:"previousPlay"`
	JokerCard          *cards.Card      `json:"jokerCard"`
	JokerOptions       []cards.Card     `json:"jokerOptions"`
	InitialCard        *cards.Card      `json:"initialCard"`
	PendingPenalty     *PendingPenalty  `json:"pendingPenalty"`
	GameState          State            `json:"gameState"`
	RoundNumber        int              `json:"roundNumber"`
	TurnNumber         int              `json:"turnNumber"`
}

// Serialize captures every piece of mutable engine state.
func (e *Engine) Serialize() Snapshot {
	s := Snapshot{
		Version:            SnapshotVersion,
		Settings:           e.settings,
		Players:            make([]SnapshotPlayer, 0, len(e.players)),
		Deck:               e.deck.Cards(),
		PlayedCards:        e.PlayedCards(),
		CurrentPlayerIndex: e.currentPlayerIndex,
		LastPlay:           e.lastPlay.clone(),
		PreviousPlay:       e.previousPlay.clone(),
		JokerCard:          cardPtr(e.joker),
		JokerOptions:       e.JokerOptions(),
		InitialCard:        cardPtr(e.initialCard),
		GameState:          e.state,
		RoundNumber:        e.roundNumber,
		TurnNumber:         e.turnNumber,
	}
	if e.pending != nil {
		pp := *e.pending
		s.PendingPenalty = &pp
	}
	for _, p := range e.players {
		s.Players = append(s.Players, SnapshotPlayer{
			ID:              p.ID,
			Name:            p.Name,
			Avatar:          p.Avatar,
			IsBot:           p.IsBot,
			Score:           p.Score,
			HandSize:        p.Hand.Size(),
			IsEliminated:    p.IsEliminated,
			HasDrawnPenalty: p.HasDrawnPenalty,
			Cards:           p.Hand.Cards(),
		})
	}
	return s
}

// Deserialize replaces the engine state with s. The engine is left untouched
// if s fails validation.
func (e *Engine) Deserialize(s Snapshot) error {
	if err := validateSnapshot(s); err != nil {
		return err
	}

	players := make([]*Player, 0, len(s.Players))
	for _, sp := range s.Players {
		players = append(players, &Player{
			ID:              sp.ID,
			Name:            sp.Name,
			Avatar:          sp.Avatar,
			IsBot:           sp.IsBot,
			Score:           sp.Score,
			IsEliminated:    sp.IsEliminated,
			HasDrawnPenalty: sp.HasDrawnPenalty,
			Hand:            cards.NewHand(sp.Cards...),
		})
	}

	e.players = players
	e.settings = s.Settings
	e.deck = cards.DeckFrom(s.Deck)
	e.played = make([]cards.Card, len(s.PlayedCards))
	copy(e.played, s.PlayedCards)
	e.currentPlayerIndex = s.CurrentPlayerIndex
	e.lastPlay = s.LastPlay.clone()
	e.previousPlay = s.PreviousPlay.clone()
	e.joker = derefCard(s.JokerCard)
	e.jokerOptions = make([]cards.Card, len(s.JokerOptions))
	copy(e.jokerOptions, s.JokerOptions)
	e.initialCard = derefCard(s.InitialCard)
	e.pending = nil
	if s.PendingPenalty != nil {
		pp := *s.PendingPenalty
		e.pending = &pp
	}
	e.state = s.GameState
	e.roundNumber = s.RoundNumber
	e.turnNumber = s.TurnNumber
	return nil
}

func validateSnapshot(s Snapshot) error {
	invalid := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidSnapshot, fmt.Sprintf(format, args...))
	}

	if s.Version != SnapshotVersion {
		return invalid("version %d, want %d", s.Version, SnapshotVersion)
	}
	if err := s.Settings.Validate(); err != nil {
		return invalid("%v", err)
	}
	if !s.GameState.valid() {
		return invalid("unknown game state %q", s.GameState)
	}
	if len(s.Players) == 0 {
		return invalid("no players")
	}
	if s.RoundNumber < 0 || s.TurnNumber < 0 {
		return invalid("negative counters")
	}

	seenCard := make(map[cards.Card]bool, cards.DeckSize)
	claim := func(where string, cs []cards.Card) error {
		for _, c := range cs {
			if !c.Valid() {
				return invalid("%s holds unknown card %+v", where, c)
			}
			if seenCard[c] {
				return invalid("%s duplicates %s", where, c)
			}
			seenCard[c] = true
		}
		return nil
	}

	ids := make(map[string]bool, len(s.Players))
	active := 0
	for _, p := range s.Players {
		if p.ID == "" || ids[p.ID] {
			return invalid("empty or duplicate player id %q", p.ID)
		}
		ids[p.ID] = true
		if p.HandSize != len(p.Cards) {
			return invalid("player %s handSize %d but %d cards", p.ID, p.HandSize, len(p.Cards))
		}
		if err := claim("player "+p.ID, p.Cards); err != nil {
			return err
		}
		if !p.IsEliminated {
			active++
		}
	}
	if err := claim("deck", s.Deck); err != nil {
		return err
	}
	if err := claim("playedCards", s.PlayedCards); err != nil {
		return err
	}
	if err := claim("jokerOptions", s.JokerOptions); err != nil {
		return err
	}

	if s.CurrentPlayerIndex < 0 || (active > 0 && s.CurrentPlayerIndex >= active) {
		return invalid("currentPlayerIndex %d out of range", s.CurrentPlayerIndex)
	}
	for _, c := range []*cards.Card{s.JokerCard, s.InitialCard} {
		if c != nil && !c.Valid() {
			return invalid("unknown card %+v", *c)
		}
	}
	for _, play := range []*Play{s.LastPlay, s.PreviousPlay} {
		if play == nil {
			continue
		}
		if len(play.Cards) == 0 {
			return invalid("play without cards")
		}
		for _, c := range play.Cards {
			if !c.Valid() {
				return invalid("play holds unknown card %+v", c)
			}
		}
	}
	if s.PendingPenalty != nil && !ids[s.PendingPenalty.PlayerID] {
		return invalid("pending penalty for unknown player %q", s.PendingPenalty.PlayerID)
	}
	return nil
}

func derefCard(c *cards.Card) cards.Card {
	if c == nil {
		return cards.Card{}
	}
	return *c
}
