// internal/game/state.go
package game

import "github.com/jason-s-yu/falseshow/internal/cards"

// PlayerView is the public part of a player.
type PlayerView struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Avatar          string `json:"avatar"`
	IsBot           bool   `json:"isBot"`
	Score           int    `json:"score"`
	HandSize        int    `json:"handSize"`
	IsEliminated    bool   `json:"isEliminated"`
	HasDrawnPenalty bool   `json:"hasDrawnPenalty"`
}

// GameState is the read-only projection handed to renderers, the network layer
// and the decision module. Only the viewer's own hand is included.
type GameState struct {
	State          State        `json:"state"`
	Players        []PlayerView `json:"players"`
	CurrentPlayer  string       `json:"currentPlayer,omitempty"`
	LastPlay       *Play        `json:"lastPlay"`
	PreviousPlay   *Play        `json:"previousPlay,omitempty"`
	Joker          *cards.Card  `json:"joker"`
	DeckSize       int          `json:"deckSize"`
	RoundNumber    int          `json:"roundNumber"`
	TurnNumber     int          `json:"turnNumber"`
	ScoreLimit     int          `json:"scoreLimit"`
	PendingPenalty string       `json:"pendingPenalty,omitempty"`

	ViewerID      string       `json:"viewerId,omitempty"`
	Hand          []cards.Card `json:"hand,omitempty"`
	JokerLastCard bool         `json:"jokerLastCard,omitempty"`
}

// GetGameState builds the projection for viewerID. An empty or unknown viewer
// gets the public view only.
func (e *Engine) GetGameState(viewerID string) GameState {
	gs := GameState{
		State:          e.state,
		Players:        make([]PlayerView, 0, len(e.players)),
		CurrentPlayer:  e.CurrentPlayerID(),
		LastPlay:       e.lastPlay.clone(),
		PreviousPlay:   e.previousPlay.clone(),
		Joker:          cardPtr(e.joker),
		DeckSize:       e.deck.Len(),
		RoundNumber:    e.roundNumber,
		TurnNumber:     e.turnNumber,
		ScoreLimit:     e.settings.ScoreLimit,
		PendingPenalty: e.PendingPenaltyPlayer(),
	}

	for _, p := range e.players {
		gs.Players = append(gs.Players, PlayerView{
			ID:              p.ID,
			Name:            p.Name,
			Avatar:          p.Avatar,
			IsBot:           p.IsBot,
			Score:           p.Score,
			HandSize:        p.Hand.Size(),
			IsEliminated:    p.IsEliminated,
			HasDrawnPenalty: p.HasDrawnPenalty,
		})
		if p.ID == viewerID {
			gs.ViewerID = p.ID
			gs.Hand = p.Hand.Cards()
			gs.JokerLastCard = e.jokerLastCard(p)
		}
	}
	return gs
}

// Player looks up a player in the projection.
func (gs GameState) Player(id string) (PlayerView, bool) {
	for _, p := range gs.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerView{}, false
}

// Opponents are the non-eliminated players other than selfID.
func (gs GameState) Opponents(selfID string) []PlayerView {
	var out []PlayerView
	for _, p := range gs.Players {
		if p.ID != selfID && !p.IsEliminated {
			out = append(out, p)
		}
	}
	return out
}

// JokerCard returns the joker, or the zero card when none is set.
func (gs GameState) JokerCard() cards.Card {
	if gs.Joker == nil {
		return cards.Card{}
	}
	return *gs.Joker
}

// LastPlayCards returns the cards of the current play, nil when there is none.
func (gs GameState) LastPlayCards() []cards.Card {
	if gs.LastPlay == nil {
		return nil
	}
	return gs.LastPlay.Cards
}

func cardPtr(c cards.Card) *cards.Card {
	if c.IsZero() {
		return nil
	}
	return &c
}
