// internal/game/events.go
package game

import "github.com/jason-s-yu/falseshow/internal/cards"

// EventType names something that happened inside the engine.
type EventType string

const (
	EventRoundStart       EventType = "round_start"
	EventCardsPlayed      EventType = "cards_played"
	EventPenaltyDraw      EventType = "penalty_draw"    // public; the drawn card is never included
	EventPenaltyPending   EventType = "penalty_pending" // player must choose deck or pickup
	EventPenaltyPickup    EventType = "penalty_pickup"
	EventJokerRedraw      EventType = "joker_redraw"
	EventShowCalled       EventType = "show_called"
	EventRoundEnd         EventType = "round_end"
	EventPlayerEliminated EventType = "player_eliminated"
	EventGameOver         EventType = "game_over"
)

// Event is emitted through Engine.EventFn after the state change it describes.
// Cards only ever holds cards that are public (played or picked up from the table).
type Event struct {
	Type     EventType              `json:"type"`
	PlayerID string                 `json:"playerId,omitempty"`
	Cards    []cards.Card           `json:"cards,omitempty"`
	Payload  map[string]interface{} `json:"payload,omitempty"`
	Round    int                    `json:"round"`
	Turn     int                    `json:"turn"`
}

func (e *Engine) emit(ev Event) {
	ev.Round = e.roundNumber
	ev.Turn = e.turnNumber
	if e.EventFn != nil {
		e.EventFn(ev)
	}
}
