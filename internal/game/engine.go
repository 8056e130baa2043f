// internal/game/engine.go
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/falseshow/internal/cards"
	"github.com/sirupsen/logrus"
)

// Engine holds the entire state of a single game in memory and applies the
// rules to it. It is not safe for concurrent use; the host serializes calls.
type Engine struct {
	players  []*Player
	settings Settings

	deck         *cards.Deck
	played       []cards.Card // every card put on the table this round, opening card included
	lastPlay     *Play
	previousPlay *Play
	joker        cards.Card
	jokerOptions []cards.Card
	initialCard  cards.Card
	pending      *PendingPenalty

	// currentPlayerIndex indexes the active (non-eliminated) players, not the full roster.
	currentPlayerIndex int
	state              State
	roundNumber        int
	turnNumber         int // increments on round start, every accepted play and every penalty resolution

	rng *rand.Rand
	now func() time.Time
	log logrus.FieldLogger

	// EventFn receives every engine event. If nil, events are dropped.
	EventFn func(ev Event)
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source used for shuffling and the starting player.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock sets the clock used for play timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine builds an engine in the waiting state with no players.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		settings: DefaultSettings(),
		deck:     cards.DeckFrom(nil),
		played:   []cards.Card{},
		state:    StateWaiting,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		log:      logrus.WithField("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Initialize seats the players and applies settings. Unset fields take their
// defaults, so Settings{ScoreLimit: 100} still charges the standard Show penalty.
func (e *Engine) Initialize(players []PlayerInfo, settings Settings) error {
	settings = settings.withDefaults()
	if err := settings.Validate(); err != nil {
		return err
	}
	if len(players) < MinPlayers {
		return fmt.Errorf("%w: need at least %d, have %d", ErrNotEnoughPlayers, MinPlayers, len(players))
	}
	if len(players) > settings.MaxPlayers {
		return fmt.Errorf("%w: at most %d, have %d", ErrTooManyPlayers, settings.MaxPlayers, len(players))
	}

	seen := make(map[string]bool, len(players))
	seated := make([]*Player, 0, len(players))
	for _, info := range players {
		if info.ID == "" || info.ID == DealerID || seen[info.ID] {
			return fmt.Errorf("%w: empty or duplicate id %q", ErrInvalidPlayer, info.ID)
		}
		seen[info.ID] = true
		seated = append(seated, &Player{
			ID:     info.ID,
			Name:   info.Name,
			Avatar: info.Avatar,
			IsBot:  info.IsBot,
			Hand:   cards.NewHand(),
		})
	}

	e.players = seated
	e.settings = settings
	e.deck = cards.DeckFrom(nil)
	e.played = []cards.Card{}
	e.lastPlay, e.previousPlay, e.pending = nil, nil, nil
	e.joker, e.initialCard = cards.Card{}, cards.Card{}
	e.jokerOptions = nil
	e.currentPlayerIndex = 0
	e.roundNumber = 0
	e.turnNumber = 0
	e.state = StateWaiting
	return nil
}

// CardsPerPlayer is the deal size for the given number of active players.
func CardsPerPlayer(active int) int {
	switch active {
	case 2:
		return 10
	case 3:
		return 9
	case 4:
		return 8
	case 5:
		return 7
	default:
		return 6
	}
}

// StartNewRound shuffles a fresh deck, deals, picks the joker from the bottom
// two cards, turns up the opening card and picks a random starting player.
func (e *Engine) StartNewRound() (RoundStart, error) {
	switch e.state {
	case StatePlaying:
		return RoundStart{}, ErrRoundInProgress
	case StateGameOver:
		return RoundStart{}, ErrGameOver
	}
	active := e.activePlayers()
	if len(active) < MinPlayers {
		return RoundStart{}, fmt.Errorf("%w: %d active", ErrNotEnoughPlayers, len(active))
	}

	e.roundNumber++
	e.deck = cards.NewDeck()
	e.deck.Shuffle(e.rng)
	e.played = []cards.Card{}
	e.lastPlay, e.previousPlay, e.pending = nil, nil, nil
	e.currentPlayerIndex = e.rng.Intn(len(active))

	for _, p := range e.players {
		p.Hand = cards.NewHand()
		p.HasDrawnPenalty = false
	}
	n := CardsPerPlayer(len(active))
	for _, p := range active {
		p.Hand.Add(e.deck.Draw(n)...)
	}

	e.jokerOptions = e.deck.DrawBottom(2)
	e.joker = cards.Card{}
	if len(e.jokerOptions) > 0 {
		e.joker = e.jokerOptions[0]
	}

	e.initialCard = cards.Card{}
	if c, ok := e.deck.DrawOne(); ok {
		e.initialCard = c
		e.lastPlay = &Play{
			PlayerID:   DealerID,
			PlayerName: DealerName,
			Cards:      []cards.Card{c},
			Type:       cards.Single,
			IsSafe:     true,
			Timestamp:  e.now().UnixMilli(),
		}
		e.played = append(e.played, c)
	}

	e.state = StatePlaying
	e.turnNumber++

	start := RoundStart{
		RoundNumber:   e.roundNumber,
		Joker:         e.joker,
		JokerOptions:  e.JokerOptions(),
		InitialCard:   e.initialCard,
		CurrentPlayer: e.CurrentPlayerID(),
		HandSizes:     e.HandSizes(),
	}
	e.log.WithFields(logrus.Fields{
		"round":   e.roundNumber,
		"joker":   e.joker.String(),
		"opening": e.initialCard.String(),
		"starter": start.CurrentPlayer,
	}).Debug("round started")
	e.emit(Event{
		Type:     EventRoundStart,
		PlayerID: start.CurrentPlayer,
		Cards:    []cards.Card{e.initialCard},
		Payload: map[string]interface{}{
			"joker":        e.joker,
			"jokerOptions": start.JokerOptions,
			"handSizes":    start.HandSizes,
		},
	})
	return start, nil
}

// PlayCards discards cards from the current player's hand.
//
// An unsafe play costs the player one card from the deck, or leaves a pending
// penalty when Settings.PenaltyChoice is set. An empty deck waives the draw. If
// the hand is empty afterwards the player wins the round.
func (e *Engine) PlayCards(playerID string, selected []cards.Card) (PlayResult, error) {
	if e.state != StatePlaying {
		return PlayResult{}, ErrRoundNotActive
	}
	p := e.player(playerID)
	if p == nil || p.IsEliminated {
		return PlayResult{}, ErrInvalidPlayer
	}
	if e.pending != nil {
		return PlayResult{}, ErrPenaltyPending
	}
	if cur := e.currentPlayer(); cur == nil || cur.ID != playerID {
		return PlayResult{}, ErrNotYourTurn
	}

	v, err := cards.ValidatePlay(selected, e.joker)
	if err != nil {
		return PlayResult{}, fmt.Errorf("%w: %w", ErrInvalidPlay, err)
	}
	if err := checkOwnership(p.Hand, selected); err != nil {
		return PlayResult{}, fmt.Errorf("%w: %w", ErrInvalidPlay, err)
	}

	jokerLast := e.jokerLastCard(p)
	safe := cards.IsSafePlay(selected, e.lastPlayCards())

	played := make([]cards.Card, len(selected))
	copy(played, selected)
	p.Hand.Remove(played...)
	p.Hand.ClearSelection()

	play := Play{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Cards:      played,
		Type:       v.Type,
		IsSafe:     safe,
		Timestamp:  e.now().UnixMilli(),
	}
	e.previousPlay = e.lastPlay
	e.lastPlay = play.clone()
	e.played = append(e.played, played...)
	e.turnNumber++

	e.emit(Event{
		Type:     EventCardsPlayed,
		PlayerID: p.ID,
		Cards:    play.Cards,
		Payload:  map[string]interface{}{"type": v.Type, "isSafe": safe},
	})

	res := PlayResult{Play: play, Penalty: !safe}

	if jokerLast {
		if c, ok := e.deck.DrawOne(); ok {
			p.Hand.Add(c)
			res.JokerRedrawn = true
			e.emit(Event{Type: EventJokerRedraw, PlayerID: p.ID})
		}
	}

	if !safe {
		p.HasDrawnPenalty = true
		if e.settings.PenaltyChoice {
			e.pending = &PendingPenalty{PlayerID: p.ID}
			res.PenaltyPending = true
			res.CurrentPlayer = p.ID
			res.HandSizes = e.HandSizes()
			e.emit(Event{Type: EventPenaltyPending, PlayerID: p.ID})
			return res, nil
		}
		if c, ok := e.deck.DrawOne(); ok {
			p.Hand.Add(c)
			res.PenaltyDrawn = true
			e.emit(Event{Type: EventPenaltyDraw, PlayerID: p.ID})
		}
	}

	return e.finishTurn(p, res)
}

// HandlePenaltyChoice settles a pending penalty by drawing from the deck or
// picking up the play the unsafe play answered, then passes the turn.
func (e *Engine) HandlePenaltyChoice(playerID string, choice PenaltyChoice) (PlayResult, error) {
	if e.state != StatePlaying {
		return PlayResult{}, ErrRoundNotActive
	}
	p := e.player(playerID)
	if p == nil || p.IsEliminated {
		return PlayResult{}, ErrInvalidPlayer
	}
	if e.pending == nil {
		return PlayResult{}, ErrNoPenaltyPending
	}
	if e.pending.PlayerID != playerID {
		return PlayResult{}, ErrNotYourTurn
	}
	if choice != PenaltyDeck && choice != PenaltyPickup {
		return PlayResult{}, fmt.Errorf("%w: %q", ErrInvalidPenaltyChoice, choice)
	}

	res := PlayResult{Penalty: true}
	if e.lastPlay != nil {
		res.Play = *e.lastPlay.clone()
	}

	switch choice {
	case PenaltyDeck:
		if c, ok := e.deck.DrawOne(); ok {
			p.Hand.Add(c)
			res.PenaltyDrawn = true
			e.emit(Event{Type: EventPenaltyDraw, PlayerID: p.ID})
		}
	case PenaltyPickup:
		if e.previousPlay != nil {
			picked := e.previousPlay.clone().Cards
			e.removePlayed(picked)
			p.Hand.Add(picked...)
			e.previousPlay = nil
			res.PickedUp = picked
			res.PenaltyDrawn = true
			e.emit(Event{Type: EventPenaltyPickup, PlayerID: p.ID, Cards: picked})
		}
	}

	e.pending = nil
	p.Hand.ClearSelection()
	e.turnNumber++
	return e.finishTurn(p, res)
}

// finishTurn ends the round if p emptied their hand, otherwise passes the turn.
func (e *Engine) finishTurn(p *Player, res PlayResult) (PlayResult, error) {
	if p.Hand.IsEmpty() {
		rr, err := e.EndRound(p.ID)
		if err != nil {
			return res, err
		}
		res.RoundOver = &rr
		res.HandSizes = e.HandSizes()
		return res, nil
	}
	e.nextTurn()
	res.CurrentPlayer = e.CurrentPlayerID()
	res.HandSizes = e.HandSizes()
	return res, nil
}

// CallShow ends the round on the caller's claim of holding the lowest hand.
// Any active player may call, in or out of turn.
func (e *Engine) CallShow(playerID string) (RoundResult, error) {
	if e.state != StatePlaying {
		return RoundResult{}, ErrRoundNotActive
	}
	caller := e.player(playerID)
	if caller == nil || caller.IsEliminated {
		return RoundResult{}, ErrInvalidPlayer
	}
	if e.pending != nil {
		return RoundResult{}, ErrPenaltyPending
	}

	active := e.activePlayers()
	values := make(map[string]int, len(active))
	lowest := -1
	for _, p := range active {
		v := e.handValue(p)
		values[p.ID] = v
		if lowest == -1 || v < lowest {
			lowest = v
		}
	}
	correct := values[caller.ID] == lowest

	scores := make(map[string]int, len(active))
	winner := caller.ID
	if !correct {
		winner = ""
	}
	for _, p := range active {
		switch {
		case p.ID == caller.ID && correct:
			scores[p.ID] = 0
		case p.ID == caller.ID:
			scores[p.ID] = e.settings.ShowPenalty()
		case !correct && values[p.ID] == lowest:
			scores[p.ID] = 0
			if winner == "" {
				winner = p.ID
			}
		default:
			scores[p.ID] = values[p.ID]
		}
	}

	e.log.WithFields(logrus.Fields{
		"round":   e.roundNumber,
		"caller":  caller.ID,
		"value":   values[caller.ID],
		"lowest":  lowest,
		"correct": correct,
	}).Debug("show called")
	e.emit(Event{
		Type:     EventShowCalled,
		PlayerID: caller.ID,
		Payload:  map[string]interface{}{"correct": correct, "value": values[caller.ID]},
	})

	rr := RoundResult{
		Reason:      RoundEndShow,
		CallerID:    caller.ID,
		Correct:     correct,
		RoundWinner: winner,
	}
	return e.scoreRound(rr, active, scores), nil
}

// EndRound scores a round won by emptying a hand: the winner adds nothing and
// everyone else adds their hand value.
func (e *Engine) EndRound(winnerID string) (RoundResult, error) {
	if e.state != StatePlaying {
		return RoundResult{}, ErrRoundNotActive
	}
	w := e.player(winnerID)
	if w == nil || w.IsEliminated {
		return RoundResult{}, ErrInvalidPlayer
	}

	active := e.activePlayers()
	scores := make(map[string]int, len(active))
	for _, p := range active {
		if p.ID == winnerID {
			scores[p.ID] = 0
			continue
		}
		scores[p.ID] = e.handValue(p)
	}
	rr := RoundResult{Reason: RoundEndEmptyHand, RoundWinner: winnerID}
	return e.scoreRound(rr, active, scores), nil
}

// scoreRound applies deltas, runs the elimination check and moves to roundEnd
// or gameOver.
func (e *Engine) scoreRound(rr RoundResult, active []*Player, scores map[string]int) RoundResult {
	rr.Round = e.roundNumber
	rr.Scores = scores
	rr.HandValues = make([]HandValue, 0, len(active))
	for _, p := range active {
		rr.HandValues = append(rr.HandValues, HandValue{
			PlayerID: p.ID,
			Value:    e.handValue(p),
			Cards:    p.Hand.Cards(),
		})
		p.Score += scores[p.ID]
	}
	e.pending = nil

	rr.Eliminated = e.checkEliminations()
	e.clampTurnIndex()
	rr.Totals = make(map[string]int, len(e.players))
	for _, p := range e.players {
		rr.Totals[p.ID] = p.Score
	}

	remaining := e.activePlayers()
	if len(remaining) <= 1 {
		e.state = StateGameOver
		rr.GameOver = true
		if len(remaining) == 1 {
			rr.Winner = remaining[0].ID
		}
	} else {
		e.state = StateRoundEnd
	}

	e.emit(Event{
		Type:     EventRoundEnd,
		PlayerID: rr.RoundWinner,
		Payload: map[string]interface{}{
			"reason":     rr.Reason,
			"scores":     rr.Scores,
			"handValues": rr.HandValues,
		},
	})
	if rr.GameOver {
		e.log.WithFields(logrus.Fields{"round": e.roundNumber, "winner": rr.Winner}).Info("game over")
		e.emit(Event{Type: EventGameOver, PlayerID: rr.Winner, Payload: map[string]interface{}{"totals": rr.Totals}})
	}
	return rr
}

// checkEliminations marks every active player at or over the score limit.
func (e *Engine) checkEliminations() []string {
	var out []string
	for _, p := range e.players {
		if !p.IsEliminated && p.Score >= e.settings.ScoreLimit {
			p.IsEliminated = true
			out = append(out, p.ID)
			e.log.WithFields(logrus.Fields{"player": p.ID, "score": p.Score}).Debug("player eliminated")
			e.emit(Event{Type: EventPlayerEliminated, PlayerID: p.ID, Payload: map[string]interface{}{"score": p.Score}})
		}
	}
	return out
}

// clampTurnIndex keeps currentPlayerIndex inside the active list after
// eliminations shrink it.
func (e *Engine) clampTurnIndex() {
	if n := len(e.activePlayers()); n > 0 {
		e.currentPlayerIndex %= n
	} else {
		e.currentPlayerIndex = 0
	}
}

func (e *Engine) nextTurn() {
	active := e.activePlayers()
	if len(active) > 0 {
		e.currentPlayerIndex = (e.currentPlayerIndex + 1) % len(active)
	}
}

func (e *Engine) handValue(p *Player) int {
	if e.settings.JokerScoresZero {
		return p.Hand.ValueWithJoker(e.joker)
	}
	return p.Hand.Value()
}

func (e *Engine) jokerLastCard(p *Player) bool {
	return p.Hand.Size() == 1 && p.Hand.HasJoker(e.joker)
}

func (e *Engine) lastPlayCards() []cards.Card {
	if e.lastPlay == nil {
		return nil
	}
	return e.lastPlay.Cards
}

func (e *Engine) removePlayed(cs []cards.Card) {
	for _, c := range cs {
		for i, pc := range e.played {
			if pc.Equals(c) {
				e.played = append(e.played[:i], e.played[i+1:]...)
				break
			}
		}
	}
}

// checkOwnership requires distinct cards that are all in hand.
func checkOwnership(h *cards.Hand, selected []cards.Card) error {
	seen := make(map[cards.Card]bool, len(selected))
	for _, c := range selected {
		if seen[c] || !h.Has(c) {
			return fmt.Errorf("%w: %s", ErrCardNotInHand, c)
		}
		seen[c] = true
	}
	return nil
}

func (e *Engine) player(id string) *Player {
	for _, p := range e.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (e *Engine) activePlayers() []*Player {
	out := make([]*Player, 0, len(e.players))
	for _, p := range e.players {
		if !p.IsEliminated {
			out = append(out, p)
		}
	}
	return out
}

func (e *Engine) currentPlayer() *Player {
	active := e.activePlayers()
	if len(active) == 0 {
		return nil
	}
	return active[e.currentPlayerIndex%len(active)]
}

// CurrentPlayerID is the player whose turn it is, or "" outside a round.
func (e *Engine) CurrentPlayerID() string {
	if e.state != StatePlaying {
		return ""
	}
	if p := e.currentPlayer(); p != nil {
		return p.ID
	}
	return ""
}

// GetActivePlayers lists non-eliminated player ids in seat order.
func (e *Engine) GetActivePlayers() []string {
	active := e.activePlayers()
	ids := make([]string, len(active))
	for i, p := range active {
		ids[i] = p.ID
	}
	return ids
}

// HandSizes maps every seated player to their card count.
func (e *Engine) HandSizes() map[string]int {
	sizes := make(map[string]int, len(e.players))
	for _, p := range e.players {
		sizes[p.ID] = p.Hand.Size()
	}
	return sizes
}

// Hand returns a copy of a player's hand, or nil for an unknown id.
func (e *Engine) Hand(playerID string) *cards.Hand {
	p := e.player(playerID)
	if p == nil {
		return nil
	}
	return p.Hand.Clone()
}

// JokerLastCard reports whether the player holds only the joker, in which case
// they must call Show or discard it.
func (e *Engine) JokerLastCard(playerID string) bool {
	p := e.player(playerID)
	return p != nil && e.jokerLastCard(p)
}

func (e *Engine) State() State { return e.state }
func (e *Engine) Settings() Settings { return e.settings }
func (e *Engine) RoundNumber() int { return e.roundNumber }
func (e *Engine) TurnNumber() int { return e.turnNumber }
func (e *Engine) Joker() cards.Card { return e.joker }
func (e *Engine) InitialCard() cards.Card { return e.initialCard }
func (e *Engine) DeckSize() int { return e.deck.Len() }
func (e *Engine) LastPlay() *Play { return e.lastPlay.clone() }
func (e *Engine) PreviousPlay() *Play { return e.previousPlay.clone() }

func (e *Engine) JokerOptions() []cards.Card {
	out := make([]cards.Card, len(e.jokerOptions))
	copy(out, e.jokerOptions)
	return out
}

// PlayedCards returns every card on the table this round.
func (e *Engine) PlayedCards() []cards.Card {
	out := make([]cards.Card, len(e.played))
	copy(out, e.played)
	return out
}

// PendingPenaltyPlayer is the id of the player who owes a penalty choice, or "".
func (e *Engine) PendingPenaltyPlayer() string {
	if e.pending == nil {
		return ""
	}
	return e.pending.PlayerID
}
