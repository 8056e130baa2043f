// internal/table/table.go
package table

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/falseshow/internal/ai"
	"github.com/jason-s-yu/falseshow/internal/cache"
	"github.com/jason-s-yu/falseshow/internal/cards"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/jason-s-yu/falseshow/internal/identity"
	"github.com/sirupsen/logrus"
)

var (
	ErrTableFull      = errors.New("table is full")
	ErrAlreadyStarted = errors.New("table already started")
	ErrNotSeated      = errors.New("player is not seated at this table")
	ErrBotSeat        = errors.New("bot seats cannot be driven from outside")
	ErrTableClosed    = errors.New("table is closed")
	ErrUnknownCommand = errors.New("unknown command")
)

// Seat is a place at the table, human or bot.
type Seat struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Avatar     string        `json:"avatar"`
	IsBot      bool          `json:"isBot"`
	Difficulty ai.Difficulty `json:"difficulty,omitempty"`
}

// CommandType names an action a seated player can take.
type CommandType string

const (
	CmdStartRound    CommandType = "start_round"
	CmdPlayCards     CommandType = "play_cards"
	CmdCallShow      CommandType = "call_show"
	CmdPenaltyChoice CommandType = "penalty_choice"
)

// Command is one player action routed to the engine.
type Command struct {
	Type     CommandType        `json:"type"`
	PlayerID string             `json:"playerId,omitempty"`
	Cards    []cards.Card       `json:"cards,omitempty"`
	Choice   game.PenaltyChoice `json:"choice,omitempty"`
}

// View is what a client sees of the table. Game is nil until the first round.
type View struct {
	ID       uuid.UUID       `json:"id"`
	Code     string          `json:"code"`
	Seats    []Seat          `json:"seats"`
	Started  bool            `json:"started"`
	Settings game.Settings   `json:"settings"`
	Game     *game.GameState `json:"game,omitempty"`
}

// Table hosts one authoritative engine plus its seats and bot drivers. All
// methods are safe for concurrent use.
//
// The hook functions run with the table lock held and must not call back
// into the table.
type Table struct {
	ID        uuid.UUID
	Code      string
	CreatedAt time.Time

	mu           sync.Mutex
	engine       *game.Engine
	settings     game.Settings
	seats        []Seat
	bots         map[string]*ai.Player
	started      bool
	closed       bool
	actionIndex  int
	lastActivity time.Time
	botCancel    context.CancelFunc
	thinkingTime time.Duration

	rng *rand.Rand
	now func() time.Time
	log logrus.FieldLogger

	// EventFn receives every engine event.
	EventFn func(ev game.Event)
	// StateFn receives each human seat's own projection after every change.
	StateFn func(playerID string, gs game.GameState)
	// ActionFn receives one record per accepted command, for the historian.
	ActionFn func(rec cache.GameActionRecord)
	// SnapshotFn receives the serialized engine after every change.
	SnapshotFn func(snap game.Snapshot)
	// RoundEndFn receives each finished round with the snapshot taken right after it.
	RoundEndFn func(res game.RoundResult, snap game.Snapshot)
}

// Option configures a Table.
type Option func(*Table)

// WithRand seeds the engine, the bots and the seat generators from r.
func WithRand(r *rand.Rand) Option {
	return func(t *Table) { t.rng = r }
}

// WithThinkingTime sets the delay before each bot action.
func WithThinkingTime(d time.Duration) Option {
	return func(t *Table) { t.thinkingTime = d }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(t *Table) { t.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(t *Table) { t.now = now }
}

// New creates an empty table with validated settings.
func New(settings game.Settings, opts ...Option) (*Table, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		ID:           uuid.New(),
		settings:     settings,
		bots:         make(map[string]*ai.Player),
		thinkingTime: ai.DefaultThinkingTime,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		now:          time.Now,
		log:          logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.log = t.log.WithField("table", t.ID.String())
	t.Code = identity.TableCode(t.rng)
	t.CreatedAt = t.now()
	t.lastActivity = t.CreatedAt
	t.engine = game.NewEngine(
		game.WithRand(rand.New(rand.NewSource(t.rng.Int63()))),
		game.WithClock(t.now),
		game.WithLogger(t.log.WithField("component", "engine")),
	)
	t.engine.EventFn = t.onEvent
	return t, nil
}

func (t *Table) onEvent(ev game.Event) {
	if t.EventFn != nil {
		t.EventFn(ev)
	}
}

// Join seats a human. Joining again with the same id returns the existing
// seat, which is how reconnects work after the game has started.
func (t *Table) Join(userID, name string) (Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Seat{}, ErrTableClosed
	}
	if s, ok := t.seat(userID); ok {
		return s, nil
	}
	if t.started {
		return Seat{}, ErrAlreadyStarted
	}
	if len(t.seats) >= t.settings.MaxPlayers {
		return Seat{}, ErrTableFull
	}
	s := Seat{ID: userID, Name: identity.PlayerName(name), Avatar: identity.RandomAvatar(t.rng)}
	t.seats = append(t.seats, s)
	t.touch()
	t.log.WithFields(logrus.Fields{"player": userID, "name": s.Name}).Info("player joined")
	return s, nil
}

// AddBot seats a computer player of the given tier.
func (t *Table) AddBot(d ai.Difficulty) (Seat, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return Seat{}, ErrTableClosed
	}
	if t.started {
		return Seat{}, ErrAlreadyStarted
	}
	if len(t.seats) >= t.settings.MaxPlayers {
		return Seat{}, ErrTableFull
	}

	id := "bot-" + uuid.NewString()[:8]
	bot, err := ai.NewPlayer(id, d,
		ai.WithRand(rand.New(rand.NewSource(t.rng.Int63()))),
		ai.WithThinkingTime(t.thinkingTime),
		ai.WithLogger(t.log.WithFields(logrus.Fields{"component": "ai", "player": id})),
	)
	if err != nil {
		return Seat{}, err
	}

	taken := make(map[string]bool, len(t.seats))
	for _, s := range t.seats {
		taken[s.Name] = true
	}
	s := Seat{ID: id, Name: identity.BotName(t.rng, taken), Avatar: identity.RandomAvatar(t.rng), IsBot: true, Difficulty: d}
	t.seats = append(t.seats, s)
	t.bots[id] = bot
	t.touch()
	return s, nil
}

// Leave frees a seat. Once the game has started seats are permanent.
func (t *Table) Leave(playerID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}
	for i, s := range t.seats {
		if s.ID == playerID {
			t.seats = append(t.seats[:i], t.seats[i+1:]...)
			delete(t.bots, playerID)
			t.touch()
			return nil
		}
	}
	return ErrNotSeated
}

// Apply runs a command from a human seat.
func (t *Table) Apply(cmd Command) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTableClosed
	}
	s, ok := t.seat(cmd.PlayerID)
	if !ok {
		return nil, ErrNotSeated
	}
	if s.IsBot {
		return nil, ErrBotSeat
	}
	return t.apply(cmd)
}

// apply routes a command to the engine and publishes the outcome. The lock
// must be held.
func (t *Table) apply(cmd Command) (interface{}, error) {
	var (
		result   interface{}
		roundEnd *game.RoundResult
		payload  = map[string]interface{}{}
		err      error
	)

	switch cmd.Type {
	case CmdStartRound:
		var rs game.RoundStart
		rs, err = t.startRound()
		if err == nil {
			payload["round"] = rs.RoundNumber
			payload["joker"] = rs.Joker.ID()
			payload["initialCard"] = rs.InitialCard.ID()
		}
		result = rs

	case CmdPlayCards:
		var pr game.PlayResult
		pr, err = t.engine.PlayCards(cmd.PlayerID, cmd.Cards)
		if err == nil {
			payload["cards"] = cardIDs(pr.Play.Cards)
			payload["type"] = pr.Play.Type
			payload["safe"] = pr.Play.IsSafe
			roundEnd = pr.RoundOver
		}
		result = pr

	case CmdCallShow:
		var rr game.RoundResult
		rr, err = t.engine.CallShow(cmd.PlayerID)
		if err == nil {
			payload["correct"] = rr.Correct
			roundEnd = &rr
		}
		result = rr

	case CmdPenaltyChoice:
		var pr game.PlayResult
		pr, err = t.engine.HandlePenaltyChoice(cmd.PlayerID, cmd.Choice)
		if err == nil {
			payload["choice"] = cmd.Choice
			roundEnd = pr.RoundOver
		}
		result = pr

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	if err != nil {
		return nil, err
	}

	t.commit(cmd, payload, roundEnd)
	return result, nil
}

func (t *Table) startRound() (game.RoundStart, error) {
	if !t.started {
		infos := make([]game.PlayerInfo, len(t.seats))
		for i, s := range t.seats {
			infos[i] = game.PlayerInfo{ID: s.ID, Name: s.Name, Avatar: s.Avatar, IsBot: s.IsBot}
		}
		if err := t.engine.Initialize(infos, t.settings); err != nil {
			return game.RoundStart{}, err
		}
		t.started = true
		t.log.WithField("players", len(infos)).Info("table started")
	}
	return t.engine.StartNewRound()
}

// commit runs after every accepted command: action log, projections,
// snapshot, round bookkeeping and the next bot turn.
func (t *Table) commit(cmd Command, payload map[string]interface{}, roundEnd *game.RoundResult) {
	t.touch()
	t.logAction(cmd.PlayerID, string(cmd.Type), payload)
	t.pushStates()

	snap := t.engine.Serialize()
	if t.SnapshotFn != nil {
		t.SnapshotFn(snap)
	}
	if roundEnd != nil {
		t.log.WithFields(logrus.Fields{
			"round":    roundEnd.Round,
			"reason":   roundEnd.Reason,
			"gameOver": roundEnd.GameOver,
		}).Info("round finished")
		if t.RoundEndFn != nil {
			t.RoundEndFn(*roundEnd, snap)
		}
		if roundEnd.GameOver {
			t.logAction("", cache.ActionGameOver, map[string]interface{}{"winner": roundEnd.Winner, "totals": roundEnd.Totals})
		}
	}
	t.scheduleBot()
}

// logAction hands a numbered record to ActionFn.
func (t *Table) logAction(actorID, actionType string, payload map[string]interface{}) {
	t.actionIndex++
	if t.ActionFn == nil {
		return
	}
	t.ActionFn(cache.GameActionRecord{
		TableID:       t.ID,
		ActionIndex:   t.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     t.now().UnixMilli(),
	})
}

func (t *Table) pushStates() {
	if t.StateFn == nil {
		return
	}
	for _, s := range t.seats {
		if !s.IsBot {
			t.StateFn(s.ID, t.engine.GetGameState(s.ID))
		}
	}
}

// scheduleBot cancels any pending bot decision and, if a bot must act now,
// starts a new one. The decision is applied only if the turn number has not
// moved in the meantime.
func (t *Table) scheduleBot() {
	if t.botCancel != nil {
		t.botCancel()
		t.botCancel = nil
	}
	if t.closed || t.engine.State() != game.StatePlaying {
		return
	}

	id := t.engine.PendingPenaltyPlayer()
	penalty := id != ""
	if !penalty {
		id = t.engine.CurrentPlayerID()
	}
	bot, ok := t.bots[id]
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.botCancel = cancel
	turn := t.engine.TurnNumber()
	state := t.engine.GetGameState(id)
	hand := t.engine.Hand(id)

	if penalty {
		cmd := Command{Type: CmdPenaltyChoice, PlayerID: id, Choice: bot.ChoosePenalty(state, hand)}
		go func() {
			timer := time.NewTimer(bot.ThinkingTime)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
				t.runBot(ctx, turn, cmd)
			}
		}()
		return
	}

	decision := bot.MakePlay(state, hand, t.engine.Joker())
	go func() {
		select {
		case <-ctx.Done():
		case d := <-decision:
			cmd := Command{Type: CmdCallShow, PlayerID: id}
			if d.OK && d.Action.Kind == ai.ActionPlay {
				cmd = Command{Type: CmdPlayCards, PlayerID: id, Cards: d.Action.Cards}
			}
			t.runBot(ctx, turn, cmd)
		}
	}()
}

func (t *Table) runBot(ctx context.Context, turn int, cmd Command) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ctx.Err() != nil || t.closed || t.engine.TurnNumber() != turn {
		t.log.WithFields(logrus.Fields{"player": cmd.PlayerID, "turn": turn}).Debug("dropping stale bot decision")
		return
	}
	// A rejected bot action is a decision bug. The turn stays where it is.
	if _, err := t.apply(cmd); err != nil {
		t.log.WithFields(logrus.Fields{
			"player":  cmd.PlayerID,
			"command": cmd.Type,
			"cards":   cardIDs(cmd.Cards),
			"turn":    turn,
		}).WithError(err).Error("engine rejected bot action")
	}
}

// View returns the table as seen by viewerID.
func (t *Table) View(viewerID string) View {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := View{
		ID:       t.ID,
		Code:     t.Code,
		Seats:    append([]Seat(nil), t.seats...),
		Started:  t.started,
		Settings: t.settings,
	}
	if t.started {
		gs := t.engine.GetGameState(viewerID)
		v.Game = &gs
	}
	return v
}

// Snapshot serializes the engine.
func (t *Table) Snapshot() game.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.Serialize()
}

// IsSeated reports whether id holds a seat.
func (t *Table) IsSeated(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seat(id)
	return ok
}

func (t *Table) IsOver() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.engine.State() == game.StateGameOver
}

func (t *Table) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// Close stops bot drivers and rejects further commands.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	if t.botCancel != nil {
		t.botCancel()
		t.botCancel = nil
	}
}

func (t *Table) seat(id string) (Seat, bool) {
	for _, s := range t.seats {
		if s.ID == id {
			return s, true
		}
	}
	return Seat{}, false
}

func (t *Table) touch() {
	t.lastActivity = t.now()
}

func cardIDs(cs []cards.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID()
	}
	return out
}
