// internal/game/engine_test.go
package game

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/falseshow/internal/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRecorder collects engine events instead of sending them anywhere.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func c(s cards.Suit, r cards.Rank) cards.Card { return cards.MustCard(s, r) }

// setupTestEngine seats n players (p1..pn) and deals the first round.
func setupTestEngine(t *testing.T, n int, settings *Settings) (*Engine, *eventRecorder) {
	t.Helper()
	e := NewEngine(
		WithRand(rand.New(rand.NewSource(42))),
		WithClock(func() time.Time { return fixedNow }),
	)
	rec := &eventRecorder{}
	e.EventFn = rec.record

	s := DefaultSettings()
	if settings != nil {
		s = *settings
	}
	players := make([]PlayerInfo, n)
	for i := range players {
		players[i] = PlayerInfo{ID: fmt.Sprintf("p%d", i+1), Name: fmt.Sprintf("Player %d", i+1)}
	}
	require.NoError(t, e.Initialize(players, s))
	_, err := e.StartNewRound()
	require.NoError(t, err)
	rec.clear()
	return e, rec
}

// rigRound replaces the dealt round with fixed hands for the active players in
// seat order. The opening play is last, the first active player is on turn and
// every unused card goes to the deck in build order, so the next draw is the
// highest unused club.
func rigRound(t *testing.T, e *Engine, joker cards.Card, last []cards.Card, hands ...[]cards.Card) {
	t.Helper()
	used := make(map[cards.Card]bool)
	active := e.activePlayers()
	require.LessOrEqual(t, len(hands), len(active))
	for _, p := range e.players {
		p.Hand = cards.NewHand()
		p.HasDrawnPenalty = false
	}
	for i, h := range hands {
		active[i].Hand = cards.NewHand(h...)
		for _, hc := range h {
			used[hc] = true
		}
	}
	for _, lc := range last {
		used[lc] = true
	}

	e.joker = joker
	e.jokerOptions = nil
	if !joker.IsZero() && !used[joker] {
		e.jokerOptions = []cards.Card{joker}
		used[joker] = true
	}

	var rest []cards.Card
	for _, dc := range cards.NewDeck().Cards() {
		if !used[dc] {
			rest = append(rest, dc)
		}
	}
	e.deck = cards.DeckFrom(rest)
	e.played = append([]cards.Card{}, last...)
	e.lastPlay = nil
	if len(last) > 0 {
		e.lastPlay = &Play{PlayerID: DealerID, PlayerName: DealerName, Cards: last, Type: cards.Single, IsSafe: true}
	}
	e.previousPlay = nil
	e.pending = nil
	e.currentPlayerIndex = 0
	e.state = StatePlaying
}

func assertDeckIntegrity(t *testing.T, e *Engine) {
	t.Helper()
	all := e.deck.Cards()
	for _, p := range e.players {
		all = append(all, p.Hand.Cards()...)
	}
	all = append(all, e.played...)
	all = append(all, e.jokerOptions...)
	assert.Len(t, all, cards.DeckSize)

	seen := make(map[cards.Card]bool, len(all))
	for _, card := range all {
		assert.False(t, seen[card], "card %s appears twice", card)
		seen[card] = true
	}
}

func TestStartNewRoundDeal(t *testing.T) {
	for n := MinPlayers; n <= MaxPlayersHard; n++ {
		t.Run(fmt.Sprintf("%d players", n), func(t *testing.T) {
			settings := DefaultSettings()
			settings.MaxPlayers = MaxPlayersHard
			e, _ := setupTestEngine(t, n, &settings)

			assert.Equal(t, StatePlaying, e.State())
			assert.Equal(t, 1, e.RoundNumber())
			for id, size := range e.HandSizes() {
				assert.Equal(t, CardsPerPlayer(n), size, "player %s", id)
			}

			opts := e.JokerOptions()
			require.Len(t, opts, 2)
			assert.Equal(t, opts[0], e.Joker())

			last := e.LastPlay()
			require.NotNil(t, last)
			assert.Equal(t, DealerID, last.PlayerID)
			assert.Equal(t, DealerName, last.PlayerName)
			assert.Equal(t, []cards.Card{e.InitialCard()}, last.Cards)
			assert.Equal(t, fixedNow.UnixMilli(), last.Timestamp)

			assert.NotEmpty(t, e.CurrentPlayerID())
			assertDeckIntegrity(t, e)
		})
	}
}

func TestDeckIntegrityThroughRound(t *testing.T) {
	e, _ := setupTestEngine(t, 4, nil)

	for i := 0; i < 200 && e.State() == StatePlaying; i++ {
		id := e.CurrentPlayerID()
		hand := e.Hand(id)
		_, err := e.PlayCards(id, hand.Cards()[:1])
		require.NoError(t, err)
		assertDeckIntegrity(t, e)
	}
	assert.NotEqual(t, StatePlaying, e.State())
}

func TestSafeSingle(t *testing.T) {
	e, rec := setupTestEngine(t, 2, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Spades, cards.Seven)},
		[]cards.Card{c(cards.Hearts, cards.Seven), c(cards.Diamonds, cards.Nine)},
		[]cards.Card{c(cards.Clubs, cards.Two), c(cards.Clubs, cards.Three)},
	)
	deckBefore := e.DeckSize()

	res, err := e.PlayCards("p1", []cards.Card{c(cards.Hearts, cards.Seven)})
	require.NoError(t, err)

	assert.Equal(t, cards.Single, res.Play.Type)
	assert.True(t, res.Play.IsSafe)
	assert.False(t, res.Penalty)
	assert.False(t, res.PenaltyDrawn)
	assert.Equal(t, "p2", res.CurrentPlayer)
	assert.Equal(t, map[string]int{"p1": 1, "p2": 2}, res.HandSizes)
	assert.Equal(t, deckBefore, e.DeckSize())

	prev := e.PreviousPlay()
	require.NotNil(t, prev)
	assert.Equal(t, DealerID, prev.PlayerID)
	assert.Equal(t, []EventType{EventCardsPlayed}, rec.types())
	assertDeckIntegrity(t, e)
}

func TestUnsafePairDrawsPenalty(t *testing.T) {
	e, rec := setupTestEngine(t, 2, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Spades, cards.Seven)},
		[]cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Two), c(cards.Hearts, cards.Nine)},
		[]cards.Card{c(cards.Hearts, cards.Three), c(cards.Hearts, cards.Four)},
	)
	deckBefore := e.DeckSize()

	res, err := e.PlayCards("p1", []cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Two)})
	require.NoError(t, err)

	assert.Equal(t, cards.Pair, res.Play.Type)
	assert.False(t, res.Play.IsSafe)
	assert.True(t, res.Penalty)
	assert.True(t, res.PenaltyDrawn)
	assert.Equal(t, 2, res.HandSizes["p1"])
	assert.Equal(t, deckBefore-1, e.DeckSize())

	gs := e.GetGameState("p1")
	me, ok := gs.Player("p1")
	require.True(t, ok)
	assert.True(t, me.HasDrawnPenalty)
	assert.Contains(t, gs.Hand, c(cards.Clubs, cards.Queen), "penalty draw takes the top card")

	assert.Equal(t, []EventType{EventCardsPlayed, EventPenaltyDraw}, rec.types())
	assertDeckIntegrity(t, e)
}

func TestPenaltyWaivedOnEmptyDeck(t *testing.T) {
	e, _ := setupTestEngine(t, 2, nil)
	rigRound(t, e, cards.Card{}, []cards.Card{c(cards.Spades, cards.Seven)},
		[]cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Two), c(cards.Hearts, cards.Nine)},
		[]cards.Card{c(cards.Hearts, cards.Three)},
	)
	e.deck = cards.DeckFrom(nil)

	res, err := e.PlayCards("p1", []cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Two)})
	require.NoError(t, err)
	assert.True(t, res.Penalty)
	assert.False(t, res.PenaltyDrawn)
	assert.Equal(t, 1, res.HandSizes["p1"])
}

// threeHands gives p1, p2, p3 hand values 3, 7 and 12.
func threeHands() [][]cards.Card {
	return [][]cards.Card{
		{c(cards.Spades, cards.Ace), c(cards.Spades, cards.Two)},
		{c(cards.Hearts, cards.Three), c(cards.Hearts, cards.Four)},
		{c(cards.Diamonds, cards.Five), c(cards.Diamonds, cards.Seven)},
	}
}

func TestShowCorrect(t *testing.T) {
	e, rec := setupTestEngine(t, 3, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)}, threeHands()...)

	rr, err := e.CallShow("p1")
	require.NoError(t, err)

	assert.Equal(t, RoundEndShow, rr.Reason)
	assert.True(t, rr.Correct)
	assert.Equal(t, "p1", rr.RoundWinner)
	assert.Equal(t, map[string]int{"p1": 0, "p2": 7, "p3": 12}, rr.Scores)
	assert.Equal(t, map[string]int{"p1": 0, "p2": 7, "p3": 12}, rr.Totals)
	assert.False(t, rr.GameOver)
	assert.Equal(t, StateRoundEnd, e.State())
	require.Len(t, rr.HandValues, 3)
	assert.Equal(t, 12, rr.HandValues[2].Value)
	assert.Equal(t, []EventType{EventShowCalled, EventRoundEnd}, rec.types())
}

func TestShowWrong(t *testing.T) {
	e, _ := setupTestEngine(t, 3, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)}, threeHands()...)

	// p3 is not on turn; Show has no turn check.
	rr, err := e.CallShow("p3")
	require.NoError(t, err)

	assert.False(t, rr.Correct)
	assert.Equal(t, "p1", rr.RoundWinner)
	assert.Equal(t, map[string]int{"p1": 0, "p2": 7, "p3": 50}, rr.Scores)
}

func TestWrongShowPenaltyDefaultsWhenUnset(t *testing.T) {
	e, _ := setupTestEngine(t, 3, &Settings{ScoreLimit: 100})
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)},
		[]cards.Card{c(cards.Spades, cards.Three)},
		[]cards.Card{c(cards.Hearts, cards.Seven)},
		[]cards.Card{c(cards.Clubs, cards.Queen)},
	)

	rr, err := e.CallShow("p3")
	require.NoError(t, err)
	assert.False(t, rr.Correct)
	assert.Equal(t, map[string]int{"p1": 0, "p2": 7, "p3": DefaultWrongShowPenalty}, rr.Scores)
}

func TestWrongShowPenaltyCanBeWaived(t *testing.T) {
	e, _ := setupTestEngine(t, 2, &Settings{ScoreLimit: 100, WrongShowPenalty: IntPtr(0)})
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)},
		[]cards.Card{c(cards.Spades, cards.Three)},
		[]cards.Card{c(cards.Clubs, cards.Queen)},
	)

	rr, err := e.CallShow("p2")
	require.NoError(t, err)
	assert.False(t, rr.Correct)
	assert.Equal(t, 0, rr.Scores["p2"])
}

func TestShowTieIsCorrect(t *testing.T) {
	e, _ := setupTestEngine(t, 2, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)},
		[]cards.Card{c(cards.Spades, cards.Four)},
		[]cards.Card{c(cards.Hearts, cards.Four)},
	)

	rr, err := e.CallShow("p2")
	require.NoError(t, err)
	assert.True(t, rr.Correct)
	assert.Equal(t, map[string]int{"p1": 4, "p2": 0}, rr.Scores)
}

func TestShowJokerScoresZero(t *testing.T) {
	settings := DefaultSettings()
	settings.JokerScoresZero = true
	e, _ := setupTestEngine(t, 2, &settings)
	joker := c(cards.Spades, cards.King)
	rigRound(t, e, joker, []cards.Card{c(cards.Clubs, cards.Two)},
		[]cards.Card{joker, c(cards.Spades, cards.Two)},
		[]cards.Card{c(cards.Hearts, cards.Three)},
	)

	rr, err := e.CallShow("p1")
	require.NoError(t, err)
	assert.True(t, rr.Correct)
	assert.Equal(t, 3, rr.Scores["p2"])
}

func TestEmptyHandEndsRound(t *testing.T) {
	e, rec := setupTestEngine(t, 3, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Spades, cards.Seven)},
		[]cards.Card{c(cards.Hearts, cards.Seven)},
		[]cards.Card{c(cards.Hearts, cards.Three), c(cards.Hearts, cards.Four)},
		[]cards.Card{c(cards.Diamonds, cards.Ten)},
	)

	res, err := e.PlayCards("p1", []cards.Card{c(cards.Hearts, cards.Seven)})
	require.NoError(t, err)
	require.NotNil(t, res.RoundOver)

	rr := res.RoundOver
	assert.Equal(t, RoundEndEmptyHand, rr.Reason)
	assert.Equal(t, "p1", rr.RoundWinner)
	assert.Equal(t, map[string]int{"p1": 0, "p2": 7, "p3": 10}, rr.Scores)
	assert.Equal(t, StateRoundEnd, e.State())
	assert.Empty(t, e.CurrentPlayerID())
	assert.Equal(t, []EventType{EventCardsPlayed, EventRoundEnd}, rec.types())
}

func TestEliminationIsPermanent(t *testing.T) {
	settings := DefaultSettings()
	settings.ScoreLimit = 10
	e, rec := setupTestEngine(t, 3, &settings)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)}, threeHands()...)

	rr, err := e.CallShow("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p3"}, rr.Eliminated)
	assert.False(t, rr.GameOver)
	assert.Equal(t, []string{"p1", "p2"}, e.GetActivePlayers())
	assert.Contains(t, rec.types(), EventPlayerEliminated)

	_, err = e.StartNewRound()
	require.NoError(t, err)
	assert.Equal(t, 0, e.HandSizes()["p3"])
	assert.Equal(t, CardsPerPlayer(2), e.HandSizes()["p1"])
	assertDeckIntegrity(t, e)

	_, err = e.PlayCards("p3", nil)
	assert.ErrorIs(t, err, ErrInvalidPlayer)
	_, err = e.CallShow("p3")
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)},
		[]cards.Card{c(cards.Spades, cards.Ace)},
		[]cards.Card{c(cards.Hearts, cards.Five)},
	)
	rr, err = e.CallShow("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p2"}, rr.Eliminated)
	assert.True(t, rr.GameOver)
	assert.Equal(t, "p1", rr.Winner)
	assert.Equal(t, StateGameOver, e.State())

	gs := e.GetGameState("")
	for _, id := range []string{"p2", "p3"} {
		pv, ok := gs.Player(id)
		require.True(t, ok)
		assert.True(t, pv.IsEliminated, id)
	}

	_, err = e.StartNewRound()
	assert.ErrorIs(t, err, ErrGameOver)
}

func TestWrongShowEndsGame(t *testing.T) {
	settings := DefaultSettings()
	settings.ScoreLimit = 5
	e, _ := setupTestEngine(t, 2, &settings)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)},
		[]cards.Card{c(cards.Spades, cards.Nine)},
		[]cards.Card{c(cards.Hearts, cards.Six)},
	)
	e.players[1].Score = 4

	// p1 is wrong and charged 50; p2 held the minimum and adds nothing.
	rr, err := e.CallShow("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, rr.Eliminated)
	assert.True(t, rr.GameOver)
	assert.Equal(t, "p2", rr.Winner)
}

func TestJokerLastCardRedraw(t *testing.T) {
	joker := c(cards.Hearts, cards.Nine)

	t.Run("safe", func(t *testing.T) {
		e, rec := setupTestEngine(t, 2, nil)
		rigRound(t, e, joker, []cards.Card{c(cards.Clubs, cards.Nine)},
			[]cards.Card{joker},
			[]cards.Card{c(cards.Spades, cards.Three)},
		)
		assert.True(t, e.JokerLastCard("p1"))
		assert.True(t, e.GetGameState("p1").JokerLastCard)
		assert.False(t, e.GetGameState("p2").JokerLastCard)

		res, err := e.PlayCards("p1", []cards.Card{joker})
		require.NoError(t, err)
		assert.True(t, res.JokerRedrawn)
		assert.False(t, res.Penalty)
		assert.Nil(t, res.RoundOver)
		assert.Equal(t, 1, res.HandSizes["p1"])
		assert.Equal(t, "p2", res.CurrentPlayer)
		assert.Equal(t, []EventType{EventCardsPlayed, EventJokerRedraw}, rec.types())
		assertDeckIntegrity(t, e)
	})

	t.Run("unsafe draws twice", func(t *testing.T) {
		e, _ := setupTestEngine(t, 2, nil)
		rigRound(t, e, joker, []cards.Card{c(cards.Clubs, cards.Seven)},
			[]cards.Card{joker},
			[]cards.Card{c(cards.Spades, cards.Three)},
		)
		res, err := e.PlayCards("p1", []cards.Card{joker})
		require.NoError(t, err)
		assert.True(t, res.JokerRedrawn)
		assert.True(t, res.PenaltyDrawn)
		assert.Equal(t, 2, res.HandSizes["p1"])
	})

	t.Run("empty deck wins", func(t *testing.T) {
		e, _ := setupTestEngine(t, 2, nil)
		rigRound(t, e, joker, []cards.Card{c(cards.Clubs, cards.Nine)},
			[]cards.Card{joker},
			[]cards.Card{c(cards.Spades, cards.Three)},
		)
		e.deck = cards.DeckFrom(nil)
		res, err := e.PlayCards("p1", []cards.Card{joker})
		require.NoError(t, err)
		assert.False(t, res.JokerRedrawn)
		require.NotNil(t, res.RoundOver)
		assert.Equal(t, "p1", res.RoundOver.RoundWinner)
	})
}

func TestPenaltyChoice(t *testing.T) {
	settings := DefaultSettings()
	settings.PenaltyChoice = true
	opening := c(cards.Spades, cards.Seven)
	hands := func() [][]cards.Card {
		return [][]cards.Card{
			{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Two), c(cards.Hearts, cards.Nine)},
			{c(cards.Hearts, cards.Three), c(cards.Hearts, cards.Four)},
		}
	}
	pair := []cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Two)}

	t.Run("pickup", func(t *testing.T) {
		e, rec := setupTestEngine(t, 2, &settings)
		rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{opening}, hands()...)

		res, err := e.PlayCards("p1", pair)
		require.NoError(t, err)
		assert.True(t, res.PenaltyPending)
		assert.False(t, res.PenaltyDrawn)
		assert.Equal(t, "p1", res.CurrentPlayer)
		assert.Equal(t, "p1", e.GetGameState("").PendingPenalty)

		_, err = e.PlayCards("p2", []cards.Card{c(cards.Hearts, cards.Three)})
		assert.ErrorIs(t, err, ErrPenaltyPending)
		_, err = e.CallShow("p2")
		assert.ErrorIs(t, err, ErrPenaltyPending)
		_, err = e.HandlePenaltyChoice("p2", PenaltyDeck)
		assert.ErrorIs(t, err, ErrNotYourTurn)
		_, err = e.HandlePenaltyChoice("p1", "steal")
		assert.ErrorIs(t, err, ErrInvalidPenaltyChoice)

		res, err = e.HandlePenaltyChoice("p1", PenaltyPickup)
		require.NoError(t, err)
		assert.Equal(t, []cards.Card{opening}, res.PickedUp)
		assert.Equal(t, "p2", res.CurrentPlayer)
		assert.True(t, e.Hand("p1").Has(opening))
		assert.Equal(t, 2, res.HandSizes["p1"])
		assert.NotContains(t, e.PlayedCards(), opening)
		assert.Nil(t, e.PreviousPlay())
		assert.Empty(t, e.GetGameState("").PendingPenalty)
		assert.Equal(t, []EventType{EventCardsPlayed, EventPenaltyPending, EventPenaltyPickup}, rec.types())
		assertDeckIntegrity(t, e)

		_, err = e.HandlePenaltyChoice("p1", PenaltyDeck)
		assert.ErrorIs(t, err, ErrNoPenaltyPending)
	})

	t.Run("deck", func(t *testing.T) {
		e, _ := setupTestEngine(t, 2, &settings)
		rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{opening}, hands()...)
		deckBefore := e.DeckSize()

		_, err := e.PlayCards("p1", pair)
		require.NoError(t, err)
		res, err := e.HandlePenaltyChoice("p1", PenaltyDeck)
		require.NoError(t, err)
		assert.True(t, res.PenaltyDrawn)
		assert.Equal(t, 2, res.HandSizes["p1"])
		assert.Equal(t, deckBefore-1, e.DeckSize())
		assert.Equal(t, "p2", res.CurrentPlayer)
		assertDeckIntegrity(t, e)
	})
}

func TestPlayCardsErrors(t *testing.T) {
	e, _ := setupTestEngine(t, 2, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Spades, cards.Seven)},
		[]cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Five), c(cards.Hearts, cards.Nine)},
		[]cards.Card{c(cards.Hearts, cards.Three), c(cards.Hearts, cards.Four)},
	)

	tests := []struct {
		name   string
		player string
		cards  []cards.Card
		want   []error
	}{
		{name: "unknown player", player: "nobody", cards: []cards.Card{c(cards.Hearts, cards.Nine)}, want: []error{ErrInvalidPlayer}},
		{name: "out of turn", player: "p2", cards: []cards.Card{c(cards.Hearts, cards.Three)}, want: []error{ErrNotYourTurn}},
		{name: "nothing selected", player: "p1", cards: nil, want: []error{ErrInvalidPlay, cards.ErrNoCardsSelected}},
		{
			name:   "bad pair",
			player: "p1",
			cards:  []cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Five)},
			want:   []error{ErrInvalidPlay, cards.ErrInvalidPair},
		},
		{name: "not held", player: "p1", cards: []cards.Card{c(cards.Spades, cards.Ace)}, want: []error{ErrInvalidPlay, ErrCardNotInHand}},
		{
			name:   "same card twice",
			player: "p1",
			cards:  []cards.Card{c(cards.Hearts, cards.Nine), c(cards.Hearts, cards.Nine)},
			want:   []error{ErrInvalidPlay, ErrCardNotInHand},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.PlayCards(tt.player, tt.cards)
			for _, want := range tt.want {
				assert.ErrorIs(t, err, want)
			}
		})
	}

	_, err := e.PlayCards("p1", []cards.Card{c(cards.Diamonds, cards.Two), c(cards.Clubs, cards.Five)})
	assert.EqualError(t, err, "invalid play: not a valid pair")

	assert.Equal(t, 3, e.HandSizes()["p1"], "rejected plays leave the hand alone")
	assertDeckIntegrity(t, e)
}

func TestLifecycleErrors(t *testing.T) {
	e := NewEngine()
	_, err := e.StartNewRound()
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)
	_, err = e.PlayCards("p1", nil)
	assert.ErrorIs(t, err, ErrRoundNotActive)
	_, err = e.CallShow("p1")
	assert.ErrorIs(t, err, ErrRoundNotActive)
	_, err = e.HandlePenaltyChoice("p1", PenaltyDeck)
	assert.ErrorIs(t, err, ErrRoundNotActive)

	err = e.Initialize([]PlayerInfo{{ID: "solo"}}, DefaultSettings())
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	nine := make([]PlayerInfo, 9)
	for i := range nine {
		nine[i] = PlayerInfo{ID: fmt.Sprintf("p%d", i)}
	}
	settings := DefaultSettings()
	settings.MaxPlayers = MaxPlayersHard
	err = e.Initialize(nine, settings)
	assert.ErrorIs(t, err, ErrTooManyPlayers)

	err = e.Initialize([]PlayerInfo{{ID: "a"}, {ID: "a"}}, DefaultSettings())
	assert.ErrorIs(t, err, ErrInvalidPlayer)

	require.NoError(t, e.Initialize([]PlayerInfo{{ID: "a"}, {ID: "b"}}, Settings{}))
	assert.Equal(t, DefaultSettings().ScoreLimit, e.Settings().ScoreLimit)
	assert.Equal(t, DefaultWrongShowPenalty, e.Settings().ShowPenalty())
	_, err = e.StartNewRound()
	require.NoError(t, err)
	_, err = e.StartNewRound()
	assert.ErrorIs(t, err, ErrRoundInProgress)

	_, err = e.EndRound("nobody")
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestTurnWrapsOverActivePlayers(t *testing.T) {
	e, _ := setupTestEngine(t, 3, nil)
	e.players[1].IsEliminated = true
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Spades, cards.Seven)},
		[]cards.Card{c(cards.Hearts, cards.Seven), c(cards.Hearts, cards.Eight)},
		[]cards.Card{c(cards.Diamonds, cards.Seven), c(cards.Diamonds, cards.Eight)},
	)

	res, err := e.PlayCards("p1", []cards.Card{c(cards.Hearts, cards.Seven)})
	require.NoError(t, err)
	assert.Equal(t, "p3", res.CurrentPlayer)

	res, err = e.PlayCards("p3", []cards.Card{c(cards.Diamonds, cards.Seven)})
	require.NoError(t, err)
	assert.Equal(t, "p1", res.CurrentPlayer)
}

func TestGameStateHidesOtherHands(t *testing.T) {
	e, _ := setupTestEngine(t, 3, nil)

	pub := e.GetGameState("")
	assert.Nil(t, pub.Hand)
	assert.Empty(t, pub.ViewerID)

	mine := e.GetGameState("p2")
	assert.Equal(t, "p2", mine.ViewerID)
	assert.Equal(t, e.Hand("p2").Cards(), mine.Hand)
	assert.Equal(t, e.RoundNumber(), mine.RoundNumber)
	assert.Equal(t, e.DeckSize(), mine.DeckSize)
	require.NotNil(t, mine.Joker)
	assert.Equal(t, e.Joker(), *mine.Joker)

	raw, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"hand"`)
}

func TestSerializeRoundTrip(t *testing.T) {
	settings := DefaultSettings()
	settings.PenaltyChoice = true
	e, _ := setupTestEngine(t, 3, &settings)

	// Advance a few turns so lastPlay, previousPlay and counters are populated.
	for i := 0; i < 3 && e.State() == StatePlaying; i++ {
		id := e.CurrentPlayerID()
		res, err := e.PlayCards(id, e.Hand(id).Cards()[:1])
		require.NoError(t, err)
		if res.PenaltyPending {
			break
		}
	}

	raw, err := json.Marshal(e.Serialize())
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	mirror := NewEngine()
	require.NoError(t, mirror.Deserialize(snap))

	for _, viewer := range []string{"", "p1", "p2", "p3"} {
		assert.Equal(t, e.GetGameState(viewer), mirror.GetGameState(viewer), "viewer %q", viewer)
	}
	assert.Equal(t, e.Serialize(), mirror.Serialize())
	assertDeckIntegrity(t, mirror)

	var flat map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &flat))
	assert.EqualValues(t, 100, flat["scoreLimit"])
	assert.EqualValues(t, SnapshotVersion, flat["version"])
}

// roundTrip checks that a mirror rebuilt from e's snapshot matches e.
func roundTrip(t *testing.T, e *Engine) {
	t.Helper()
	raw, err := json.Marshal(e.Serialize())
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))

	mirror := NewEngine()
	require.NoError(t, mirror.Deserialize(snap))
	assert.Equal(t, e.Serialize(), mirror.Serialize())
	assert.Equal(t, e.GetGameState(""), mirror.GetGameState(""))
}

func TestSerializeRoundTripAfterElimination(t *testing.T) {
	settings := DefaultSettings()
	settings.ScoreLimit = 10
	e, _ := setupTestEngine(t, 3, &settings)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)}, threeHands()...)
	e.currentPlayerIndex = 2

	rr, err := e.CallShow("p1")
	require.NoError(t, err)
	require.Equal(t, []string{"p3"}, rr.Eliminated)
	require.Equal(t, StateRoundEnd, e.State())
	assert.Less(t, e.currentPlayerIndex, len(e.GetActivePlayers()))
	roundTrip(t, e)

	_, err = e.StartNewRound()
	require.NoError(t, err)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Clubs, cards.Two)},
		[]cards.Card{c(cards.Spades, cards.Ace)},
		[]cards.Card{c(cards.Hearts, cards.Five)},
	)
	e.currentPlayerIndex = 1

	rr, err = e.CallShow("p1")
	require.NoError(t, err)
	require.True(t, rr.GameOver)
	assert.Equal(t, 0, e.currentPlayerIndex)
	roundTrip(t, e)
}

func TestDeserializeRejectsBadSnapshots(t *testing.T) {
	e, _ := setupTestEngine(t, 2, nil)
	good := e.Serialize()

	mutate := map[string]func(s *Snapshot){
		"version":       func(s *Snapshot) { s.Version = 0 },
		"state":         func(s *Snapshot) { s.GameState = "paused" },
		"no players":    func(s *Snapshot) { s.Players = nil },
		"duplicate":     func(s *Snapshot) { s.Deck = append(s.Deck, s.Players[0].Cards[0]) },
		"hand size":     func(s *Snapshot) { s.Players[0].HandSize++ },
		"turn index":    func(s *Snapshot) { s.CurrentPlayerIndex = 5 },
		"bad card":      func(s *Snapshot) { s.Deck[0] = cards.Card{Suit: "cups", Rank: "A"} },
		"pending":       func(s *Snapshot) { s.PendingPenalty = &PendingPenalty{PlayerID: "ghost"} },
		"score limit":   func(s *Snapshot) { s.ScoreLimit = 0 },
		"empty play":    func(s *Snapshot) { s.LastPlay = &Play{} },
		"duplicate ids": func(s *Snapshot) { s.Players[1].ID = s.Players[0].ID },
	}
	for name, fn := range mutate {
		t.Run(name, func(t *testing.T) {
			raw, err := json.Marshal(good)
			require.NoError(t, err)
			var snap Snapshot
			require.NoError(t, json.Unmarshal(raw, &snap))
			fn(&snap)

			mirror := NewEngine()
			err = mirror.Deserialize(snap)
			assert.ErrorIs(t, err, ErrInvalidSnapshot)
			assert.Equal(t, StateWaiting, mirror.State(), "failed deserialize must not touch the engine")
		})
	}
}

func TestTurnNumberAdvances(t *testing.T) {
	e, _ := setupTestEngine(t, 2, nil)
	rigRound(t, e, c(cards.Clubs, cards.King), []cards.Card{c(cards.Spades, cards.Seven)},
		[]cards.Card{c(cards.Hearts, cards.Seven), c(cards.Hearts, cards.Eight)},
		[]cards.Card{c(cards.Diamonds, cards.Seven), c(cards.Diamonds, cards.Eight)},
	)
	before := e.TurnNumber()
	_, err := e.PlayCards("p1", []cards.Card{c(cards.Hearts, cards.Seven)})
	require.NoError(t, err)
	assert.Equal(t, before+1, e.TurnNumber())

	_, err = e.PlayCards("p1", []cards.Card{c(cards.Hearts, cards.Eight)})
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Equal(t, before+1, e.TurnNumber())
}
