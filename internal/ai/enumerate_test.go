package ai

import (
	"math/rand"
	"testing"

	"github.com/jason-s-yu/falseshow/internal/cards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func c(s cards.Suit, r cards.Rank) cards.Card { return cards.MustCard(s, r) }

func countByType(plays []Candidate) map[cards.PlayType]int {
	out := make(map[cards.PlayType]int)
	for _, p := range plays {
		out[p.Type]++
	}
	return out
}

func TestEnumerateNoJoker(t *testing.T) {
	hand := cards.NewHand(
		c(cards.Hearts, cards.Three), c(cards.Hearts, cards.Four),
		c(cards.Hearts, cards.Five), c(cards.Spades, cards.Five),
	).Cards()

	plays := Enumerate(hand, cards.Card{})
	assert.Equal(t, map[cards.PlayType]int{cards.Single: 4, cards.Pair: 1, cards.Sequence: 1}, countByType(plays))

	for _, p := range plays {
		if p.Type == cards.Sequence {
			assert.Equal(t, []cards.Card{c(cards.Hearts, cards.Three), c(cards.Hearts, cards.Four), c(cards.Hearts, cards.Five)}, p.Cards)
			assert.Equal(t, 12, p.Value)
		}
	}
}

func TestEnumerateRecordsEveryRunPrefix(t *testing.T) {
	hand := cards.NewHand(
		c(cards.Hearts, cards.Four), c(cards.Hearts, cards.Five),
		c(cards.Hearts, cards.Six), c(cards.Hearts, cards.Seven),
	).Cards()

	var runs [][]cards.Card
	for _, p := range Enumerate(hand, cards.Card{}) {
		if p.Type == cards.Sequence {
			runs = append(runs, p.Cards)
		}
	}
	assert.Len(t, runs, 3)
	assert.Contains(t, runs, hand[:3])
	assert.Contains(t, runs, hand)
	assert.Contains(t, runs, hand[1:])
}

func TestEnumerateJoker(t *testing.T) {
	joker := c(cards.Clubs, cards.King)
	hand := cards.NewHand(c(cards.Hearts, cards.Five), c(cards.Hearts, cards.Six), joker, c(cards.Spades, cards.Two)).Cards()

	plays := Enumerate(hand, joker)
	counts := countByType(plays)
	assert.Equal(t, 4, counts[cards.Single])
	assert.Equal(t, 3, counts[cards.Pair], "every card pairs with the joker")
	require.Equal(t, 1, counts[cards.Sequence])

	for _, p := range plays {
		if p.Type == cards.Sequence {
			assert.Equal(t, []cards.Card{c(cards.Hearts, cards.Five), c(cards.Hearts, cards.Six), joker}, p.Cards)
			assert.Equal(t, 11, p.Value, "joker counts zero")
		}
		if p.Type == cards.Single && p.Cards[0] == joker {
			assert.Zero(t, p.Value)
		}
	}
}

func TestEnumeratedPlaysAlwaysValidate(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 300; i++ {
		deck := cards.NewDeck()
		deck.Shuffle(r)
		joker := deck.DrawBottom(1)[0]
		held := deck.Draw(2 + r.Intn(9))
		if r.Intn(2) == 0 {
			held = append(held, joker)
		}
		hand := cards.NewHand(held...).Cards()

		for _, p := range Enumerate(hand, joker) {
			v, err := cards.ValidatePlay(p.Cards, joker)
			require.NoError(t, err, "hand %v joker %s play %v", hand, joker, p.Cards)
			assert.Equal(t, p.Type, v.Type)
		}
	}
}

func TestEnumerateDoesNotAliasHand(t *testing.T) {
	hand := []cards.Card{c(cards.Hearts, cards.Four), c(cards.Spades, cards.Four)}
	plays := Enumerate(hand, cards.Card{})
	plays[0].Cards[0] = c(cards.Clubs, cards.King)
	assert.Equal(t, c(cards.Hearts, cards.Four), hand[0])
}
