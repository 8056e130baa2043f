package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsUpdate(t *testing.T) {
	s := DefaultSettings()
	err := s.Update(map[string]interface{}{
		"scoreLimit":      float64(150),
		"penaltyChoice":   true,
		"jokerScoresZero": nil,
		"maxPlayers":      4,
		"unknownKey":      "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, 150, s.ScoreLimit)
	assert.True(t, s.PenaltyChoice)
	assert.False(t, s.JokerScoresZero)
	assert.Equal(t, 4, s.MaxPlayers)
	assert.Equal(t, DefaultWrongShowPenalty, s.ShowPenalty())
}

func TestSettingsUpdateWrongShowPenalty(t *testing.T) {
	base := DefaultSettings()
	s := base
	require.NoError(t, s.Update(map[string]interface{}{"wrongShowPenalty": float64(0)}))
	assert.Equal(t, 0, s.ShowPenalty())
	assert.Equal(t, DefaultWrongShowPenalty, base.ShowPenalty(), "copies keep their own value")

	require.NoError(t, s.Update(map[string]interface{}{"wrongShowPenalty": float64(25)}))
	assert.Equal(t, 25, s.ShowPenalty())

	assert.Equal(t, DefaultWrongShowPenalty, Settings{}.ShowPenalty())
}

func TestSettingsWithDefaults(t *testing.T) {
	s := Settings{ScoreLimit: 80}.withDefaults()
	assert.Equal(t, 80, s.ScoreLimit)
	assert.Equal(t, DefaultSettings().MaxPlayers, s.MaxPlayers)
	assert.Equal(t, DefaultWrongShowPenalty, s.ShowPenalty())

	off := Settings{WrongShowPenalty: IntPtr(0)}.withDefaults()
	assert.Equal(t, 0, off.ShowPenalty())
	require.NoError(t, off.Validate())
}

func TestSettingsUpdateRejects(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"type":        {"penaltyChoice": "yes"},
		"int type":    {"scoreLimit": "100"},
		"score limit": {"scoreLimit": float64(0)},
		"penalty":     {"wrongShowPenalty": -1},
		"max players": {"maxPlayers": float64(9)},
		"min players": {"maxPlayers": float64(1)},
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			assert.Error(t, s.Update(in))
		})
	}
}

func TestParseSettingsLeavesCurrentAlone(t *testing.T) {
	current := DefaultSettings()
	next, err := ParseSettings(map[string]interface{}{"scoreLimit": float64(30)}, current)
	require.NoError(t, err)
	assert.Equal(t, 30, next.ScoreLimit)
	assert.Equal(t, 100, current.ScoreLimit)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
	assert.Error(t, Settings{}.Validate())
}
