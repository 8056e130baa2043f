// internal/game/settings.go
package game

import "fmt"

// Player count bounds. MaxPlayers in Settings may lower the upper bound.
const (
	MinPlayers     = 2
	MaxPlayersHard = 8
)

// DefaultWrongShowPenalty is charged for an incorrect Show unless the
// settings say otherwise.
const DefaultWrongShowPenalty = 50

// Settings are the per-game options chosen when a table is created.
type Settings struct {
	ScoreLimit       int  `json:"scoreLimit"`                 // cumulative score at which a player is eliminated
	WrongShowPenalty *int `json:"wrongShowPenalty,omitempty"` // flat charge for an incorrect Show; nil means the default
	PenaltyChoice    bool `json:"penaltyChoice"`              // unsafe plays let the player pick deck or pickup instead of an automatic draw
	JokerScoresZero  bool `json:"jokerScoresZero"`            // the joker counts 0 when adjudicating Show and scoring
	MaxPlayers       int  `json:"maxPlayers"`                 // seats available at the table
}

// DefaultSettings returns the standard rules.
func DefaultSettings() Settings {
	return Settings{
		ScoreLimit:       100,
		WrongShowPenalty: IntPtr(DefaultWrongShowPenalty),
		PenaltyChoice:    false,
		JokerScoresZero:  false,
		MaxPlayers:       6,
	}
}

// Validate checks ranges without modifying anything.
func (s Settings) Validate() error {
	if s.ScoreLimit < 1 {
		return fmt.Errorf("scoreLimit must be at least 1")
	}
	if s.WrongShowPenalty != nil && *s.WrongShowPenalty < 0 {
		return fmt.Errorf("wrongShowPenalty must be non-negative")
	}
	if s.MaxPlayers < MinPlayers || s.MaxPlayers > MaxPlayersHard {
		return fmt.Errorf("maxPlayers must be between %d and %d", MinPlayers, MaxPlayersHard)
	}
	return nil
}

// IntPtr returns a pointer to n, for the optional settings fields.
func IntPtr(n int) *int { return &n }

// ShowPenalty is the charge for an incorrect Show.
func (s Settings) ShowPenalty() int {
	if s.WrongShowPenalty == nil {
		return DefaultWrongShowPenalty
	}
	return *s.WrongShowPenalty
}

// withDefaults fills every unset field from DefaultSettings. A zero
// ScoreLimit or MaxPlayers is never valid, so zero counts as unset there.
func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.ScoreLimit == 0 {
		s.ScoreLimit = def.ScoreLimit
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = def.MaxPlayers
	}
	if s.WrongShowPenalty == nil {
		s.WrongShowPenalty = def.WrongShowPenalty
	}
	return s
}

// Update applies the provided settings on top of the current ones.
// Keys that are absent or null are ignored and keep their old value.
func (s *Settings) Update(in map[string]interface{}) error {
	var ok bool
	var err error

	assignBool := func(field *bool, key string) error {
		if val, exists := in[key]; exists && val != nil {
			*field, ok = val.(bool)
			if !ok {
				return fmt.Errorf("invalid type for %s", key)
			}
		}
		return nil
	}

	assignInt := func(field *int, key string, minVal, maxVal int) error {
		val, exists := in[key]
		if !exists || val == nil {
			return nil
		}
		var n int
		switch v := val.(type) {
		case float64: // JSON numbers decode as float64
			n = int(v)
		case int:
			n = v
		default:
			return fmt.Errorf("invalid type for %s", key)
		}
		if n < minVal || (maxVal > 0 && n > maxVal) {
			if maxVal > 0 {
				return fmt.Errorf("%s must be between %d and %d", key, minVal, maxVal)
			}
			return fmt.Errorf("%s must be at least %d", key, minVal)
		}
		*field = n
		return nil
	}

	if err = assignInt(&s.ScoreLimit, "scoreLimit", 1, 0); err != nil {
		return err
	}
	if _, exists := in["wrongShowPenalty"]; exists {
		// assign through a fresh pointer so copies of s are not changed
		penalty := s.ShowPenalty()
		if err = assignInt(&penalty, "wrongShowPenalty", 0, 0); err != nil {
			return err
		}
		s.WrongShowPenalty = &penalty
	}
	if err = assignBool(&s.PenaltyChoice, "penaltyChoice"); err != nil {
		return err
	}
	if err = assignBool(&s.JokerScoresZero, "jokerScoresZero"); err != nil {
		return err
	}
	if err = assignInt(&s.MaxPlayers, "maxPlayers", MinPlayers, MaxPlayersHard); err != nil {
		return err
	}

	return nil
}

// ParseSettings returns a copy of current with the updates applied.
func ParseSettings(in map[string]interface{}, current Settings) (Settings, error) {
	s := current
	err := s.Update(in)
	return s, err
}
