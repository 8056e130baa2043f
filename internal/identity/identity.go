// Package identity generates display details for players and tables.
// Every generator takes its random source explicitly.
package identity

import (
	"fmt"
	"math/rand"
	"strings"
)

// Avatars is the fixed set of player avatars.
var Avatars = []string{"👤", "🧑", "👨", "👩", "🧔", "👱", "👶", "🧓", "👮", "🧑‍🚀", "🦸", "🧙"}

// DefaultPlayerName is used when a guest does not give a name.
const DefaultPlayerName = "Player"

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 6
)

var botNames = []string{
	"Ada", "Basil", "Clover", "Dot", "Ember", "Fitz", "Gus", "Hazel",
	"Iris", "Juno", "Kit", "Lark", "Milo", "Nell", "Otto", "Pip",
}

// RandomAvatar picks one of Avatars.
func RandomAvatar(r *rand.Rand) string {
	return Avatars[r.Intn(len(Avatars))]
}

// TableCode returns a short join code over A-Z and 0-9.
func TableCode(r *rand.Rand) string {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		b.WriteByte(codeAlphabet[r.Intn(len(codeAlphabet))])
	}
	return b.String()
}

// ValidTableCode reports whether s could have come from TableCode.
func ValidTableCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune(codeAlphabet, rune(s[i])) {
			return false
		}
	}
	return true
}

// BotName picks a name not already in taken. When every base name is used a
// numeric suffix is added.
func BotName(r *rand.Rand, taken map[string]bool) string {
	free := make([]string, 0, len(botNames))
	for _, n := range botNames {
		if !taken[n] {
			free = append(free, n)
		}
	}
	if len(free) > 0 {
		return free[r.Intn(len(free))]
	}
	base := botNames[r.Intn(len(botNames))]
	for i := 2; ; i++ {
		name := fmt.Sprintf("%s %d", base, i)
		if !taken[name] {
			return name
		}
	}
}

// PlayerName trims a requested name and falls back to DefaultPlayerName.
func PlayerName(requested string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		return DefaultPlayerName
	}
	if runes := []rune(name); len(runes) > 24 {
		name = string(runes[:24])
	}
	return name
}
