package main

import (
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/falseshow/internal/ai"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/jason-s-yu/falseshow/internal/identity"
	"github.com/sirupsen/logrus"
)

// maxSteps guards against a game that never terminates.
const maxSteps = 50000

// seat pairs an engine player with the bot driving it.
type seat struct {
	info game.PlayerInfo
	bot  *ai.Player
}

// outcome is one finished game.
type outcome struct {
	Winner string
	Rounds int
	Totals map[string]int
	Log    []game.RoundResult
}

func newSeats(r *rand.Rand, tiers []ai.Difficulty, log logrus.FieldLogger) ([]seat, error) {
	seats := make([]seat, len(tiers))
	taken := make(map[string]bool, len(tiers))
	for i, d := range tiers {
		id := fmt.Sprintf("p%d", i+1)
		name := identity.BotName(r, taken)
		taken[name] = true
		bot, err := ai.NewPlayer(id, d,
			ai.WithRand(rand.New(rand.NewSource(r.Int63()))),
			ai.WithThinkingTime(0),
			ai.WithLogger(log.WithField("player", id)),
		)
		if err != nil {
			return nil, err
		}
		seats[i] = seat{
			info: game.PlayerInfo{ID: id, Name: fmt.Sprintf("%s (%s)", name, d), Avatar: identity.RandomAvatar(r), IsBot: true},
			bot:  bot,
		}
	}
	return seats, nil
}

// playGame runs one bot-only game to completion.
func playGame(r *rand.Rand, seats []seat, settings game.Settings, log logrus.FieldLogger) (outcome, error) {
	e := game.NewEngine(game.WithRand(rand.New(rand.NewSource(r.Int63()))), game.WithLogger(log))
	infos := make([]game.PlayerInfo, len(seats))
	bots := make(map[string]*ai.Player, len(seats))
	for i, s := range seats {
		infos[i] = s.info
		bots[s.info.ID] = s.bot
	}
	if err := e.Initialize(infos, settings); err != nil {
		return outcome{}, err
	}

	var out outcome
	record := func(rr game.RoundResult) {
		out.Log = append(out.Log, rr)
		if rr.GameOver {
			out.Winner = rr.Winner
			out.Totals = rr.Totals
		}
	}

	for step := 0; step < maxSteps; step++ {
		switch e.State() {
		case game.StateGameOver:
			out.Rounds = e.RoundNumber()
			return out, nil
		case game.StateWaiting, game.StateRoundEnd:
			if _, err := e.StartNewRound(); err != nil {
				return out, err
			}
			continue
		}

		if id := e.PendingPenaltyPlayer(); id != "" {
			res, err := e.HandlePenaltyChoice(id, bots[id].ChoosePenalty(e.GetGameState(id), e.Hand(id)))
			if err != nil {
				return out, fmt.Errorf("penalty choice by %s: %w", id, err)
			}
			if res.RoundOver != nil {
				record(*res.RoundOver)
			}
			continue
		}

		id := e.CurrentPlayerID()
		action, ok := bots[id].Decide(e.GetGameState(id), e.Hand(id), e.Joker())
		if !ok || action.Kind == ai.ActionShow {
			rr, err := e.CallShow(id)
			if err != nil {
				return out, fmt.Errorf("show by %s: %w", id, err)
			}
			record(rr)
			continue
		}
		res, err := e.PlayCards(id, action.Cards)
		if err != nil {
			return out, fmt.Errorf("play by %s: %w", id, err)
		}
		if res.RoundOver != nil {
			record(*res.RoundOver)
		}
	}
	return out, fmt.Errorf("game did not finish within %d steps", maxSteps)
}
