// cmd/simulate plays bot-only games and prints standings per difficulty tier.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jason-s-yu/falseshow/internal/ai"
	"github.com/jason-s-yu/falseshow/internal/config"
	"github.com/jason-s-yu/falseshow/internal/game"
	"github.com/jason-s-yu/falseshow/internal/rating"
	"github.com/pterm/pterm"
)

func main() {
	var (
		games         = flag.Int("games", 100, "number of games to play")
		players       = flag.String("players", "easy,medium,hard", "comma separated tiers, one per seat")
		seed          = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		scoreLimit    = flag.Int("score-limit", game.DefaultSettings().ScoreLimit, "elimination score")
		penaltyChoice = flag.Bool("penalty-choice", false, "let bots pick up the previous play instead of drawing")
		jokerZero     = flag.Bool("joker-zero", false, "joker scores zero in hand values")
		verbose       = flag.Bool("verbose", false, "print every round of the first game")
	)
	flag.Parse()

	logger := config.NewLogger()
	log := logger.WithField("component", "simulate")

	if *games < 1 {
		pterm.Error.Println("games must be at least 1")
		os.Exit(2)
	}
	tiers, err := parseTiers(*players)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}
	settings := game.DefaultSettings()
	settings.ScoreLimit = *scoreLimit
	settings.PenaltyChoice = *penaltyChoice
	settings.JokerScoresZero = *jokerZero
	settings.MaxPlayers = game.MaxPlayersHard
	if err := settings.Validate(); err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	r := rand.New(rand.NewSource(*seed))
	seats, err := newSeats(r, tiers, log)
	if err != nil {
		pterm.Error.Println(err)
		os.Exit(2)
	}

	pterm.DefaultSection.Printfln("%d games, %d seats, seed %d", *games, len(seats), *seed)

	wins := make(map[string]int, len(seats))
	ratings := make(map[string]rating.Rating, len(seats))
	rounds := 0
	for i := 0; i < *games; i++ {
		out, err := playGame(r, seats, settings, log)
		if err != nil {
			log.WithField("game", i+1).Fatalf("simulation failed: %v", err)
		}
		wins[out.Winner]++
		rounds += out.Rounds
		ratings = rating.Update(ratings, out.Totals)
		if i == 0 && *verbose {
			printRounds(seats, out)
		}
	}

	printStandings(seats, wins, ratings, *games)
	if n := wins[""]; n > 0 {
		pterm.Info.Printfln("%d games ended with every remaining player eliminated", n)
	}
	pterm.Info.Printfln("average rounds per game: %.1f", float64(rounds)/float64(*games))
}

func parseTiers(s string) ([]ai.Difficulty, error) {
	parts := strings.Split(s, ",")
	if len(parts) < game.MinPlayers || len(parts) > game.MaxPlayersHard {
		return nil, fmt.Errorf("need %d to %d players, got %d", game.MinPlayers, game.MaxPlayersHard, len(parts))
	}
	tiers := make([]ai.Difficulty, len(parts))
	for i, p := range parts {
		d, err := ai.ParseDifficulty(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		tiers[i] = d
	}
	return tiers, nil
}

func printRounds(seats []seat, out outcome) {
	for _, rr := range out.Log {
		pterm.DefaultSection.WithLevel(2).Printfln("Round %d (%s)", rr.Round, rr.Reason)
		if rr.Reason == game.RoundEndShow {
			verdict := pterm.Green("correct")
			if !rr.Correct {
				verdict = pterm.Red("wrong")
			}
			pterm.Printfln("%s called show: %s", nameOf(seats, rr.CallerID), verdict)
		}

		data := pterm.TableData{{"Player", "Hand", "Value", "Added", "Total"}}
		for _, hv := range rr.HandValues {
			hand := make([]string, len(hv.Cards))
			for i, c := range hv.Cards {
				hand[i] = colorCard(c.String(), c.Color())
			}
			data = append(data, []string{
				nameOf(seats, hv.PlayerID),
				strings.Join(hand, " "),
				fmt.Sprint(hv.Value),
				fmt.Sprint(rr.Scores[hv.PlayerID]),
				fmt.Sprint(rr.Totals[hv.PlayerID]),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			pterm.Warning.Println(err)
		}
		for _, id := range rr.Eliminated {
			pterm.Warning.Printfln("%s eliminated", nameOf(seats, id))
		}
	}
	if out.Winner != "" {
		pterm.Success.Printfln("winner: %s", nameOf(seats, out.Winner))
	}
}

func printStandings(seats []seat, wins map[string]int, ratings map[string]rating.Rating, games int) {
	sorted := append([]seat(nil), seats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return wins[sorted[i].info.ID] > wins[sorted[j].info.ID]
	})

	data := pterm.TableData{{"Seat", "Player", "Wins", "Win rate", "Rating"}}
	for _, s := range sorted {
		w := wins[s.info.ID]
		data = append(data, []string{
			s.info.ID,
			s.info.Avatar + " " + s.info.Name,
			fmt.Sprint(w),
			fmt.Sprintf("%.1f%%", 100*float64(w)/float64(games)),
			fmt.Sprintf("%.0f ± %.0f", ratings[s.info.ID].Value, 2*ratings[s.info.ID].Deviation),
		})
	}
	pterm.DefaultSection.Println("Standings")
	if err := pterm.DefaultTable.WithHasHeader().WithBoxed().WithData(data).Render(); err != nil {
		pterm.Warning.Println(err)
	}
}

func colorCard(s, color string) string {
	if color == "red" {
		return pterm.LightRed(s)
	}
	return s
}

func nameOf(seats []seat, id string) string {
	for _, s := range seats {
		if s.info.ID == id {
			return s.info.Name
		}
	}
	return id
}
