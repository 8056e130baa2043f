// internal/database/game.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/falseshow/internal/cache"
	"github.com/jason-s-yu/falseshow/internal/game"
)

// UpsertTable records a table when its first round starts.
func UpsertTable(ctx context.Context, tableID uuid.UUID, code string, settings game.Settings) error {
	js, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	q := `
		INSERT INTO tables (id, code, status, settings, start_time)
		VALUES ($1, $2, 'in_progress', $3, NOW())
		ON CONFLICT (id) DO UPDATE SET status = 'in_progress'
	`
	if _, err := DB.Exec(ctx, q, tableID, code, js); err != nil {
		return fmt.Errorf("upsert table %s: %w", tableID, err)
	}
	return nil
}

type roundRow struct {
	playerID   string
	handValue  int
	added      int
	total      int
	calledShow bool
	eliminated bool
}

// roundRows flattens a round result into one row per scored player.
func roundRows(res game.RoundResult) []roundRow {
	eliminated := make(map[string]bool, len(res.Eliminated))
	for _, id := range res.Eliminated {
		eliminated[id] = true
	}
	rows := make([]roundRow, 0, len(res.HandValues))
	for _, hv := range res.HandValues {
		rows = append(rows, roundRow{
			playerID:   hv.PlayerID,
			handValue:  hv.Value,
			added:      res.Scores[hv.PlayerID],
			total:      res.Totals[hv.PlayerID],
			calledShow: res.Reason == game.RoundEndShow && res.CallerID == hv.PlayerID,
			eliminated: eliminated[hv.PlayerID],
		})
	}
	return rows
}

// RecordRoundResult stores every player's outcome for one round.
func RecordRoundResult(ctx context.Context, tableID uuid.UUID, res game.RoundResult) error {
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO round_results
				(table_id, round_number, player_id, hand_value, points_added, total_score, called_show, eliminated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (table_id, round_number, player_id) DO NOTHING
		`
		for _, r := range roundRows(res) {
			if _, e := tx.Exec(ctx, q, tableID, res.Round, r.playerID, r.handValue, r.added, r.total, r.calledShow, r.eliminated); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert round %d results: %w", res.Round, err)
	}
	return nil
}

// StoreFinalGameState marks the table completed and keeps its last snapshot.
func StoreFinalGameState(ctx context.Context, tableID uuid.UUID, winnerID string, snap game.Snapshot) error {
	js, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal final snapshot: %w", err)
	}
	q := `
		UPDATE tables
		SET final_game_state = $1, winner_id = $2, status = 'completed', end_time = NOW()
		WHERE id = $3
	`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, e := tx.Exec(ctx, q, js, winnerID, tableID)
		return e
	})
	if err != nil {
		return fmt.Errorf("storing final game state in DB: %w", err)
	}
	return nil
}

// InsertGameActions writes a batch of action records in one transaction.
func InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := insertGameActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of table %s: %w", rec.ActionIndex, rec.TableID, err)
			}
		}
		return nil
	})
}

func insertGameActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO game_actions (table_id, action_index, actor_id, action_type, action_payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (table_id, action_index) DO NOTHING
	`
	_, err = tx.Exec(ctx, q, rec.TableID, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, time.UnixMilli(rec.Timestamp))
	return err
}

// MarkTableAbandoned flags a table that stopped producing actions before it finished.
func MarkTableAbandoned(ctx context.Context, tableID uuid.UUID) error {
	q := `
		UPDATE tables
		SET status = 'abandoned', end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	if _, err := DB.Exec(ctx, q, tableID); err != nil {
		return fmt.Errorf("mark table %s abandoned: %w", tableID, err)
	}
	return nil
}
