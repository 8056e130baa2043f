package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/falseshow/internal/config"
	"github.com/sirupsen/logrus"
)

// DB is the global connection pool. Connect it once at application startup.
var DB *pgxpool.Pool

// connString prefers DATABASE_URL and otherwise assembles one from the
// POSTGRES_USER, POSTGRES_PASSWORD, PG_HOST, PG_PORT and PG_DATABASE variables.
func connString() string {
	if url := config.GetEnv("DATABASE_URL", ""); url != "" {
		return url
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s",
		config.GetEnv("POSTGRES_USER", "postgres"),
		config.GetEnv("POSTGRES_PASSWORD", ""),
		config.GetEnv("PG_HOST", "localhost"),
		config.GetEnv("PG_PORT", "5432"),
		config.GetEnv("PG_DATABASE", "falseshow"),
	)
}

// ConnectDB opens the pool and pings it.
func ConnectDB(ctx context.Context) error {
	cfg, err := pgxpool.ParseConfig(connString())
	if err != nil {
		return fmt.Errorf("unable to parse pgx config: %w", err)
	}

	DB, err = pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := DB.Ping(pingCtx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"host":     cfg.ConnConfig.Host,
		"database": cfg.ConnConfig.Database,
	}).Info("connected to database")
	return nil
}

// Migrate creates the tables this service writes to.
func Migrate(ctx context.Context) error {
	if _, err := DB.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS tables (
	id               UUID PRIMARY KEY,
	code             TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'waiting',
	settings         JSONB,
	final_game_state JSONB,
	winner_id        TEXT,
	start_time       TIMESTAMPTZ,
	end_time         TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS round_results (
	table_id     UUID NOT NULL REFERENCES tables(id) ON DELETE CASCADE,
	round_number INT NOT NULL,
	player_id    TEXT NOT NULL,
	hand_value   INT NOT NULL,
	points_added INT NOT NULL,
	total_score  INT NOT NULL,
	called_show  BOOLEAN NOT NULL DEFAULT FALSE,
	eliminated   BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (table_id, round_number, player_id)
);

CREATE TABLE IF NOT EXISTS game_actions (
	table_id       UUID NOT NULL,
	action_index   INT NOT NULL,
	actor_id       TEXT NOT NULL,
	action_type    TEXT NOT NULL,
	action_payload JSONB,
	created_at     TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (table_id, action_index)
);
`
