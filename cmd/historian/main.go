// cmd/historian drains table actions from Redis into Postgres and marks
// tables abandoned after a period of inactivity.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/falseshow/internal/cache"
	"github.com/jason-s-yu/falseshow/internal/config"
	"github.com/jason-s-yu/falseshow/internal/database"
	"github.com/jason-s-yu/falseshow/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := config.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	if err := database.ConnectDB(ctx); err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer database.DB.Close()
	if err := database.Migrate(ctx); err != nil {
		logger.Fatalf("migrate: %v", err)
	}

	svc := historian.New(historian.Config{
		Queue:      cache.QueueName(),
		BatchSize:  config.GetEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: config.GetEnvDuration("HISTORIAN_FLUSH_MS", 500*time.Millisecond),
		Inactivity: config.GetEnvDuration("TABLE_INACTIVITY_TIMEOUT", 10*time.Minute),
		MaxPending: config.GetEnvInt("HISTORIAN_MAX_PENDING", historian.DefaultMaxPending),
	}, cache.Rdb, logger.WithField("component", "historian"))
	svc.Sink = database.InsertGameActions
	svc.Abandon = database.MarkTableAbandoned

	logger.Infof("historian listening on %s", cache.QueueName())
	svc.Run(ctx)
	logger.Info("historian stopped")
}
