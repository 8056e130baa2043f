// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/falseshow/internal/ai"
	"github.com/jason-s-yu/falseshow/internal/auth"
	"github.com/jason-s-yu/falseshow/internal/cache"
	"github.com/jason-s-yu/falseshow/internal/config"
	"github.com/jason-s-yu/falseshow/internal/database"
	"github.com/jason-s-yu/falseshow/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	logger := config.NewLogger()

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := handlers.NewTableServer(logger)
	srv.ThinkingTime = config.GetEnvDuration("BOT_THINKING_MS", ai.DefaultThinkingTime)

	// persistence is optional; tables run in memory without it
	if err := connectStores(ctx); err != nil {
		logger.Warnf("persistence disabled: %v", err)
	} else {
		srv.Persist = true
		logger.Info("persistence enabled")
	}

	idle := config.GetEnvDuration("TABLE_IDLE_TIMEOUT", 30*time.Minute)
	go srv.Store.RunCleanup(ctx, time.Minute, idle, srv.RemoveTable)

	addr := ":" + config.GetEnv("PORT", "8080")
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handlers.Routes(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", addr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func connectStores(ctx context.Context) error {
	if err := cache.ConnectRedis(); err != nil {
		return err
	}
	if err := database.ConnectDB(ctx); err != nil {
		return err
	}
	return database.Migrate(ctx)
}
