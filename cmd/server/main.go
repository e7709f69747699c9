package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wherepulse/wherepulse/internal/broadcast"
	"github.com/wherepulse/wherepulse/internal/config"
	"github.com/wherepulse/wherepulse/internal/coordination"
	"github.com/wherepulse/wherepulse/internal/logging"
	"github.com/wherepulse/wherepulse/internal/presence"
	"github.com/wherepulse/wherepulse/internal/redis"
	"github.com/wherepulse/wherepulse/internal/server"
	"github.com/wherepulse/wherepulse/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(ctx context.Context, cfg *config.Config) *goredis.Client {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(connectCtx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func runGracefulShutdown(srv *server.Server, broadcaster *broadcast.Broadcaster, cancel context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		broadcaster.Stop()

		// Stops the notifier loop and unregisters the instance.
		cancel()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"instance_id", cfg.InstanceID,
		"presence_ttl", cfg.PresenceTTL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := setupRedis(ctx, cfg)
	defer func() { _ = redisClient.Close() }()

	store := redis.NewPresenceStore(redisClient, cfg.PresenceTTL)
	broadcaster := broadcast.NewBroadcaster(store, clock, cfg.MaxClientsPerSite, cfg.CoalesceWindow)
	notifier := coordination.NewNotifier(redisClient, broadcaster)
	writer := presence.NewWriter(store, broadcaster, notifier)
	registry := coordination.NewInstanceRegistry(redisClient, cfg.InstanceID, cfg.HeartbeatInterval, version.Get().Version)

	go notifier.Start(ctx)
	go registry.Start(ctx)

	srv := server.New(cfg, writer, broadcaster, registry, store, redisClient)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	done := runGracefulShutdown(srv, broadcaster, cancel)
	<-done

	// Give the registry a moment to unregister before exit.
	time.Sleep(100 * time.Millisecond)
	slog.Info("Shutdown complete")
}
