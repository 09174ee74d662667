package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wander-core/api"
	"wander-core/auth"
	"wander-core/internal"
	"wander-core/moderation"
	"wander-core/observability"
	"wander-core/presence"
	"wander-core/realtime"
	"wander-core/storage"
	"wander-core/transport"
	"wander-core/workers"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern ensures all 'defer' statements (like database cleanup) run before the program
// exits, and keeps the initialization logic testable outside of main.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Databases (BadgerDB + Bluge)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		debugPort := 8081
		endpoint := "/inspect"
		logger.Info("Debug Badger inspector available",
			"url", fmt.Sprintf("http://localhost:%d%s", debugPort, endpoint))
		database.StartDebugServer(db, debugPort, endpoint, storeMapper)
	}

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Moderation dictionaries
	wordList, err := moderation.LoadWordLists()
	if err != nil {
		return exitRuntime, fmt.Errorf("loading moderation dictionaries: %w", err)
	}
	moderator, err := moderation.NewModerator(wordList.Words, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("building moderator: %w", err)
	}

	// 4. Storage & realtime core
	messages := storage.NewMessageRepository(db, logger, config.LimitMessages)
	notifications := storage.NewNotificationRepository(db, logger)
	directory := storage.NewUserRepository(db)
	search := storage.NewSearchIndex(blugeWriter, logger)

	table := presence.NewTable()
	monitor := observability.NewMonitor()
	hub := realtime.NewHub(logger, table, monitor, config.LegacyBroadcast)
	lifecycle := realtime.NewLifecycle(logger, table, hub)
	router := realtime.NewRouter(logger, messages, search, directory, moderator, hub, monitor, time.Now)
	tracker := realtime.NewStatusTracker(logger, messages, hub, monitor)
	notifier := realtime.NewNotifier(logger, notifications, hub, monitor, time.Now)

	// 5. Surfaces
	gateway := transport.NewGateway(logger, transport.GatewayConfig{
		Host:                 config.Host,
		Port:                 config.Port,
		ReadTimeout:          config.ReadTimeout,
		WriteTimeout:         config.WriteTimeout,
		ConnectionBufferSize: config.ConnectionBufferSize,
	}, lifecycle, router, tracker, notifier)

	tokens := auth.NewTokens(config.JWTSecret, config.AuthTokenDuration)
	httpServer := api.NewServer(logger, fmt.Sprintf("%s:%d", config.Host, config.HTTPPort),
		tokens, table, directory, directory, messages, notifications, search, notifier, monitor)

	heartbeat := workers.NewHeartbeatWorker(logger, monitor, table, config.HeartbeatInterval)

	// 6. Context & Signals
	// NotifyContext captures OS signals and cancels the context to trigger a shutdown.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 7. Supervision
	sup := workers.NewSupervisor(logger)
	done := make(chan struct{})
	go func() {
		sup.Add(gateway, httpServer, heartbeat).Run(ctx)
		close(done)
	}()

	logger.Info("Realtime core started",
		"gateway", fmt.Sprintf("%s:%d", config.Host, config.Port),
		"http", fmt.Sprintf("%s:%d", config.Host, config.HTTPPort),
		"legacy_broadcast", config.LegacyBroadcast,
		"at", time.Now().UTC())

	// 8. Wait for Stop, then drain the workers
	<-ctx.Done()
	logger.Info("Shutdown signal received")
	sup.Stop()
	<-done
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}
