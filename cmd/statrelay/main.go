// StatRelay - network statistics backend for legacy handheld games.
//
// StatRelay terminates the obfuscated HTTP statistics protocol spoken
// by the game clients, verifies and decrypts their telemetry payloads,
// hands the clean bytes to per-game handlers, and signs the responses.
// It exposes a small REST API for operational visibility and publishes
// real-time telemetry via MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/statrelay-project/statrelay/internal/api"
	"github.com/statrelay-project/statrelay/internal/cli"
	"github.com/statrelay-project/statrelay/internal/config"
	"github.com/statrelay-project/statrelay/internal/dispatch"
	"github.com/statrelay-project/statrelay/internal/events"
	"github.com/statrelay-project/statrelay/internal/session"
	"github.com/statrelay-project/statrelay/internal/stats"
	"github.com/statrelay-project/statrelay/internal/telemetry"
	"github.com/statrelay-project/statrelay/internal/util"
)

const (
	AppName    = "StatRelay"
	AppVersion = "1.0.0"
	Banner     = `
   _____ _        _   _____      _
  / ____| |      | | |  __ \    | |
 | (___ | |_ __ _| |_| |__) |___| | __ _ _   _
  \___ \| __/ _' | __|  _  // _ \ |/ _' | | | |
  ____) | || (_| | |_| | \ \  __/ | (_| | |_| |
 |_____/ \__\__,_|\__|_|  \_\___|_|\__,_|\__, |
                                          __/ |
                                         |___/  v%s
 Legacy Handheld Statistics Backend
`
)

func main() {
	// Print banner
	fmt.Printf(Banner, AppVersion)
	fmt.Println()

	// Initialize logger with defaults first (will be reconfigured after config load)
	if err := util.InitLogger(util.DefaultLogConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.Info().
		Str("version", AppVersion).
		Str("platform", runtime.GOOS).
		Str("arch", runtime.GOARCH).
		Int("cpus", runtime.NumCPU()).
		Msg("starting StatRelay")

	// Load configuration
	cfg, err := config.Load(config.DefaultConfigDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Re-initialize logger with config-based settings
	logging := cfg.GetApplicationData().Logging
	logCfg := util.LogConfig{
		Level:      logging.Level,
		Directory:  logging.Directory,
		MaxSizeMB:  logging.MaxSizeMB,
		MaxBackups: logging.MaxBackups,
		Console:    true,
	}
	if err := util.InitLogger(logCfg); err != nil {
		log.Warn().Err(err).Msg("failed to reconfigure logger, using defaults")
	}

	// Validate configuration
	validation := config.Validate(cfg)
	for _, w := range validation.Warnings {
		log.Warn().Str("field", w.Field).Msg(w.Message)
	}
	if !validation.IsValid() {
		for _, e := range validation.Errors {
			log.Error().Str("field", e.Field).Msg(e.Message)
		}
		log.Fatal().Msg("configuration validation failed, please fix the errors above")
	}

	// Log system info
	sysInfo := util.GetSystemInfo()
	log.Info().
		Str("hostname", sysInfo.Hostname).
		Str("os", sysInfo.OS).
		Str("cpu", sysInfo.CPUModel).
		Int("cores", sysInfo.CPUCores).
		Uint64("memory_mb", sysInfo.TotalMemory).
		Msg("system information")

	// Create root context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize core components
	eventBus := events.NewBus()

	sessions := session.NewRegistry(
		cfg.Sessions.TTL(),
		cfg.Sessions.SweepInterval(),
		eventBus,
	)

	// Record store for games using the "recorder" handler
	recordStore, err := stats.NewRecordStore(cfg.Stats.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open stats record store")
	}
	defer recordStore.Close()

	// Build the dispatcher and register one deployment per configured game
	dispatcher := dispatch.New(sessions, eventBus, cfg.GetServer().DebugFaults)
	for _, game := range cfg.GetGames() {
		gameCfg, err := game.GameConfig()
		if err != nil {
			log.Fatal().Err(err).Str("game", game.Name).Msg("invalid game key")
		}

		var handler dispatch.Handler
		switch game.Handler {
		case "", "echo":
			handler = dispatch.EchoHandler()
		case "discard":
			handler = dispatch.DiscardHandler()
		case "recorder":
			handler = stats.NewRecorder(gameCfg.GameID, recordStore)
		default:
			log.Fatal().Str("game", game.Name).Str("handler", game.Handler).Msg("unknown handler")
		}

		if err := dispatcher.Register(game.Name, gameCfg, handler); err != nil {
			log.Fatal().Err(err).Str("game", game.Name).Msg("failed to register deployment")
		}
		log.Info().
			Str("game", game.Name).
			Str("game_id", gameCfg.GameID).
			Str("request", gameCfg.RequestVersion.String()).
			Str("response", gameCfg.ResponseVersion.String()).
			Bool("encrypted", gameCfg.Encrypted).
			Msg("registered game deployment")
	}

	// Initialize REST API
	apiServer := api.NewServer(cfg, dispatcher, sessions)

	// Initialize MQTT telemetry
	var mqttHandler *telemetry.MQTTHandler
	if cfg.GetApplicationData().MQTT.Enabled {
		mqttHandler, err = telemetry.NewMQTTHandler(cfg.GetApplicationData().MQTT, eventBus)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize MQTT, telemetry disabled")
		}
	}

	// Initialize CLI
	cliHandler := cli.NewCLI(cfg, eventBus, dispatcher, sessions)

	// Emit shutdown through the bus when the CLI asks for it
	shutdownCh := make(chan struct{}, 1)
	eventBus.Subscribe(events.EventShutdown, "main", func(ctx context.Context, e events.Event) error {
		select {
		case shutdownCh <- struct{}{}:
		default:
		}
		return nil
	})

	// ---------------------------------------------------------------
	// Launch all concurrent tasks
	// ---------------------------------------------------------------
	var wg sync.WaitGroup
	errCh := make(chan error, 4)

	// Task 1: HTTP server (with retry for port binding)
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Int("port", cfg.GetServer().ListenPort).Msg("starting HTTP server")
		if err := startWithRetry(ctx, "HTTP server", apiServer.Start, 15); err != nil {
			log.Error().Err(err).Msg("HTTP server failed after retries")
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Task 2: session janitor
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().
			Dur("ttl", cfg.Sessions.TTL()).
			Dur("sweep", cfg.Sessions.SweepInterval()).
			Msg("starting session janitor")
		sessions.Start(ctx)
	}()

	// Task 3: MQTT telemetry
	if mqttHandler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info().Msg("starting MQTT telemetry")
			if err := mqttHandler.Start(ctx); err != nil {
				log.Warn().Err(err).Msg("MQTT telemetry failed")
			}
		}()
	}

	// Task 4: Interactive CLI
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info().Msg("starting interactive CLI")
		cliHandler.Start(ctx)
	}()

	// ---------------------------------------------------------------
	// Graceful shutdown handling
	// ---------------------------------------------------------------
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-shutdownCh:
		log.Info().Msg("shutdown requested via CLI")
	case err := <-errCh:
		log.Error().Err(err).Msg("critical error, initiating shutdown")
	}

	log.Info().Msg("initiating graceful shutdown...")

	// Cancel the root context to signal all goroutines
	cancel()

	// Wait for all goroutines with timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("all tasks stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Warn().Msg("shutdown timed out after 30 seconds, forcing exit")
	}

	// Stop the event bus last
	eventBus.Stop()

	// Shutdown MQTT
	if mqttHandler != nil {
		mqttHandler.PublishShutdown()
	}

	log.Info().Msg("StatRelay stopped")
}

// startWithRetry attempts to start a listener/server with retry on bind
// errors. Uses a fixed 3-second interval between retries, which gives
// the OS time to release a socket held by a previous instance.
func startWithRetry(ctx context.Context, name string, startFn func(context.Context) error, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = startFn(ctx)
		if lastErr == nil {
			return nil
		}
		if i < maxRetries {
			log.Warn().
				Err(lastErr).
				Str("task", name).
				Int("attempt", i+1).
				Int("max", maxRetries).
				Msg("start failed, retrying in 3s")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
		}
	}
	return lastErr
}
