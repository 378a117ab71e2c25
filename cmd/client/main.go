package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-client/internal/archive"
	"github.com/lexiqai/voice-client/internal/audio"
	"github.com/lexiqai/voice-client/internal/bootstrap"
	"github.com/lexiqai/voice-client/internal/config"
	"github.com/lexiqai/voice-client/internal/configapi"
	"github.com/lexiqai/voice-client/internal/observability"
	"github.com/lexiqai/voice-client/internal/playback"
	"github.com/lexiqai/voice-client/internal/resilience"
	"github.com/lexiqai/voice-client/internal/session"
	"github.com/lexiqai/voice-client/internal/transport"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("agent_url", cfg.AgentURL).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice client starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Acquire the microphone and warm the location cache before anything else
	boot, err := bootstrap.Run(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Bootstrap failed")
	}

	engine, err := playback.NewOtoEngine(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Speaker initialization failed")
	}

	client := transport.NewClient(cfg.AgentURL, logger)
	if err := client.Dial(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Agent channel dial failed")
	}
	defer client.Close()

	var configSource session.ConfigSource
	var configAPI *configapi.Client
	if cfg.ConfigAPIURL != "" {
		configAPI = configapi.NewClient(
			cfg.ConfigAPIURL,
			cfg.CircuitBreakerMaxFailures,
			time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
			logger,
		)
		configAPI.SetRetryConfig(&resilience.RetryConfig{
			MaxAttempts:       cfg.RetryMaxAttempts,
			InitialBackoff:    time.Duration(cfg.RetryInitialBackoff) * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			BackoffMultiplier: 2.0,
			Jitter:            true,
		})
		configSource = configAPI
	}

	var newRecorder func(string) session.Recorder
	if cfg.ArchiveEnabled {
		newRecorder = func(sessionID string) session.Recorder {
			rec, err := archive.NewWAVRecorder(cfg.ArchiveDir, sessionID, cfg.CaptureSampleRate, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("Recording disabled for this session")
				return nil
			}
			return rec
		}
	}

	controller := session.NewController(session.Deps{
		Config:       cfg,
		Transport:    client,
		Device:       boot.Device,
		Engine:       engine,
		Tracker:      audio.NewActivityTracker(cfg.ActivityThreshold),
		ConfigSource: configSource,
		Locate:       boot.Location.Lookup,
		Domain:       boot.Domain,
		NewRecorder:  newRecorder,
		Logger:       logger,
	})
	defer controller.Close()

	go controller.Run(ctx, client.Events())

	diagnostics := startDiagnostics(cfg, configAPI, logger)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = diagnostics.Shutdown(shutdownCtx)
	}()

	runCommandLoop(ctx, controller, logger)

	logger.Info().Msg("Voice client exiting")
}

// startDiagnostics serves /health, /ready and /metrics on the diagnostics port.
func startDiagnostics(cfg *config.Config, configAPI *configapi.Client, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	checks := map[string]observability.HealthCheckFunc{}
	if configAPI != nil {
		checks["configapi"] = configAPI.HealthCheck
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.DiagnosticsPort),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.DiagnosticsPort).Msg("Diagnostics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Diagnostics server failed")
		}
	}()
	return server
}

// runCommandLoop reads user commands from stdin until quit or signal.
func runCommandLoop(ctx context.Context, controller *session.Controller, logger zerolog.Logger) {
	fmt.Println("Commands: start, stop, mute, history, status, quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			switch line {
			case "start":
				if err := controller.Start(ctx); err != nil {
					logger.Error().Err(err).Msg("Start failed")
				}
			case "stop":
				_ = controller.Stop()
			case "mute":
				if controller.ToggleMute() {
					fmt.Println("muted")
				} else {
					fmt.Println("unmuted")
				}
			case "history":
				printHistory(controller.History())
			case "status":
				printStatus(controller.Context())
			case "quit", "exit":
				return
			case "":
			default:
				fmt.Printf("unknown command %q\n", line)
			}
		}
	}
}

func printHistory(turns []session.Turn) {
	if len(turns) == 0 {
		fmt.Println("(no conversation yet)")
		return
	}
	for _, turn := range turns {
		if turn.EndOfConversation {
			fmt.Println("--- conversation ended ---")
			continue
		}
		fmt.Printf("%s: %s\n", turn.Role, turn.Message)
	}
}

func printStatus(sessCtx *session.Context) {
	fmt.Printf("active=%v muted=%v waiting_for_user=%v waiting_for_assistant=%v\n",
		sessCtx.Active(), sessCtx.Muted(), sessCtx.WaitingForUser(), sessCtx.WaitingForAssistant())
	if msg := sessCtx.LastError(); msg != "" {
		fmt.Printf("last error: %s\n", msg)
	}
}
