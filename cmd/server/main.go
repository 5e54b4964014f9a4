package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"babel-relay/auth"
	"babel-relay/contract"
	"babel-relay/emotion"
	"babel-relay/history"
	"babel-relay/internal"
	"babel-relay/lang"
	"babel-relay/moderation"
	"babel-relay/observability"
	"babel-relay/runtime"
	"babel-relay/runtime/workers"
	"babel-relay/server"
	"babel-relay/transcription"
	"babel-relay/translation"
)

const (
	exitOK      = 0
	exitConfig  = 1
	exitRuntime = 2
)

func main() {
	os.Exit(run())
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanups always execute.
func run() int {
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return exitConfig
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	censorChar, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		return exitConfig
	}

	// Storage
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		log.Error("Database opening failed", "err", err)
		return exitRuntime
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	index, err := history.OpenIndex(config.BlugeFilepath)
	if err != nil {
		log.Error("Search index opening failed", "err", err)
		return exitRuntime
	}
	defer func() { _ = index.Close() }()

	// Collaborators
	words, err := moderation.LoadEmbedded()
	if err != nil {
		log.Error("Word lists loading failed", "err", err)
		return exitRuntime
	}
	moderator, err := moderation.NewModerator(words.Words, censorChar)
	if err != nil {
		log.Error("Moderator init failed", "err", err)
		return exitRuntime
	}
	log.Info("Moderation ready", "languages", words.Languages, "words", len(words.Words))

	translator := translation.NewCachedTranslator(
		translation.NewHTTPTranslator(config.TranslationEndpoint, config.TranslationAPIKey, config.TranslationTimeout),
		config.TranslationCacheTTL,
	)

	var transcriber contract.ITranscriber
	if config.TranscriptionEndpoint != "" {
		transcriber = transcription.NewHTTPTranscriber(
			config.TranscriptionEndpoint, config.TranscriptionAPIKey, config.TranscriptionTimeout)
		log.Info("Voice transcription enabled")
	}

	var tokens *auth.TokenService
	if config.AuthSecret != "" {
		tokens = auth.NewTokenService(config.AuthSecret, config.AuthTokenDuration)
		log.Info("Join token verification enabled")
	}

	monitor := observability.NewMonitor()
	languages := lang.NewSet(config.Languages())
	repo := history.NewMessageRepository(db, log, config.LimitMessages)
	recorder := history.NewRecorder(repo, index, config.HistoryBufferSize, log)

	// Supervision
	supervisor := workers.NewSupervisor(log)
	registry := runtime.NewRegistry(runtime.Deps{
		Log:        log,
		Translator: translator,
		Emotions:   emotion.NewDetector(),
		Moderator:  moderator,
		Recorder:   recorder,
		Monitor:    monitor,
		Languages:  languages,
	}, runtime.RegistryConfig{
		MaxRooms: config.MaxRooms,
		Controller: runtime.ControllerConfig{
			MaxParticipants:  config.MaxParticipants,
			CommandBuffer:    config.CommandBufferSize,
			PlanBuffer:       config.PlanBufferSize,
			TranslateTimeout: config.TranslationTimeout,
		},
	}, supervisor)

	supervisor.Add(registry, recorder,
		workers.NewHeartbeatWorker(log, monitor, registry, config.HeartbeatInterval))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	if config.DebugPort > 0 {
		internal.StartDebugServer(
			internal.NewDiagnostics(log, registry, monitor, repo, index), config.DebugPort)
	}

	// Websocket endpoint
	dispatcher := server.NewDispatcher(log, registry, languages, transcriber, tokens, monitor,
		server.DispatcherConfig{
			PingInterval:     config.PingInterval,
			IdleTimeout:      config.IdleTimeout,
			HandshakeTimeout: config.HandshakeTimeout,
			SendBuffer:       config.SendBufferSize,
		})

	httpServer := &http.Server{
		Addr:    config.Addr(),
		Handler: dispatcher.Routes(),
	}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Relay listening", "addr", config.Addr(), "languages", languages.Len())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		log.Error("HTTP server error", "err", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	supervisor.Stop()
	<-supervisorDone
	log.Info("Relay stopped cleanly")
	return exitOK
}
