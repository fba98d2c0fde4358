package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"chat-broker/auth"
	"chat-broker/domain"
	"chat-broker/domain/event"
	"chat-broker/infrastructure/storage"
	"chat-broker/infrastructure/ws"
	"chat-broker/observability"
	"chat-broker/protocol"
	"chat-broker/runtime"
	"chat-broker/runtime/workers"
	"chat-broker/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
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
		fmt.Fprintf(os.Stderr, "Broker terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so that deferred cleanup (database
// close, connection drain) always executes before the process exits.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()

	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := observability.NewLogger(config.LogLevel)
	ctx := context.Background()

	// 2. Membership store (BadgerDB)
	options := badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(options)
	if err != nil {
		return exitRuntime, fmt.Errorf("membership store opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing membership store...")
		_ = db.Close()
	}()

	// 3. Core wiring: verifier -> registry -> index -> router -> dispatcher
	promRegistry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promRegistry)

	verifier := auth.NewVerifier(config.JWTSecret, config.JWTIssuer)
	oracle := storage.NewMembershipRepository(db, logger)
	index := runtime.NewIndex(logger, oracle, metrics)
	registry := runtime.NewRegistry(logger, verifier, index, metrics)
	router := runtime.NewRouter(logger, index, metrics)

	// The broker only reports the miss; the push dispatcher is an
	// external collaborator invoked by whoever wires this hook.
	router.SetPushHook(func(conversation domain.ConversationID, e event.DomainEvent) {
		logger.Debug("No local subscriber", "conversation", conversation)
	})

	dispatcher := protocol.NewDispatcher(logger, registry, index, router, metrics)
	brokerService := services.NewBrokerService(registry, dispatcher)

	// 4. Context & signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 2)

	// 5. Liveness monitor under supervision
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(workers.NewLivenessWorker(
		logger, registry, config.LivenessInterval, config.HeartbeatTimeout, metrics))
	go supervisor.Run(ctx)

	// 6. HTTP server: upgrade endpoint, metrics, health
	wsServer := ws.NewServer(logger, brokerService, ws.ServerConfig{
		SinkBufferSize:  config.SinkBufferSize,
		WriteTimeout:    config.WriteTimeout,
		MaxMessageBytes: config.MaxMessageBytes,
	})

	mux := http.NewServeMux()
	mux.Handle("/ws", wsServer)
	mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpServer := &http.Server{Addr: address, Handler: mux}

	go func() {
		logger.Info("Starting relay broker", "address", address)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for stop or error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: stop accepting, close live connections
	// with a documented reason, stop the workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	for _, conn := range registry.Snapshot() {
		conn.Close(domain.CloseShutdown)
		registry.Remove(conn.ID)
	}

	supervisor.Stop()
	logger.Info("Broker stopped cleanly")

	return exitOK, nil
}
