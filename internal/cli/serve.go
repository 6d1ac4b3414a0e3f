package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	_ "controlling_fluidics/docs"
	"controlling_fluidics/internal/config"
	"controlling_fluidics/internal/handlers"
	"controlling_fluidics/internal/influx"
	"controlling_fluidics/internal/logger"
	"controlling_fluidics/internal/repository"
	"controlling_fluidics/internal/repository/db"
	"controlling_fluidics/internal/server"
	"controlling_fluidics/internal/service"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API with manual valve control, script storage, run control,
the event log and the /ws run status stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return WrapExitError(ExitCommandError, "load config", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger.Get(cfg.LogLevel))
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return WrapExitError(ExitFailure, "init sqlite", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("sqlite_close_failed", "err", cerr)
		}
	}()

	client, err := connectMQTT(cfg, log)
	if err != nil {
		return WrapExitError(ExitFailure, "mqtt", err)
	}
	if client != nil {
		defer func() { _ = client.Close() }()
	}

	bank, err := buildBank(cfg, client, log)
	if err != nil {
		return WrapExitError(ExitFailure, "valves", err)
	}

	repos := repository.NewRepository(conn)
	telemetry := service.NewTelemetryService(repos.EventRepo, publisherOf(client), cfg.Telemetry.MQTTTopic, log)
	if cfg.Telemetry.Influx.Enabled {
		metrics, err := influx.Connect(cfg.Telemetry.Influx, log.Named("influx"))
		if err != nil {
			log.Warnw("influx_unavailable", "url", cfg.Telemetry.Influx.URL, "err", err)
		} else {
			defer func() { _ = metrics.Close() }()
			telemetry.SetMetrics(metrics)
		}
	}
	services := service.NewService(repos, service.Deps{
		Bank:      bank,
		Telemetry: telemetry,
		Runner: service.RunnerConfig{
			Tick: cfg.Engine.Tick,
			Poll: cfg.Engine.ProcessorPoll,
		},
		Auth: service.AuthConfig{
			SigningKey: cfg.Auth.SigningKey,
			TokenTTL:   cfg.Auth.TokenTTL,
		},
		Logger: log,
	})
	if cfg.Auth.SigningKey == "" {
		log.Warnw("auth_signing_key_missing", "effect", "tokens are invalidated on restart")
	}

	telemetryCtx, stopTelemetry := context.WithCancel(context.Background())
	telemetryDone := make(chan struct{})
	go func() {
		defer close(telemetryDone)
		telemetry.Run(telemetryCtx)
	}()

	apiHandler := handlers.NewHandler(services, log)
	srv := &server.Server{}
	serveErr := runHTTPServer(srv, cfg.Port, apiHandler)
	log.Infow("server_started", "port", cfg.Port, "driver", cfg.Driver.Kind, "valves", len(cfg.Valves))

	var runErr error
	select {
	case <-ctx.Done():
		log.Infow("shutting down server...")
	case runErr = <-serveErr:
		log.Errorw("server_failed", "err", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server_forced_shutdown", "err", err)
	}
	if err := services.Runner.Shutdown(shutdownCtx); err != nil {
		log.Errorw("runner_shutdown_failed", "err", err)
	}
	// leave the rig in its safe state
	if err := services.Valves.Reset(shutdownCtx); err != nil {
		log.Errorw("valves_reset_failed", "err", err)
	}

	stopTelemetry()
	<-telemetryDone

	if runErr != nil {
		return WrapExitError(ExitFailure, "http server", runErr)
	}
	return nil
}

// runHTTPServer runs the HTTP server in a separate goroutine. The channel
// receives the error if the server stops for any reason but Shutdown.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}
