package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/intent/dashboard/internal/backend"
	"github.com/intent/dashboard/internal/config"
	"github.com/intent/dashboard/internal/dashboard"
	"github.com/intent/dashboard/internal/database"
	"github.com/intent/dashboard/internal/eventbus"
	"github.com/intent/dashboard/internal/handlers"
	"github.com/intent/dashboard/internal/middleware"
	"github.com/intent/dashboard/internal/session"
	"github.com/intent/dashboard/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	_ "github.com/intent/dashboard/docs" // Swagger docs
)

// @title INTENT Dashboard API
// @version 0.1.0
// @description Client dashboard for the INTENT tensor manipulation synthesizer.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:          "intent-dashboard",
		Short:        "Serve the INTENT synthesis dashboard",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	config.RegisterFlags(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), handlers.Version)
		},
	})
	return cmd
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapConfig := zap.NewProductionConfig()
	if !cfg.IsProduction() {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths = []string{"stdout"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}
	return zapConfig.Build()
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("INTENT dashboard starting",
		zap.String("version", handlers.Version),
		zap.String("environment", cfg.Environment),
		zap.String("backend_url", cfg.BackendURL),
	)

	shutdownTelemetry, err := telemetry.InitTracer(ctx, telemetry.Options{
		ServiceName:    "intent-dashboard",
		ServiceVersion: handlers.Version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTLPEndpoint,
	})
	switch {
	case errors.Is(err, telemetry.ErrNoEndpoint):
		logger.Info("tracing disabled")
	case err != nil:
		// Log but don't fail, as the collector might be down
		logger.Error("failed to initialize telemetry", zap.Error(err))
	default:
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(ctx); err != nil {
				logger.Error("failed to shutdown telemetry", zap.Error(err))
			}
		}()
	}

	breaker := backend.NewCircuitBreaker(cfg.BreakerFailures, cfg.BreakerSuccesses, cfg.BreakerTimeout)
	client := backend.NewHTTPClient(cfg.BackendURL, cfg.BackendTimeout, breaker, logger.Named("backend"))

	opts := dashboard.Options{
		Session: session.Config{
			PollInterval:         cfg.PollInterval,
			AbortTimeout:         cfg.AbortTimeout,
			DefaultTimeout:       cfg.SynthesisTimeout,
			DefaultSolutionCount: cfg.SolutionCount,
		},
		Debounce:        cfg.Debounce,
		ValidateTimeout: cfg.ValidateTimeout,
	}
	redisDep := handlers.Dependency{Name: "redis"}
	natsDep := handlers.Dependency{Name: "nats"}

	// Redis and NATS are optional; the dashboard degrades without them
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis, validation cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			opts.Cache = database.NewValidationCache(rdb, cfg.CacheTTL, logger.Named("cache"))
			redisDep.Pinger = rdb
			logger.Info("connected to redis")
		}
	}

	if cfg.NATSURL != "" {
		bus, err := eventbus.Connect(cfg.NATSURL, logger.Named("nats"))
		if err != nil {
			logger.Error("failed to connect to NATS, session events disabled", zap.Error(err))
		} else {
			defer bus.Close()
			if cfg.NATSStream != "" {
				if err := bus.EnsureStream(cfg.NATSStream, cfg.NATSSubject); err != nil {
					logger.Error("failed to init JetStream stream", zap.Error(err))
				}
			}
			opts.Publisher = eventbus.NewSessionPublisher(bus, cfg.NATSSubject, logger.Named("events"))
			natsDep.Pinger = bus
		}
	}

	svc := dashboard.New(client, opts, logger)
	defer svc.Close()

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	router := handlers.NewRouter(svc, handlers.RouterOptions{
		Health:      handlers.NewHealthHandler(client, breaker, redisDep, natsDep),
		RateLimiter: limiter,
		CORSOrigins: cfg.CORSOrigins,
		Release:     cfg.IsProduction(),
	}, logger)

	srv := &http.Server{
		Addr:        ":" + strconv.Itoa(cfg.Port),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays unset so /events connections are not cut off
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	logger.Info("server exited gracefully")
	return nil
}
