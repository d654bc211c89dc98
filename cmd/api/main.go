package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/lllypuk/useradmin/internal/config"
	"github.com/lllypuk/useradmin/internal/infrastructure/httpserver"
)

// Shutdown constants.
const (
	gracefulShutdownSleep = 100 * time.Millisecond
)

// options are the command line flags. Everything else comes from the config file and env.
type options struct {
	ConfigPath string
	Mock       bool
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("useradmin", flag.ContinueOnError)
	fs.StringVarP(&opts.ConfigPath, "config", "c", "", "path to the YAML config file (default: search standard locations)")
	fs.BoolVar(&opts.Mock, "mock", false, "serve fixture users instead of calling the users API")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.LoadFromPath(opts.ConfigPath)
	if err != nil {
		//nolint:sloglint // No context available before logger setup
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if opts.Mock {
		cfg.App.Mode = config.AppModeMock
	}

	logger := setupLogger(cfg, os.Stdout)

	logger.Info("starting useradmin server",
		slog.String("version", "0.1.0"),
		slog.String("mode", string(cfg.App.Mode)),
	)

	if runErr := run(cfg, logger); runErr != nil {
		logger.Error("server error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	container, err := NewContainer(cfg, WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}

	// Cancelled on shutdown signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container.Start(ctx)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	if _, routeErr := SetupRoutes(server.Echo(), container); routeErr != nil {
		_ = container.Close()
		return routeErr
	}

	go gracefulShutdown(ctx, cancel, server, container, logger)

	if startErr := server.Start(); startErr != nil {
		cancel()
		_ = container.Close()
		return startErr
	}
	return nil
}

// setupLogger creates and configures the structured logger based on configuration.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.Log.Level),
		AddSource: cfg.IsDevelopment(),
	}

	switch cfg.Log.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default: // "json" or any other value defaults to JSON
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler).With(slog.String("app", cfg.App.Name))
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// gracefulShutdown handles graceful shutdown on OS signals.
func gracefulShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	server *httpserver.Server,
	container *Container,
	logger *slog.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	shutdownLogCtx := context.Background()

	select {
	case sig := <-quit:
		logger.InfoContext(shutdownLogCtx, "received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.InfoContext(shutdownLogCtx, "context cancelled, initiating shutdown")
	}

	// 1. Stop accepting new connections
	if err := server.Shutdown(context.Background()); err != nil {
		logger.ErrorContext(shutdownLogCtx, "server shutdown error", slog.String("error", err.Error()))
	}

	// 2. Cancel the main context to stop background services
	cancel()

	// Give background services a moment to clean up
	time.Sleep(gracefulShutdownSleep)

	// 3. Close container resources
	if err := container.Close(); err != nil {
		logger.ErrorContext(shutdownLogCtx, "container close error", slog.String("error", err.Error()))
	}

	logger.InfoContext(shutdownLogCtx, "server shutdown complete")
}
