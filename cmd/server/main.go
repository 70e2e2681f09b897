package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/notebox/internal/codec"
	"github.com/rpggio/notebox/internal/config"
	"github.com/rpggio/notebox/internal/domain/record"
	"github.com/rpggio/notebox/internal/mcp"
	"github.com/rpggio/notebox/internal/snapshot"
	"github.com/rpggio/notebox/internal/storage"
	"github.com/rpggio/notebox/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.TransportStdio {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	medium, closeMedium, err := openMedium(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMedium(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()

	collections, closeCollections := openCollections(ctx, cfg, medium, logger)
	defer closeCollections()

	mcpServer := mcp.NewServer(mcp.Config{
		Collections: collections,
		Version:     version,
		Logger:      logger,
	})

	if cfg.Transport.Mode == config.TransportStdio {
		return runStdioMode(ctx, logger, mcpServer)
	}

	transfers := make(map[string]transport.Transfer, len(collections))
	for _, c := range collections {
		transfers[c.Name] = c.Transfer
	}
	return runHTTPMode(ctx, logger, mcpServer, transfers, cfg.Server.Host, cfg.Server.Port)
}

// openCollections builds one snapshot store, repository and codec per
// configured collection, all sharing medium.
func openCollections(ctx context.Context, cfg config.Config, medium storage.Medium, logger *slog.Logger) ([]*mcp.Collection, func()) {
	names := make([]string, 0, len(cfg.Collections))
	for name := range cfg.Collections {
		names = append(names, name)
	}
	sort.Strings(names)

	var closers []func()
	collections := make([]*mcp.Collection, 0, len(names))
	for _, name := range names {
		key := cfg.Collections[name]
		collLogger := logger.With("collection", name)

		store := snapshot.NewStore(medium, key, collLogger)
		repo := record.NewRepository(ctx, store, record.WithLogger(collLogger))
		if err := repo.Err(); err != nil {
			collLogger.Warn("collection failed to load; serving it empty until reload", "key", key, "error", err)
		} else {
			collLogger.Info("collection loaded", "key", key, "records", len(repo.List()))
		}

		collections = append(collections, &mcp.Collection{
			Name:     name,
			Records:  repo,
			Transfer: codec.New(repo, codec.WithLogger(collLogger)),
		})
		closers = append(closers, func() {
			repo.Close()
			store.Close()
		})
	}

	return collections, func() {
		for _, fn := range closers {
			fn()
		}
	}
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport")

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server, transfers map[string]transport.Transfer, host string, port int) error {
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)

	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr: addr,
		Handler: transport.NewServer(transport.Config{
			MCP:         mcpHandler,
			Collections: transfers,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
