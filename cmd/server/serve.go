package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/rpggio/seedsort/internal/config"
	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
	"github.com/rpggio/seedsort/internal/mcp"
	"github.com/rpggio/seedsort/internal/metrics"
	"github.com/rpggio/seedsort/internal/pipeline"
	"github.com/rpggio/seedsort/internal/queue"
	"github.com/rpggio/seedsort/internal/sink"
	"github.com/rpggio/seedsort/internal/sqlite"
	"github.com/rpggio/seedsort/internal/transport"
)

const drainTimeout = 10 * time.Second

type serveOptions struct {
	host      string
	port      int
	dbPath    string
	transport string
	logLevel  string
}

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the batching engine with its REST, MCP and metrics endpoints",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, global, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "listen host")
	cmd.Flags().IntVar(&opts.port, "port", 0, "listen port")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite ledger path")
	cmd.Flags().StringVar(&opts.transport, "transport", "", "http or stdio")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")

	return cmd
}

// loadConfig applies defaults, file, env and then any flags that were set.
func loadConfig(cmd *cobra.Command, global *globalOptions, opts *serveOptions) (config.Config, error) {
	cfg, err := config.Load(global.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("db") {
		cfg.DB.Path = opts.dbPath
	}
	if flags.Changed("transport") {
		cfg.Transport.Mode = opts.transport
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runServe(ctx context.Context, cfg config.Config) error {
	stdio := cfg.Transport.Mode == "stdio"
	logger, closeLog, err := newLogger(cfg.Log, stdio)
	if err != nil {
		return err
	}
	defer closeLog()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return err
	}

	samples, err := newSampleSink(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	registry := session.NewRegistry(nil)
	proc := pipeline.New(cfg.Pipeline(), pipeline.NewRandomClassifier(nil), registry, samples, m, logger, nil)
	svc := engine.NewService(registry, queue.NewMemoryStore(), proc, sqlite.NewLedgerRepository(db), engine.Options{
		Policy:  cfg.Policy(),
		Metrics: m,
		Logger:  logger,
	})

	mcpServer := mcp.NewServer(mcp.Config{
		Sessions:      svc,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if stdio {
		logger.Info("starting stdio transport")
		// Run blocks until stdin closes or the context is canceled.
		if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("stdio server error", "error", err)
		}
	} else {
		router := transport.NewServer(svc, transport.Options{
			MCP:            mcp.NewHTTPHandler(mcpServer),
			Metrics:        m.Handler(),
			Logger:         logger,
			AllowedOrigins: cfg.Server.CORSOrigins,
		})
		httpServer := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", cfg.Addr())
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		if err := waitForShutdown(ctx, logger, httpServer, serveErr); err != nil {
			return err
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := svc.Shutdown(drainCtx); err != nil {
		logger.Error("session drain incomplete", "error", err)
		return err
	}
	return nil
}

func newSampleSink(cfg config.Config) (pipeline.Sink, error) {
	switch cfg.Sample.Sink {
	case "redis":
		client := sink.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		return sink.NewRedisSink(client, cfg.Redis.Prefix, cfg.RedisTTL()), nil
	default:
		return sink.NewFileSink(cfg.Sample.Dir)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(ctx context.Context, logger *slog.Logger, server *http.Server, serveErr <-chan error) error {
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok && err != nil {
			logger.Error("server error", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}
