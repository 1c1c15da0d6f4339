// Package testserver starts a full seedsort HTTP stack for end-to-end tests.
package testserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/seedsort/internal/client"
	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
	"github.com/rpggio/seedsort/internal/mcp"
	"github.com/rpggio/seedsort/internal/metrics"
	"github.com/rpggio/seedsort/internal/pipeline"
	"github.com/rpggio/seedsort/internal/queue"
	"github.com/rpggio/seedsort/internal/scheduler"
	"github.com/rpggio/seedsort/internal/sink"
	"github.com/rpggio/seedsort/internal/sqlite"
	"github.com/rpggio/seedsort/internal/transport"
)

type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	Service   *engine.Service
	Client    *client.Client
	SampleDir string
}

// Options tune the stack. Zero values pick short thresholds suitable for tests.
type Options struct {
	Policy           scheduler.Policy
	SamplePercentage int
}

func FastPolicy() scheduler.Policy {
	return scheduler.Policy{
		PollInterval:   10 * time.Millisecond,
		MaxItemLatency: 30 * time.Millisecond,
		MaxBatchSize:   8,
	}
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	if opts.Policy == (scheduler.Policy{}) {
		opts.Policy = FastPolicy()
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	sampleDir := t.TempDir()
	fileSink, err := sink.NewFileSink(sampleDir)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	registry := session.NewRegistry(nil)
	proc := pipeline.New(pipeline.Config{SamplePercentage: opts.SamplePercentage},
		pipeline.NewRandomClassifier(nil), registry, fileSink, m, logger, nil)
	svc := engine.NewService(registry, queue.NewMemoryStore(), proc, sqlite.NewLedgerRepository(db), engine.Options{
		Policy:  opts.Policy,
		Metrics: m,
		Logger:  logger,
	})

	mcpServer := mcp.NewServer(mcp.Config{Sessions: svc, TransportMode: "http", Logger: logger})
	server := httptest.NewServer(transport.NewServer(svc, transport.Options{
		MCP:     mcp.NewHTTPHandler(mcpServer),
		Metrics: m.Handler(),
		Logger:  logger,
	}))

	ts := &TestServer{
		Server:    server,
		DB:        db,
		Service:   svc,
		Client:    client.New(server.URL, 5*time.Second, logger),
		SampleDir: sampleDir,
	}

	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
		_ = db.Close()
	})

	return ts
}
