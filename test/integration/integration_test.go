package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
	"github.com/rpggio/seedsort/internal/pipeline"
	"github.com/rpggio/seedsort/internal/queue"
	"github.com/rpggio/seedsort/internal/scheduler"
	"github.com/rpggio/seedsort/internal/sink"
	"github.com/rpggio/seedsort/internal/sqlite"
)

type testEnv struct {
	db     *sqlite.DB
	ledger *sqlite.LedgerRepository
	svc    *engine.Service
}

func openEnv(t *testing.T, dbPath string, samplePct int) *testEnv {
	t.Helper()
	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	fileSink, err := sink.NewFileSink(t.TempDir())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := session.NewRegistry(nil)
	proc := pipeline.New(pipeline.Config{SamplePercentage: samplePct, Workers: 4},
		pipeline.NewRandomClassifier(nil), registry, fileSink, nil, logger, nil)
	ledger := sqlite.NewLedgerRepository(db)
	svc := engine.NewService(registry, queue.NewMemoryStore(), proc, ledger, engine.Options{
		Policy: scheduler.Policy{
			PollInterval:   5 * time.Millisecond,
			MaxItemLatency: 20 * time.Millisecond,
			MaxBatchSize:   8,
		},
		Logger: logger,
	})
	return &testEnv{db: db, ledger: ledger, svc: svc}
}

func (e *testEnv) close(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.svc.Shutdown(ctx))
	require.NoError(t, e.db.Close())
}

func TestLedgerSurvivesRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	env := openEnv(t, dbPath, 50)
	sess, err := env.svc.StartSession(ctx, "Lot_Persist")
	require.NoError(t, err)
	for i := range 30 {
		require.NoError(t, env.svc.SubmitItem(ctx, sess.ID, fmt.Sprintf("img_%d", i)))
	}
	_, err = env.svc.StopSession(ctx, sess.ID)
	require.NoError(t, err)
	require.NoError(t, env.svc.Wait(ctx, sess.ID))

	before, err := env.svc.GetSessionStats(ctx, sess.ID)
	require.NoError(t, err)
	env.close(t)

	env = openEnv(t, dbPath, 50)
	defer env.close(t)

	after, err := env.svc.GetSessionStats(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, session.StatusClosed, after.Status)
	require.Equal(t, int64(30), after.Processed())
	require.Equal(t, before.Accepted, after.Accepted)
	require.Equal(t, before.Rejected, after.Rejected)
	require.Equal(t, before.Sampled, after.Sampled)
	require.Equal(t, before.SampledItems, after.SampledItems)
	require.Equal(t, 0, after.Pending)

	history, err := env.svc.ListHistoricalSessions(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "Lot_Persist", history[0].Label)
}

func TestShutdownRecordsActiveSessions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	env := openEnv(t, dbPath, 0)
	var ids []string
	for i := range 5 {
		sess, err := env.svc.StartSession(ctx, fmt.Sprintf("Lot_%d", i))
		require.NoError(t, err)
		ids = append(ids, sess.ID)
		for j := range 3 {
			require.NoError(t, env.svc.SubmitItem(ctx, sess.ID, fmt.Sprintf("%d_%d", i, j)))
		}
	}
	env.close(t)

	db, err := sqlite.New(dbPath)
	require.NoError(t, err)
	defer db.Close()
	ledger := sqlite.NewLedgerRepository(db)

	for _, id := range ids {
		got, err := ledger.Get(ctx, id)
		require.NoError(t, err)
		require.Equal(t, int64(3), got.Processed())
		require.Zero(t, got.Sampled)
		require.NotNil(t, got.EndTime)
	}
}
