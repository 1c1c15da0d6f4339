package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ItemSubmitted()
	m.ItemSubmitted()
	m.BatchDispatched(TriggerLatency, 2)
	m.BatchDispatched(TriggerFlush, 1)
	m.ItemClassified("accepted")
	m.SampleFailed()
	m.SessionStarted()
	m.SessionStarted()
	m.SessionEnded()

	require.Equal(t, 2.0, testutil.ToFloat64(m.itemsSubmitted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues(TriggerLatency)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues(TriggerFlush)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.itemsClassified.WithLabelValues("accepted")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.sampleFailures))
	require.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ItemSubmitted()
	m.BatchDispatched(TriggerFlush, 3)
	m.ItemClassified("rejected")
	m.ClassifyFailed()
	m.SamplePersisted()
	m.SampleFailed()
	m.SessionStarted()
	m.SessionEnded()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ItemSubmitted()

	server := httptest.NewServer(m.Handler())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "seedsort_items_submitted_total 1")
}
