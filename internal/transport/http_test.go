package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/seedsort/internal/domain/session"
	"github.com/rpggio/seedsort/internal/engine"
)

type sessionStub struct {
	startFn   func(context.Context, string) (*session.Session, error)
	stopFn    func(context.Context, string) (*session.Session, error)
	submitFn  func(context.Context, string, string) error
	statsFn   func(context.Context, string) (*engine.Stats, error)
	sampledFn func(context.Context, string) ([]string, error)
	listFn    func(context.Context) ([]session.Summary, error)
}

func (s sessionStub) StartSession(ctx context.Context, label string) (*session.Session, error) {
	return s.startFn(ctx, label)
}
func (s sessionStub) StopSession(ctx context.Context, id string) (*session.Session, error) {
	return s.stopFn(ctx, id)
}
func (s sessionStub) SubmitItem(ctx context.Context, id, itemID string) error {
	return s.submitFn(ctx, id, itemID)
}
func (s sessionStub) GetSessionStats(ctx context.Context, id string) (*engine.Stats, error) {
	return s.statsFn(ctx, id)
}
func (s sessionStub) SampledItems(ctx context.Context, id string) ([]string, error) {
	return s.sampledFn(ctx, id)
}
func (s sessionStub) ListHistoricalSessions(ctx context.Context) ([]session.Summary, error) {
	return s.listFn(ctx)
}

func newTestServer(t *testing.T, svc SessionService, opts Options) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(NewServer(svc, opts))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHTTPServer_Health(t *testing.T) {
	server := newTestServer(t, sessionStub{}, Options{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_StartSession(t *testing.T) {
	server := newTestServer(t, sessionStub{
		startFn: func(_ context.Context, label string) (*session.Session, error) {
			return &session.Session{ID: "s1", Label: label}, nil
		},
	}, Options{})

	resp := postJSON(t, server.URL+"/start-session", `{"seed_lot":"Lot_1"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	out := decodeBody[StartSessionResponse](t, resp)
	require.Equal(t, "s1", out.SessionID)
	require.Equal(t, "Sorting session started for seed lot 'Lot_1'", out.Message)
}

func TestHTTPServer_ValidationErrors(t *testing.T) {
	server := newTestServer(t, sessionStub{}, Options{})

	cases := []struct {
		path string
		body string
	}{
		{"/start-session", `{}`},
		{"/start-session", `not json`},
		{"/stop-session", `{"session_id":""}`},
		{"/send-image", `{"session_id":"s1"}`},
	}
	for _, tc := range cases {
		resp := postJSON(t, server.URL+tc.path, tc.body)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, "%s %s", tc.path, tc.body)
		out := decodeBody[ErrorResponse](t, resp)
		require.NotEmpty(t, out.Error)
	}

	resp := postJSON(t, server.URL+"/send-image", `{"session_id":"s1"}`)
	out := decodeBody[ErrorResponse](t, resp)
	require.Contains(t, out.Error, "image_id")
}

func TestHTTPServer_StopSession(t *testing.T) {
	end := time.Now()
	server := newTestServer(t, sessionStub{
		stopFn: func(_ context.Context, id string) (*session.Session, error) {
			if id != "s1" {
				return nil, session.ErrUnknownSession
			}
			return &session.Session{ID: "s1", Status: session.StatusDraining, EndTime: &end}, nil
		},
	}, Options{})

	resp := postJSON(t, server.URL+"/stop-session", `{"session_id":"s1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decodeBody[StopSessionResponse](t, resp)
	require.Equal(t, "Session s1 stopped.", out.Message)
	require.NotNil(t, out.Session.EndTime)

	resp = postJSON(t, server.URL+"/stop-session", `{"session_id":"other"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Session not found or already stopped.", decodeBody[ErrorResponse](t, resp).Error)
}

func TestHTTPServer_SendImage(t *testing.T) {
	var got []string
	server := newTestServer(t, sessionStub{
		submitFn: func(_ context.Context, id, itemID string) error {
			if id != "s1" {
				return session.ErrUnknownSession
			}
			got = append(got, itemID)
			return nil
		},
	}, Options{})

	resp := postJSON(t, server.URL+"/send-image", `{"session_id":"s1","image_id":"img_1"}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, []string{"img_1"}, got)

	resp = postJSON(t, server.URL+"/send-image", `{"session_id":"gone","image_id":"img_2"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Invalid or inactive session.", decodeBody[ErrorResponse](t, resp).Error)
}

func TestHTTPServer_StatsAndSamples(t *testing.T) {
	server := newTestServer(t, sessionStub{
		statsFn: func(_ context.Context, id string) (*engine.Stats, error) {
			if id != "s1" {
				return nil, session.ErrNotFound
			}
			return &engine.Stats{
				Session: session.Session{ID: "s1", Label: "lot", Accepted: 4, Rejected: 2, Sampled: 1, SampledItems: []string{"img_3"}},
				Pending: 5,
			}, nil
		},
		sampledFn: func(_ context.Context, id string) ([]string, error) {
			if id != "s1" {
				return nil, session.ErrNotFound
			}
			return nil, nil
		},
	}, Options{})

	resp, err := http.Get(server.URL + "/stats/s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Equal(t, "s1", stats["session_id"])
	require.Equal(t, "lot", stats["seed_lot"])
	require.EqualValues(t, 4, stats["accepted"])
	require.EqualValues(t, 5, stats["pending"])

	resp, err = http.Get(server.URL + "/stats/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(server.URL + "/sampled-images/s1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	samples := decodeBody[SampledImagesResponse](t, resp)
	require.NotNil(t, samples.SampledImages)
	require.Empty(t, samples.SampledImages)
}

func TestHTTPServer_ListSessions(t *testing.T) {
	server := newTestServer(t, sessionStub{
		listFn: func(context.Context) ([]session.Summary, error) {
			return nil, nil
		},
	}, Options{})

	resp, err := http.Get(server.URL + "/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeBody[[]session.Summary](t, resp)
	require.NotNil(t, list)
	require.Empty(t, list)
}

func TestHTTPServer_ShuttingDown(t *testing.T) {
	server := newTestServer(t, sessionStub{
		startFn: func(context.Context, string) (*session.Session, error) {
			return nil, engine.ErrShuttingDown
		},
	}, Options{})

	resp := postJSON(t, server.URL+"/start-session", `{"seed_lot":"late"}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPServer_MountsExtraHandlers(t *testing.T) {
	extra := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	server := newTestServer(t, sessionStub{}, Options{MCP: extra, Metrics: extra})

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTeapot, resp.StatusCode)

	resp = postJSON(t, server.URL+"/mcp", `{}`)
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestHTTPServer_CORS(t *testing.T) {
	server := newTestServer(t, sessionStub{}, Options{})

	req, err := http.NewRequest(http.MethodOptions, server.URL+"/start-session", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	req, err = http.NewRequest(http.MethodGet, server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestHTTPServer_CORSRestrictedOrigins(t *testing.T) {
	server := newTestServer(t, sessionStub{}, Options{AllowedOrigins: []string{"https://sorter.example"}})

	req, err := http.NewRequest(http.MethodGet, server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://other.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
