package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/chain"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/health"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/history"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/realtime"
	"github.com/notlelouch/go-interview-practice/Token-Risk-Analyzer/internal/scoring"
)

const usdt = "0xdAC17F958D2ee523a2206206994597C13D831ec7"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAnalyzer struct {
	store       history.Store
	err         error
	lastNetwork string
	lastAddress string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, network, address string) (*history.Record, error) {
	f.lastNetwork, f.lastAddress = network, address
	if f.err != nil {
		return nil, f.err
	}
	if _, err := chain.Lookup(network); err != nil {
		return nil, err
	}
	addr, err := chain.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	r := history.NewRecord(network, addr, scoring.Assessment{Score: 66, RiskLevel: scoring.RiskMedium}, time.Now())
	if f.store != nil {
		_ = f.store.Save(ctx, r)
	}
	return r, nil
}

type brokenStore struct{ history.MemoryStore }

func (*brokenStore) List(ctx context.Context, q history.Query) ([]*history.Record, error) {
	return nil, errors.New("connection refused")
}

func newTestServer(a Analyzer, store history.Store, reg *health.Registry) *Server {
	return New(Options{
		Port:           "0",
		DefaultNetwork: "ethereum",
		Analyzer:       a,
		History:        store,
		Health:         reg,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestAnalyze_Success(t *testing.T) {
	a := &fakeAnalyzer{}
	s := newTestServer(a, nil, nil)

	w := do(t, s, http.MethodPost, "/v1/analyze", `{"address":"`+usdt+`","network":"bsc"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var got history.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 66, got.Score)
	assert.Equal(t, scoring.RiskMedium, got.RiskLevel)
	assert.Equal(t, "bsc", got.Network)
	assert.Equal(t, strings.ToLower(usdt), got.Address)
	assert.NotEmpty(t, got.ID)
}

func TestAnalyze_DefaultsNetwork(t *testing.T) {
	a := &fakeAnalyzer{}
	s := newTestServer(a, nil, nil)

	w := do(t, s, http.MethodPost, "/v1/analyze", `{"address":"`+usdt+`"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ethereum", a.lastNetwork)
	assert.Equal(t, usdt, a.lastAddress)
}

func TestAnalyze_BadInput(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)

	tests := []struct {
		name  string
		body  string
		error string
	}{
		{"malformed json", `{"address":`, "invalid_request"},
		{"missing address", `{"network":"ethereum"}`, "invalid_request"},
		{"bad address", `{"address":"0x123"}`, "invalid_address"},
		{"unknown network", `{"address":"` + usdt + `","network":"solana"}`, "unsupported_network"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/analyze", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.error, body["error"])
		})
	}
}

func TestAnalyze_UnexpectedError(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{err: errors.New("boom")}, nil, nil)

	w := do(t, s, http.MethodPost, "/v1/analyze", `{"address":"`+usdt+`"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestAnalyze_Cancelled(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{err: context.Canceled}, nil, nil)

	w := do(t, s, http.MethodPost, "/v1/analyze", `{"address":"`+usdt+`"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAssessments_MostRecentFirst(t *testing.T) {
	store := history.NewMemoryStore()
	a := &fakeAnalyzer{store: store}
	s := newTestServer(a, store, nil)

	for _, network := range []string{"ethereum", "bsc", "ethereum"} {
		w := do(t, s, http.MethodPost, "/v1/analyze", `{"address":"`+usdt+`","network":"`+network+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(t, s, http.MethodGet, "/v1/tokens/"+usdt+"/assessments", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Address     string            `json:"address"`
		Assessments []*history.Record `json:"assessments"`
		Count       int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, strings.ToLower(usdt), body.Address)
	require.Equal(t, 3, body.Count)
	assert.Equal(t, "ethereum", body.Assessments[0].Network)
	assert.Equal(t, "bsc", body.Assessments[1].Network)

	w = do(t, s, http.MethodGet, "/v1/tokens/"+usdt+"/assessments?network=BSC", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = do(t, s, http.MethodGet, "/v1/tokens/"+usdt+"/assessments?limit=2", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestAssessments_Empty(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, history.NewMemoryStore(), nil)

	w := do(t, s, http.MethodGet, "/v1/tokens/"+usdt+"/assessments", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"assessments":[]`)
}

func TestAssessments_BadInput(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, history.NewMemoryStore(), nil)

	paths := []string{
		"/v1/tokens/not-an-address/assessments",
		"/v1/tokens/" + usdt + "/assessments?limit=abc",
		"/v1/tokens/" + usdt + "/assessments?limit=-1",
		"/v1/tokens/" + usdt + "/assessments?network=solana",
	}
	for _, p := range paths {
		w := do(t, s, http.MethodGet, p, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, p)
	}
}

func TestAssessments_StoreFailure(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, &brokenStore{}, nil)

	w := do(t, s, http.MethodGet, "/v1/tokens/"+usdt+"/assessments", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRequestID(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)

	w := do(t, s, http.MethodGet, "/health/live", "")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestHealth(t *testing.T) {
	reg := health.NewRegistry(time.Second)
	reg.Register("history", func(ctx context.Context) health.Status { return health.Status{Healthy: true} })
	s := newTestServer(&fakeAnalyzer{}, nil, reg)

	w := do(t, s, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	require.Len(t, body.Checks, 1)
	assert.Equal(t, "history", body.Checks[0].Name)

	reg.Register("eventbus", func(ctx context.Context) health.Status {
		return health.Status{Healthy: false, Detail: "not connected"}
	})
	w = do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}

func TestReadiness(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)

	w := do(t, s, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	s.ready.Store(true)
	w = do(t, s, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)
	do(t, s, http.MethodGet, "/health/live", "")

	w := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tokenrisk_http_requests_total")
}

func TestRecoversFromPanic(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)
	s.Router().GET("/panic", func(c *gin.Context) { panic("kaboom") })

	w := do(t, s, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal_error")
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := New(Options{
		Port:          "0",
		Analyzer:      &fakeAnalyzer{},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		ShutdownGrace: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, s.ready.Load())
}

func TestStream_DeliversAnalyses(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := realtime.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	s := New(Options{Analyzer: &fakeAnalyzer{}, Stream: hub, Logger: logger})
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	r := history.NewRecord("ethereum", usdt, scoring.Assessment{Score: 21, RiskLevel: scoring.RiskExtreme}, time.Now())
	require.NoError(t, hub.PublishAssessed(context.Background(), r))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e realtime.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, realtime.EventTokenAssessed, e.Type)
	assert.Equal(t, r.ID, e.Data.ID)
}

func TestStream_NotRoutedWithoutHub(t *testing.T) {
	s := newTestServer(&fakeAnalyzer{}, nil, nil)
	w := do(t, s, http.MethodGet, "/v1/stream", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
