package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bascanada/loggate/pkg/auth"
	"github.com/bascanada/loggate/pkg/config"
	"github.com/bascanada/loggate/pkg/log/client"
	"github.com/bascanada/loggate/pkg/log/impl/kibana"
	"github.com/bascanada/loggate/pkg/ratelimit"
	"github.com/bascanada/loggate/pkg/service"
	"github.com/bascanada/loggate/pkg/ty"
)

type fakeSearcher struct {
	result *client.SearchResult
	err    error
}

func (f *fakeSearcher) Search(_ context.Context, _ kibana.SearchInput) (*client.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.result == nil {
		return &client.SearchResult{Records: []client.LogRecord{}}, nil
	}
	return f.result, nil
}

func (f *fakeSearcher) DiscoverIndexes(_ context.Context) ([]string, error) {
	return []string{"breeze-v2*"}, nil
}

func (f *fakeSearcher) CurrentIndex() string   { return "" }
func (f *fakeSearcher) SetCurrentIndex(string) {}

func newTestServer(t *testing.T, fake *fakeSearcher, authRate int) *Server {
	logger := zaptest.NewLogger(t)
	tokens := auth.NewStore(logger)

	searchLimiter, err := ratelimit.NewLimiter(100, time.Minute, logger)
	require.NoError(t, err)
	authLimiter, err := ratelimit.NewLimiter(authRate, time.Minute, logger)
	require.NoError(t, err)
	configLimiter, err := ratelimit.NewLimiter(20, time.Minute, logger)
	require.NoError(t, err)

	services := Services{
		Logs:      service.NewLogService(fake, logger),
		Session:   service.NewSessionService(fake, logger),
		Index:     service.NewIndexService(fake, logger),
		Memory:    service.NewMemoryService(),
		Correlate: service.NewCorrelationService(fake, logger),
	}

	return NewServer("127.0.0.1", 0, services, tokens, config.NewOverrides(), Limiters{
		Search: searchLimiter,
		Auth:   authLimiter,
		Config: configLimiter,
	}, logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body ty.MI
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.GetString("status"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestSetAuthToken(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/set_auth_token",
		ty.MI{"auth_token": "secret", "ttl": 3600})

	require.Equal(t, http.StatusOK, rec.Code)
	token, ok := s.tokens.Get(auth.ContextKibana)
	require.True(t, ok)
	assert.Equal(t, "secret", token)
}

func TestSetAuthTokenEmpty(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/set_auth_token",
		ty.MI{"auth_token": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthEndpointRateLimited(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 2)
	h := s.Handler()

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/set_auth_token", ty.MI{"auth_token": "x"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/set_auth_token", ty.MI{"auth_token": "x"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeRateLimit, apiErr.Code)
	assert.Contains(t, apiErr.Message, "rate limit exceeded")
}

func TestSearchLogsHandler(t *testing.T) {
	fake := &fakeSearcher{result: &client.SearchResult{
		Total: 1,
		Records: []client.LogRecord{{
			Message: "payment failed",
			Level:   "ERROR",
			Fields:  ty.MI{"message": "payment failed"},
		}},
	}}
	s := newTestServer(t, fake, 10)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/search_logs",
		ty.MI{"query_text": "abc123 AND payment", "max_results": 10})
	require.Equal(t, http.StatusOK, rec.Code)

	var body service.SearchLogsResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Total)
	require.Len(t, body.Logs, 1)
}

func TestSearchLogsValidationError(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/search_logs",
		ty.MI{"query_text": "x; DROP TABLE logs"})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeValidation, apiErr.Code)
}

func TestExtractSessionNotFound(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/extract_session_id",
		ty.MI{"order_id": "ORDER_404"})

	require.Equal(t, http.StatusNotFound, rec.Code)
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, ErrCodeSessionMissing, apiErr.Code)
}

func TestDiscoverIndexesHandler(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/discover_indexes", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body service.IndexDiscovery
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"breeze-v2*"}, body.Indexes)
}

func TestMemoryBoardEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	h := s.Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/memory/create", ty.MI{"name": "outage"})
	require.Equal(t, http.StatusOK, rec.Code)
	var board service.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.NotEmpty(t, board.ID)

	rec = doJSON(t, h, http.MethodPost, "/api/memory/"+board.ID+"/add_finding",
		ty.MI{"note": "first finding", "timestamp": "2024-03-01T10:00:00Z"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/memory/"+board.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got service.Board
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Findings, 1)

	rec = doJSON(t, h, http.MethodPost, "/api/memory/"+board.ID+"/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/memory/"+board.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetConfigOverride(t *testing.T) {
	s := newTestServer(t, &fakeSearcher{}, 10)
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/set_config",
		ty.MI{"key_path": "kibana.defaultIndex", "value": "app-*"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "app-*", s.overrides.Get("kibana.defaultIndex", ""))
}
