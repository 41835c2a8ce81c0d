package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtrack/internal/log"
	"subtrack/internal/services"
	"subtrack/internal/store/memory"
)

func newTestServer(t *testing.T, ready func(context.Context) error) *Server {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	svc := services.NewSubscriptionService(memory.New(memory.WithClock(now)),
		services.WithClock(now), services.WithLogger(log.Discard()))
	srv := NewServer(svc, Config{
		Addr:           ":0",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
		Ready:          ready,
		Logger:         log.Discard(),
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := do(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"ok": true, "service": "subscription-manager"}, body)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rec, _ := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec, _ = do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "subtrack_http_requests_total")
}

func TestReadyzFailure(t *testing.T) {
	srv := newTestServer(t, func(context.Context) error { return errors.New("db locked") })
	rec, _ := do(t, srv, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := do(t, srv, http.MethodPost, "/subscriptions",
		`{"name":"Adobe Creative Cloud","cost":54.99,"cycle":"monthly","category":"software"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Subscription 'Adobe Creative Cloud' added successfully", body["message"])
	assert.Equal(t, "2025-07-01T12:00:00Z", body["next_billing"])
	sub := body["subscription"].(map[string]any)
	id := sub["id"].(string)
	require.NotEmpty(t, id)

	rec, body = do(t, srv, http.MethodGet, "/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, body = do(t, srv, http.MethodPatch, "/subscriptions/"+id, `{"cost":59.99}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, body["updated"])
	assert.Equal(t, 59.99, body["subscription"].(map[string]any)["cost"])

	rec, body = do(t, srv, http.MethodPatch, "/subscriptions/unknown", `{"cost":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["updated"])

	rec, body = do(t, srv, http.MethodPost, "/subscriptions/"+id+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancellation_prepared", body["status"])
	assert.Equal(t, []any{"Canva Pro", "Affinity Suite"}, body["alternatives"])
	assert.Contains(t, body["email_template"], "Monthly Cost: EUR59.99")
	assert.Len(t, body["next_steps"], 5)

	rec, body = do(t, srv, http.MethodPost, "/subscriptions/"+id+"/cancel?generate_email=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "email_template")
}

func TestCancelUnknownIsNotFound(t *testing.T) {
	srv := newTestServer(t, nil)
	rec, body := do(t, srv, http.MethodPost, "/subscriptions/Disney+/cancel", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "SUBSCRIPTION_NOT_FOUND", body["code"])
	assert.Equal(t, "Subscription 'Disney+' not found", body["error"])
}

func TestIngestAnalyzeRecommend(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := do(t, srv, http.MethodPost, "/ingest", `{"source":"api","records":[
		{"service":"Netflix","amount":15.99,"cycle":"monthly","category":"streaming"},
		{"service":"Spotify","amount":9.99,"cycle":"monthly","category":"streaming"},
		{"service":"Hulu","amount":7.99,"cycle":"monthly","category":"streaming"},
		{"service":"","amount":3}
	]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, body["ingested"], 3)
	assert.Len(t, body["skipped"], 1)
	assert.Equal(t, 33.97, body["total_monthly"])

	rec, body = do(t, srv, http.MethodGet, "/analysis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	analysis := body["analysis"].(map[string]any)
	assert.Equal(t, 33.97, analysis["total_monthly"])
	assert.Equal(t, 407.64, analysis["total_yearly"])
	assert.Equal(t, "EUR", body["currency"])

	rec, body = do(t, srv, http.MethodGet, "/recommendations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	recs := body["recommendations"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, "bundle", recs[0].(map[string]any)["type"])
	assert.Equal(t, 15.0, recs[0].(map[string]any)["savings"])
}

func TestAnalysisEmpty(t *testing.T) {
	srv := newTestServer(t, nil)
	rec, body := do(t, srv, http.MethodGet, "/analysis", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No subscriptions found", body["message"])
	assert.NotContains(t, body, "analysis")
}

func TestIngestAsyncWithoutQueue(t *testing.T) {
	srv := newTestServer(t, nil)
	rec, body := do(t, srv, http.MethodPost, "/ingest", `{"records":[],"async":true}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SOURCE_UNAVAILABLE", body["code"])
}

func TestScan(t *testing.T) {
	srv := newTestServer(t, nil)

	rec, body := do(t, srv, http.MethodPost, "/scan", `{"source":"email"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(5), body["subscriptions_found"])

	rec, body = do(t, srv, http.MethodPost, "/scan", `{"source":"carrier-pigeon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SOURCE_INVALID", body["code"])
	assert.Equal(t, "Unknown source 'carrier-pigeon'", body["error"])

	rec, body = do(t, srv, http.MethodPost, "/scan", `{"source":"csv","file_path":"/etc/passwd"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", body["code"])
}

func TestAlternatives(t *testing.T) {
	srv := newTestServer(t, nil)

	_, body := do(t, srv, http.MethodGet, "/alternatives/Dropbox%20Plus", "")
	assert.Equal(t, "Dropbox Plus", body["service"])
	assert.Equal(t, []any{"Google One", "iCloud+"}, body["alternatives"])

	_, body = do(t, srv, http.MethodGet, "/alternatives/Unknown", "")
	assert.Equal(t, []any{}, body["alternatives"])
}

func TestRequestValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"empty body", http.MethodPost, "/subscriptions", ""},
		{"malformed json", http.MethodPost, "/subscriptions", `{"name":`},
		{"unknown field", http.MethodPost, "/subscriptions", `{"name":"Netflix","cost":1,"price":2}`},
		{"trailing data", http.MethodPost, "/subscriptions", `{"name":"Netflix","cost":1}{}`},
		{"negative cost", http.MethodPost, "/subscriptions", `{"name":"Netflix","cost":-1}`},
		{"blank name", http.MethodPost, "/subscriptions", `{"name":"  ","cost":1}`},
		{"empty patch", http.MethodPatch, "/subscriptions/x", `{}`},
		{"bad status", http.MethodPatch, "/subscriptions/x", `{"status":"paused"}`},
		{"bad bool", http.MethodPost, "/subscriptions/x/cancel?generate_email=maybe", ""},
		{"missing records", http.MethodPost, "/ingest", `{"source":"api"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, srv, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "VALIDATION_FAILED", body["code"])
		})
	}
}

func TestBodyTooLarge(t *testing.T) {
	srv := newTestServer(t, nil)
	big := `{"name":"` + strings.Repeat("a", MaxBodyBytes) + `","cost":1}`

	req := httptest.NewRequest(http.MethodPost, "/subscriptions", bytes.NewBufferString(big))
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "exceeds")
}

func TestRateLimit(t *testing.T) {
	svc := services.NewSubscriptionService(memory.New(), services.WithLogger(log.Discard()))
	srv := NewServer(svc, Config{RateLimitRPS: 0.01, RateLimitBurst: 1, Logger: log.Discard()})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	rec, _ := do(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
