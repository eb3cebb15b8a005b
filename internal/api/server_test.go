package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/statusinfo/internal/metrics"
	"github.com/JakeFAU/statusinfo/pkg/statusinfo"
)

func TestServer_Healthz(t *testing.T) {
	t.Parallel()

	server := NewServer(statusinfo.New(), prometheus.NewRegistry(), zap.NewNop())
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestServer_Snapshot_ReturnsThreads(t *testing.T) {
	t.Parallel()

	reg := statusinfo.New()
	ctx := statusinfo.WithNewThread(context.Background(), "api")
	outer := reg.StartOperation(ctx, "outer", statusinfo.NoMaxSteps)
	inner := reg.StartOperation(ctx, "inner", 8)
	require.NoError(t, reg.UpdateCurrentOperation(ctx, 3))
	require.NoError(t, reg.AddListenerUntilEndOfCurrentOperation(ctx, statusinfo.OnAnyThread(nil)))

	server := NewServer(reg, prometheus.NewRegistry(), zap.NewNop())
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body SnapshotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Listeners)
	require.Equal(t, 2, body.Operations)
	require.Len(t, body.Threads, 1)
	require.Equal(t, "api", body.Threads[0].Name)

	ops := body.Threads[0].Operations
	require.Len(t, ops, 2)
	require.Equal(t, inner.ID, ops[0].ID)
	require.Equal(t, outer.ID, ops[0].ParentID)
	require.Equal(t, 3, ops[0].CurrentSteps)
	require.NotNil(t, ops[0].MaxSteps)
	require.Equal(t, 8, *ops[0].MaxSteps)
	require.Equal(t, 1, ops[0].DedicatedListeners)
	require.Nil(t, ops[1].MaxSteps)
	require.Empty(t, ops[1].ParentID)
}

func TestServer_Snapshot_Empty(t *testing.T) {
	t.Parallel()

	server := NewServer(statusinfo.New(), prometheus.NewRegistry(), zap.NewNop())
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"listeners":0,"operations":0,"threads":[]}`, rec.Body.String())
}

func TestServer_Thread(t *testing.T) {
	t.Parallel()

	reg := statusinfo.New()
	th := statusinfo.NewThread("lookup")
	h := reg.StartOperationIn(th, "work", statusinfo.NoMaxSteps)
	server := NewServer(reg, nil, zap.NewNop())

	tests := []struct {
		name   string
		path   string
		status int
		want   string
	}{
		{name: "found", path: "/v1/threads/" + strconv.FormatUint(th.ID, 10), status: http.StatusOK, want: h.ID},
		{name: "not numeric", path: "/v1/threads/abc", status: http.StatusBadRequest, want: "thread_id"},
		{name: "absent", path: "/v1/threads/999999", status: http.StatusNotFound, want: "no open operations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
			require.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestServer_NilSourceUnavailable(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, nil, nil)
	for _, path := range []string{"/v1/snapshot", "/v1/threads/1"} {
		rec := httptest.NewRecorder()
		server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestServer_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	promReg := prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTP(promReg)
	require.NoError(t, err)
	server := NewServer(statusinfo.New(), promReg, zap.NewNop(), WithHTTPMetrics(httpMetrics))

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "statusinfo_http_requests_total"), rec.Body.String())
}

func TestServer_RecoversPanics(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.ErrorLevel)
	server := NewServer(panickingSource{}, nil, zap.New(core))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/snapshot", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestServer_LogsRequests(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	server := NewServer(statusinfo.New(), nil, zap.New(core))
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "/healthz", fields["path"])
	require.Equal(t, "req-123", fields["request_id"])
	require.EqualValues(t, http.StatusOK, fields["status"])
}

type panickingSource struct{}

func (panickingSource) Snapshot() statusinfo.Snapshot {
	panic("snapshot exploded")
}
