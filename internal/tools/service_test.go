package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const petV3JSON = `{"openapi":"3.0.3","info":{"title":"Pets","version":"1"},"paths":{
  "/pets":{"get":{"operationId":"listPets","summary":"List pets","tags":["pets"],"responses":{"200":{"description":"ok"}}}},
  "/pets/{id}":{"get":{"operationId":"getPetById","responses":{"200":{"description":"ok"}}}}
}}`

func specServer(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(petV3JSON))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestAnalyze_Success(t *testing.T) {
	t.Parallel()
	srv, _ := specServer(t)
	svc := NewService(Config{}, zap.NewNop())

	res := svc.Analyze(context.Background(), AnalyzeRequest{URL: srv.URL})
	require.True(t, res.Success)
	require.Nil(t, res.Error)
	require.NotNil(t, res.API)
	assert.Equal(t, "Pets", res.API.Title)
	assert.Equal(t, 2, res.API.TotalEndpoints)
	assert.Equal(t, "OpenAPI 3.0.3", res.API.SpecVersion)
	assert.False(t, res.API.ScrapedFromUI)
	assert.Len(t, res.Endpoints, 2)
}

func TestAnalyze_QueryRanksEndpoints(t *testing.T) {
	t.Parallel()
	srv, _ := specServer(t)
	svc := NewService(Config{}, zap.NewNop())

	res := svc.Analyze(context.Background(), AnalyzeRequest{URL: srv.URL, Query: "listPets", Limit: 5})
	require.True(t, res.Success)
	require.NotEmpty(t, res.Endpoints)
	assert.Equal(t, "listPets", res.Endpoints[0].OperationID)
	assert.GreaterOrEqual(t, res.Endpoints[0].Score, 100)
}

func TestAnalyze_AuthFailureRemediation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	svc := NewService(Config{}, zap.NewNop())

	res := svc.Analyze(context.Background(), AnalyzeRequest{URL: srv.URL})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "AuthenticationRequired", res.Error.Kind)
	assert.Contains(t, res.Error.Remediation, "bearer token")
}

func TestAnalyze_NotFoundRemediationDiffersFromAuth(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	svc := NewService(Config{}, zap.NewNop())

	res := svc.Analyze(context.Background(), AnalyzeRequest{URL: srv.URL})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "NotFound", res.Error.Kind)
	assert.Contains(t, res.Error.Remediation, "verify the URL")
	assert.NotContains(t, res.Error.Remediation, "bearer token")
}

func TestAnalyze_TimeoutRemediation(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()
	svc := NewService(Config{FetchTimeout: 30 * time.Millisecond}, zap.NewNop())

	res := svc.Analyze(context.Background(), AnalyzeRequest{URL: srv.URL})
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "Timeout", res.Error.Kind)
	assert.Contains(t, res.Error.Remediation, "retry")
}

func TestSearch_CacheHitMetadata(t *testing.T) {
	t.Parallel()
	srv, hits := specServer(t)
	svc := NewService(Config{SpecURL: srv.URL}, zap.NewNop())

	first := svc.Search(context.Background(), SearchRequest{Query: "pets"})
	require.True(t, first.Success)
	assert.False(t, first.CacheHit)
	assert.NotEmpty(t, first.Results)

	second := svc.Search(context.Background(), SearchRequest{Query: "pets"})
	require.True(t, second.Success)
	assert.True(t, second.CacheHit)
	assert.Equal(t, int64(1), atomic.LoadInt64(hits), "second search must be served from cache")
}

func TestSearch_ViewToggles(t *testing.T) {
	t.Parallel()
	srv, _ := specServer(t)
	svc := NewService(Config{SpecURL: srv.URL}, zap.NewNop())

	res := svc.Search(context.Background(), SearchRequest{
		Query: "pets",
		View:  EndpointView{IncludeResponses: true},
	})
	require.True(t, res.Success)
	require.NotEmpty(t, res.Results)
	assert.Contains(t, res.Results[0].Responses, "200")
}

func TestInfo(t *testing.T) {
	t.Parallel()
	srv, _ := specServer(t)
	svc := NewService(Config{SpecURL: srv.URL}, zap.NewNop())

	res := svc.Info(context.Background())
	require.True(t, res.Success)
	require.NotNil(t, res.API)
	assert.Equal(t, "Pets", res.API.Title)
	assert.Equal(t, []string{"pets"}, res.API.Tags)
}

func TestListEndpoints_Filters(t *testing.T) {
	t.Parallel()
	srv, _ := specServer(t)
	svc := NewService(Config{SpecURL: srv.URL}, zap.NewNop())

	res := svc.ListEndpoints(context.Background(), ListRequest{Tag: "pets"})
	require.True(t, res.Success)
	assert.Len(t, res.Endpoints, 1)

	res = svc.ListEndpoints(context.Background(), ListRequest{Method: "get"})
	require.True(t, res.Success)
	assert.Len(t, res.Endpoints, 2)
}

func TestRefreshAndStatus(t *testing.T) {
	t.Parallel()
	srv, hits := specServer(t)
	svc := NewService(Config{SpecURL: srv.URL}, zap.NewNop())

	st := svc.Status()
	assert.Equal(t, "empty", st.State)
	assert.False(t, st.EverFetched)

	res := svc.Refresh(context.Background())
	require.True(t, res.Success)
	require.NotNil(t, res.API)

	st = svc.Status()
	assert.Equal(t, "fresh", st.State)
	assert.True(t, st.EverFetched)
	assert.NotEmpty(t, st.CreatedAt)

	// Explicit refresh bypasses freshness.
	svc.Refresh(context.Background())
	assert.Equal(t, int64(2), atomic.LoadInt64(hits))
}

func TestNoDefaultSpecURL(t *testing.T) {
	t.Parallel()
	svc := NewService(Config{}, zap.NewNop())
	res := svc.Info(context.Background())
	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "InternalError", res.Error.Kind)
}

func TestClampLimit(t *testing.T) {
	t.Parallel()
	assert.Equal(t, defaultResultLimit, clampLimit(0))
	assert.Equal(t, defaultResultLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxResultLimit, clampLimit(500))
}
