package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mark3labs/openapi-mcp/internal/fetch"
	"github.com/mark3labs/openapi-mcp/internal/search"
)

// AnalyzeRequest is the on-demand analyze operation's input.
type AnalyzeRequest struct {
	URL       string `json:"url" yaml:"url"`
	AuthToken string `json:"authToken,omitempty" yaml:"authToken,omitempty"`
	Query     string `json:"query,omitempty" yaml:"query,omitempty"`
	Limit     int    `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// AnalyzeResult reports either the analyzed API or a classified failure.
type AnalyzeResult struct {
	Success   bool              `json:"success" yaml:"success"`
	Error     *OperationError   `json:"error,omitempty" yaml:"error,omitempty"`
	API       *APISummary       `json:"api,omitempty" yaml:"api,omitempty"`
	Endpoints []EndpointSummary `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// Analyze fetches and normalizes an arbitrary spec URL, independent of the
// cached default spec, and optionally ranks its endpoints against a query.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) *AnalyzeResult {
	f := fetch.NewFetcher(s.logger,
		fetch.WithTimeout(s.cfg.FetchTimeout),
		fetch.WithAuthToken(req.AuthToken),
	)
	doc, err := f.Fetch(ctx, req.URL)
	if err != nil {
		s.logger.Info("analyze failed", zap.String("url", req.URL), zap.Error(err))
		return &AnalyzeResult{Error: operationError(err)}
	}
	api := s.parser.Parse(doc)

	res := &AnalyzeResult{Success: true, API: summarize(api)}
	view := EndpointView{IncludeDescriptions: true}
	if req.Query != "" {
		for _, r := range search.Endpoints(api, req.Query, search.Options{Limit: clampLimit(req.Limit)}) {
			res.Endpoints = append(res.Endpoints, summarizeEndpoint(r.Endpoint, view, r.Score))
		}
	} else {
		limit := clampLimit(req.Limit)
		for i := range api.Endpoints {
			if len(res.Endpoints) >= limit {
				break
			}
			res.Endpoints = append(res.Endpoints, summarizeEndpoint(&api.Endpoints[i], view, 0))
		}
	}
	return res
}

// SearchRequest is the cached-spec search operation's input.
type SearchRequest struct {
	Query  string       `json:"query" yaml:"query"`
	Limit  int          `json:"limit,omitempty" yaml:"limit,omitempty"`
	Method string       `json:"method,omitempty" yaml:"method,omitempty"`
	Tag    string       `json:"tag,omitempty" yaml:"tag,omitempty"`
	View   EndpointView `json:"view,omitempty" yaml:"view,omitempty"`
}

// SearchResult carries ranked endpoints plus cache metadata.
type SearchResult struct {
	Success  bool              `json:"success" yaml:"success"`
	Error    *OperationError   `json:"error,omitempty" yaml:"error,omitempty"`
	CacheHit bool              `json:"cacheHit" yaml:"cacheHit"`
	Results  []EndpointSummary `json:"results,omitempty" yaml:"results,omitempty"`
}

// Search ranks the cached description's endpoints, refreshing the cache
// first when it is empty or stale.
func (s *Service) Search(ctx context.Context, req SearchRequest) *SearchResult {
	hit := !s.cache.IsExpired()
	api, err := s.cache.GetOrRefresh(ctx)
	if err != nil {
		return &SearchResult{Error: operationError(err)}
	}
	res := &SearchResult{Success: true, CacheHit: hit}
	opts := search.Options{Method: req.Method, Tag: req.Tag, Limit: clampLimit(req.Limit)}
	for _, r := range search.Endpoints(api, req.Query, opts) {
		res.Results = append(res.Results, summarizeEndpoint(r.Endpoint, req.View, r.Score))
	}
	return res
}

// InfoResult summarizes the cached description.
type InfoResult struct {
	Success  bool            `json:"success" yaml:"success"`
	Error    *OperationError `json:"error,omitempty" yaml:"error,omitempty"`
	CacheHit bool            `json:"cacheHit" yaml:"cacheHit"`
	API      *APISummary     `json:"api,omitempty" yaml:"api,omitempty"`
}

// Info returns the cached description's summary, refreshing when needed.
func (s *Service) Info(ctx context.Context) *InfoResult {
	hit := !s.cache.IsExpired()
	api, err := s.cache.GetOrRefresh(ctx)
	if err != nil {
		return &InfoResult{Error: operationError(err)}
	}
	return &InfoResult{Success: true, CacheHit: hit, API: summarize(api)}
}

// ListRequest filters the endpoint listing.
type ListRequest struct {
	Method string       `json:"method,omitempty" yaml:"method,omitempty"`
	Tag    string       `json:"tag,omitempty" yaml:"tag,omitempty"`
	View   EndpointView `json:"view,omitempty" yaml:"view,omitempty"`
}

// ListResult is the unranked endpoint listing.
type ListResult struct {
	Success   bool              `json:"success" yaml:"success"`
	Error     *OperationError   `json:"error,omitempty" yaml:"error,omitempty"`
	CacheHit  bool              `json:"cacheHit" yaml:"cacheHit"`
	Endpoints []EndpointSummary `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// ListEndpoints returns the cached description's endpoints in document
// order, optionally filtered by method and tag substring.
func (s *Service) ListEndpoints(ctx context.Context, req ListRequest) *ListResult {
	hit := !s.cache.IsExpired()
	api, err := s.cache.GetOrRefresh(ctx)
	if err != nil {
		return &ListResult{Error: operationError(err)}
	}
	res := &ListResult{Success: true, CacheHit: hit}
	for _, ep := range search.Filter(api, search.Options{Method: req.Method, Tag: req.Tag}) {
		res.Endpoints = append(res.Endpoints, summarizeEndpoint(ep, req.View, 0))
	}
	return res
}

// RefreshResult reports the outcome of an explicit cache refresh.
type RefreshResult struct {
	Success bool            `json:"success" yaml:"success"`
	Error   *OperationError `json:"error,omitempty" yaml:"error,omitempty"`
	API     *APISummary     `json:"api,omitempty" yaml:"api,omitempty"`
}

// Refresh forces a cache refresh regardless of expiry.
func (s *Service) Refresh(ctx context.Context) *RefreshResult {
	api, err := s.cache.Refresh(ctx)
	if err != nil {
		return &RefreshResult{Error: operationError(err)}
	}
	return &RefreshResult{Success: true, API: summarize(api)}
}

// StatusResult reports the cache slot state.
type StatusResult struct {
	State       string `json:"state" yaml:"state"`
	EverFetched bool   `json:"everFetched" yaml:"everFetched"`
	CreatedAt   string `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty" yaml:"expiresAt,omitempty"`
	TTL         string `json:"ttl" yaml:"ttl"`
}

// Status snapshots the cache without touching upstream.
func (s *Service) Status() *StatusResult {
	st := s.cache.Status()
	res := &StatusResult{
		State:       string(st.State),
		EverFetched: st.EverFetched,
		TTL:         st.TTL.String(),
	}
	if !st.CreatedAt.IsZero() {
		res.CreatedAt = st.CreatedAt.Format(time.RFC3339)
		res.ExpiresAt = st.ExpiresAt.Format(time.RFC3339)
	}
	return res
}
