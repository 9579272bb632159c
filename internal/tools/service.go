// Package tools exposes the operations the dispatch shell calls: on-demand
// analysis of a spec URL plus cached search, listing, info and refresh over
// the configured default spec.
package tools

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mark3labs/openapi-mcp/internal/cache"
	"github.com/mark3labs/openapi-mcp/internal/fetch"
	"github.com/mark3labs/openapi-mcp/internal/spec"
)

// Config configures the service.
type Config struct {
	// SpecURL is the default spec the cache serves.
	SpecURL string
	// AuthToken, when set, authenticates fetches of the default spec.
	AuthToken string
	// CacheTTL is the cached description's time-to-live.
	CacheTTL time.Duration
	// FetchTimeout bounds the primary spec fetch.
	FetchTimeout time.Duration
}

// DefaultConfig returns recommended defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:     5 * time.Minute,
		FetchTimeout: 30 * time.Second,
	}
}

// result caps are clamped to this range at the operation boundary.
const (
	minResultLimit     = 1
	maxResultLimit     = 50
	defaultResultLimit = 10
)

// Service wires fetch, parse, cache and search together behind the exposed
// operations. All state lives in the injected cache.
type Service struct {
	cfg    Config
	parser *spec.Parser
	cache  *cache.Cache
	logger *zap.Logger
}

// NewService constructs the service and its cache. The cache's refresh
// producer composes fetch and parse against the configured spec URL.
func NewService(cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	s := &Service{
		cfg:    cfg,
		parser: spec.NewParser(logger),
		logger: logger,
	}
	s.cache = cache.New(cache.Config{TTL: cfg.CacheTTL}, s.refreshDefault, logger)
	return s
}

// Cache exposes the underlying cache, mainly so callers can start
// auto-refresh or stop it on shutdown.
func (s *Service) Cache() *cache.Cache { return s.cache }

func (s *Service) refreshDefault(ctx context.Context) (*spec.API, error) {
	if s.cfg.SpecURL == "" {
		return nil, errors.New("no default spec URL configured")
	}
	f := fetch.NewFetcher(s.logger,
		fetch.WithTimeout(s.cfg.FetchTimeout),
		fetch.WithAuthToken(s.cfg.AuthToken),
	)
	doc, err := f.Fetch(ctx, s.cfg.SpecURL)
	if err != nil {
		return nil, err
	}
	return s.parser.Parse(doc), nil
}

// OperationError is the structured failure every operation returns instead
// of propagating raw errors to the shell.
type OperationError struct {
	Kind        string `json:"kind" yaml:"kind"`
	Message     string `json:"message" yaml:"message"`
	Remediation string `json:"remediation" yaml:"remediation"`
}

// operationError classifies err and attaches a kind-specific remediation
// hint so the shell never has to interpret raw errors.
func operationError(err error) *OperationError {
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return &OperationError{Kind: "InternalError", Message: err.Error(), Remediation: "retry; if the problem persists, check the service logs"}
	}
	oe := &OperationError{Kind: string(fe.Kind), Message: fe.Message}
	switch fe.Kind {
	case fetch.KindAuthRequired:
		oe.Remediation = "the spec endpoint requires authentication; supply a bearer token via authToken and retry"
	case fetch.KindNotFound:
		oe.Remediation = "no spec at this URL; verify the URL is correct and publicly accessible, or try the documentation page URL instead"
	case fetch.KindTimeout:
		oe.Remediation = "the upstream server was too slow; retry, or raise the fetch timeout"
	case fetch.KindConnection:
		oe.Remediation = "could not reach the host; check the hostname, network access and any proxy settings"
	case fetch.KindParse:
		oe.Remediation = "the response decoded as neither JSON nor YAML; check that the URL serves an OpenAPI/Swagger document"
	case fetch.KindValidation:
		oe.Remediation = "the document is not a valid OpenAPI 3.x or Swagger 2.0 spec; check its format and version fields"
	case fetch.KindScrapeExhausted:
		oe.Remediation = "the page renders API docs but its spec could not be located; supply the spec URL directly (often ending in /v3/api-docs or swagger.json)"
	default:
		oe.Remediation = "the upstream server returned an error; check the status and response body, then retry"
	}
	return oe
}

// APISummary is the caller-facing digest of a normalized description.
type APISummary struct {
	Title           string   `json:"title" yaml:"title"`
	Version         string   `json:"version" yaml:"version"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	BaseURL         string   `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	SpecVersion     string   `json:"specVersion" yaml:"specVersion"`
	TotalEndpoints  int      `json:"totalEndpoints" yaml:"totalEndpoints"`
	Tags            []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	SecuritySchemes []string `json:"securitySchemes,omitempty" yaml:"securitySchemes,omitempty"`
	SourceURL       string   `json:"sourceUrl" yaml:"sourceUrl"`
	ResolvedURL     string   `json:"resolvedUrl,omitempty" yaml:"resolvedUrl,omitempty"`
	ScrapedFromUI   bool     `json:"scrapedFromUi,omitempty" yaml:"scrapedFromUi,omitempty"`
	FetchedAt       string   `json:"fetchedAt" yaml:"fetchedAt"`
}

func summarize(api *spec.API) *APISummary {
	schemeNames := make([]string, 0, len(api.SecuritySchemes))
	for name := range api.SecuritySchemes {
		schemeNames = append(schemeNames, name)
	}
	sort.Strings(schemeNames)
	return &APISummary{
		Title:           api.Title,
		Version:         api.Version,
		Description:     api.Description,
		BaseURL:         api.BaseURL,
		SpecVersion:     api.SpecVersion,
		TotalEndpoints:  api.TotalEndpoints,
		Tags:            api.TagSet(),
		SecuritySchemes: schemeNames,
		SourceURL:       api.SourceURL,
		ResolvedURL:     api.ResolvedURL,
		ScrapedFromUI:   api.ScrapedFromUI,
		FetchedAt:       api.FetchedAt.Format(time.RFC3339),
	}
}

// EndpointView controls which optional fields endpoint summaries carry.
type EndpointView struct {
	IncludeDescriptions bool `json:"includeDescriptions" yaml:"includeDescriptions"`
	IncludeParameters   bool `json:"includeParameters" yaml:"includeParameters"`
	IncludeResponses    bool `json:"includeResponses" yaml:"includeResponses"`
}

// EndpointSummary is the caller-facing shape of one endpoint.
type EndpointSummary struct {
	Method      string   `json:"method" yaml:"method"`
	Path        string   `json:"path" yaml:"path"`
	OperationID string   `json:"operationId,omitempty" yaml:"operationId,omitempty"`
	Summary     string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Deprecated  bool     `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Parameters  []string `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Responses   []string `json:"responses,omitempty" yaml:"responses,omitempty"`
	Score       int      `json:"score,omitempty" yaml:"score,omitempty"`
}

func summarizeEndpoint(ep *spec.Endpoint, view EndpointView, score int) EndpointSummary {
	es := EndpointSummary{
		Method:      string(ep.Method),
		Path:        ep.Path,
		OperationID: ep.OperationID,
		Summary:     ep.Summary,
		Tags:        ep.Tags,
		Deprecated:  ep.Deprecated,
		Score:       score,
	}
	if view.IncludeDescriptions {
		es.Description = ep.Description
	}
	if view.IncludeParameters {
		for _, prm := range ep.Parameters() {
			label := prm.Name + " (" + prm.In
			if prm.Required {
				label += ", required"
			}
			label += ")"
			es.Parameters = append(es.Parameters, label)
		}
	}
	if view.IncludeResponses {
		for _, r := range ep.Responses {
			es.Responses = append(es.Responses, r.Status)
		}
	}
	return es
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return defaultResultLimit
	case n < minResultLimit:
		return minResultLimit
	case n > maxResultLimit:
		return maxResultLimit
	}
	return n
}
