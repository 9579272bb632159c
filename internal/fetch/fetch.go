// Package fetch obtains raw OpenAPI/Swagger documents from a URL, including
// reverse-engineering the spec location out of a rendered Swagger UI page.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Generation tags which spec schema generation a raw document belongs to.
type Generation int

const (
	GenUnknown Generation = iota
	// GenV2 is Swagger 2.0.
	GenV2
	// GenV3 is OpenAPI 3.x.
	GenV3
)

// Document is the raw parsed spec plus fetch provenance. It exists only for
// the handoff into normalization.
type Document struct {
	Root       map[string]any
	Generation Generation
	// Label is a human-readable generation label, e.g. "OpenAPI 3.0.3".
	Label     string
	SourceURL string
	// ResolvedURL is the URL the spec bytes were finally read from. It
	// differs from SourceURL when the input pointed at a documentation page.
	ResolvedURL string
	// ScrapedFromUI records that the spec was located by scraping HTML.
	ScrapedFromUI bool
	FetchedAt     time.Time
}

// Settings configures fetcher behavior.
type Settings struct {
	// Timeout bounds the primary spec fetch and each scrape sub-fetch.
	Timeout time.Duration
	// ProbeTimeout bounds each conventional-path probe attempt.
	ProbeTimeout time.Duration
	// AuthToken, when set, is sent as an Authorization bearer token.
	AuthToken string
	// Client overrides the HTTP client; mainly for tests.
	Client *http.Client
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		Timeout:      30 * time.Second,
		ProbeTimeout: 5 * time.Second,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithTimeout(d time.Duration) Option      { return func(s *Settings) { s.Timeout = d } }
func WithProbeTimeout(d time.Duration) Option { return func(s *Settings) { s.ProbeTimeout = d } }
func WithAuthToken(tok string) Option         { return func(s *Settings) { s.AuthToken = tok } }
func WithClient(c *http.Client) Option        { return func(s *Settings) { s.Client = c } }

// Fetcher retrieves and classifies spec documents.
type Fetcher struct {
	settings Settings
	client   *http.Client
	logger   *zap.Logger
}

// NewFetcher constructs a Fetcher. A nil logger is replaced with a no-op one.
func NewFetcher(logger *zap.Logger, opts ...Option) *Fetcher {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := settings.Client
	if client == nil {
		client = &http.Client{Timeout: settings.Timeout}
	}
	return &Fetcher{settings: settings, client: client, logger: logger}
}

const acceptHeader = "application/json, application/yaml, text/yaml, text/html, */*"

// Fetch retrieves rawURL and returns the parsed, validated spec document.
// When the URL serves an HTML documentation page, the spec is located by
// scraping (direct URL patterns, then embedded initializer scripts, then
// conventional-path probing).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Document, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, newError(KindValidation, rawURL, "fetch: url is empty")
	}

	body, contentType, err := f.get(ctx, rawURL, f.settings.Timeout)
	if err != nil {
		return nil, err
	}

	if looksLikeHTML(contentType, body) {
		f.logger.Debug("response is an HTML page, scraping for spec", zap.String("url", rawURL))
		return f.scrape(ctx, rawURL, body)
	}
	return f.buildDocument(rawURL, rawURL, false, body, contentType)
}

// fetchDirect retrieves a spec URL discovered during scraping. HTML here means
// the candidate was wrong, so it is rejected rather than scraped again.
func (f *Fetcher) fetchDirect(ctx context.Context, pageURL, specURL string) (*Document, error) {
	body, contentType, err := f.get(ctx, specURL, f.settings.Timeout)
	if err != nil {
		return nil, err
	}
	if looksLikeHTML(contentType, body) {
		return nil, newError(KindValidation, specURL, "fetch %s: resolved spec URL returned another HTML page", specURL)
	}
	doc, err := f.buildDocument(pageURL, specURL, true, body, contentType)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// get issues one GET and classifies transport and status failures.
func (f *Fetcher) get(ctx context.Context, rawURL string, timeout time.Duration) (string, string, error) {
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", newError(KindConnection, rawURL, "fetch %s: %v", rawURL, err)
	}
	req.Header.Set("Accept", acceptHeader)
	if f.settings.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.settings.AuthToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", classifyTransportErr(rawURL, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", &Error{Kind: KindConnection, URL: rawURL, Message: fmt.Sprintf("fetch %s: read body: %v", rawURL, err), Cause: err}
	}
	body := string(raw)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", "", &Error{
			Kind:    KindAuthRequired,
			URL:     rawURL,
			Status:  resp.StatusCode,
			Body:    truncate(body, 512),
			Message: fmt.Sprintf("fetch %s: http %d, authentication required", rawURL, resp.StatusCode),
		}
	case resp.StatusCode == http.StatusNotFound:
		return "", "", &Error{
			Kind:    KindNotFound,
			URL:     rawURL,
			Status:  resp.StatusCode,
			Body:    truncate(body, 512),
			Message: fmt.Sprintf("fetch %s: http 404, spec not found", rawURL),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return "", "", &Error{
			Kind:    KindHTTP,
			URL:     rawURL,
			Status:  resp.StatusCode,
			Body:    truncate(body, 512),
			Message: fmt.Sprintf("fetch %s: http %d: %s", rawURL, resp.StatusCode, truncate(strings.TrimSpace(body), 200)),
		}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func classifyTransportErr(rawURL string, err error) *Error {
	msg := fmt.Sprintf("fetch %s: %v", rawURL, err)
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &Error{Kind: KindTimeout, URL: rawURL, Message: msg, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: rawURL, Message: msg, Cause: err}
	}
	return &Error{Kind: KindConnection, URL: rawURL, Message: msg, Cause: err}
}

// looksLikeHTML reports whether a response should be treated as a rendered
// documentation page rather than a spec body.
func looksLikeHTML(contentType, body string) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	trimmed := strings.TrimSpace(body)
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "<!doctype") || strings.HasPrefix(lower, "<html") {
		return true
	}
	return strings.Contains(lower, "<head") && strings.Contains(lower, "<body")
}

// parseBody decodes spec bytes, trying JSON first when the content type or a
// leading brace suggests it, and falling back to YAML either way.
func parseBody(rawURL, body, contentType string) (map[string]any, *Error) {
	trimmed := strings.TrimSpace(body)
	tryJSONFirst := strings.Contains(strings.ToLower(contentType), "json") || strings.HasPrefix(trimmed, "{")

	if tryJSONFirst {
		var root map[string]any
		if err := json.Unmarshal([]byte(trimmed), &root); err == nil {
			return root, nil
		}
	}
	var root map[string]any
	if err := yaml.Unmarshal([]byte(body), &root); err != nil || root == nil {
		return nil, &Error{Kind: KindParse, URL: rawURL, Message: fmt.Sprintf("fetch %s: body is neither valid JSON nor YAML", rawURL), Cause: err}
	}
	return root, nil
}

func (f *Fetcher) buildDocument(sourceURL, resolvedURL string, scraped bool, body, contentType string) (*Document, error) {
	root, perr := parseBody(resolvedURL, body, contentType)
	if perr != nil {
		return nil, perr
	}
	gen, label, verr := validateDocument(resolvedURL, root)
	if verr != nil {
		return nil, verr
	}
	return &Document{
		Root:          root,
		Generation:    gen,
		Label:         label,
		SourceURL:     sourceURL,
		ResolvedURL:   resolvedURL,
		ScrapedFromUI: scraped,
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// validateDocument enforces the minimal structural contract: a root object
// with an openapi 3.x or swagger 2.0 marker, an info object and a paths map.
func validateDocument(rawURL string, root map[string]any) (Generation, string, *Error) {
	if v, ok := root["openapi"]; ok {
		ver, _ := v.(string)
		ver = strings.TrimSpace(ver)
		if ver == "" {
			return GenUnknown, "", newError(KindValidation, rawURL, "spec: openapi version field is not a string")
		}
		if !strings.HasPrefix(ver, "3") {
			return GenUnknown, "", newError(KindValidation, rawURL, "spec: unsupported openapi version %q (only 3.x supported)", ver)
		}
		if _, ok := root["info"]; !ok {
			return GenUnknown, "", newError(KindValidation, rawURL, "spec: missing required field 'info'")
		}
		if _, ok := root["paths"]; !ok {
			return GenUnknown, "", newError(KindValidation, rawURL, "spec: missing required field 'paths'")
		}
		return GenV3, "OpenAPI " + ver, nil
	}
	if v, ok := root["swagger"]; ok {
		ver, _ := v.(string)
		if strings.TrimSpace(ver) != "2.0" {
			return GenUnknown, "", newError(KindValidation, rawURL, "spec: unsupported swagger version %q (only 2.0 supported)", ver)
		}
		if _, ok := root["info"]; !ok {
			return GenUnknown, "", newError(KindValidation, rawURL, "spec: missing required field 'info'")
		}
		if _, ok := root["paths"]; !ok {
			return GenUnknown, "", newError(KindValidation, rawURL, "spec: missing required field 'paths'")
		}
		return GenV2, "Swagger 2.0", nil
	}
	return GenUnknown, "", newError(KindValidation, rawURL, "spec: document has neither an 'openapi' nor a 'swagger' field")
}

// isSpecRoot reports whether a decoded probe body carries a spec marker.
func isSpecRoot(root map[string]any) bool {
	if root == nil {
		return false
	}
	_, hasV3 := root["openapi"]
	_, hasV2 := root["swagger"]
	return hasV3 || hasV2
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// originOf returns scheme://host for a URL, and the path portion separately.
func originOf(rawURL string) (origin, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("parse url %q: invalid", rawURL)
	}
	return u.Scheme + "://" + u.Host, u.Path, nil
}
