package fetch

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Swagger UI pages reference their spec in a handful of recognizable shapes.
// The families below are tried strictly in order; the first surviving match
// wins. Each pattern captures the candidate URL in group 1.
var specURLPatterns = []*regexp.Regexp{
	// SwaggerUIBundle({ url: "..." })
	regexp.MustCompile(`SwaggerUIBundle\s*\(\s*\{[\s\S]*?url\s*:\s*["']([^"']+)["']`),
	// SwaggerUI({ url: "..." }) and standalone-preset constructors
	regexp.MustCompile(`SwaggerUI(?:StandalonePreset)?\s*\(\s*\{[\s\S]*?url\s*:\s*["']([^"']+)["']`),
	// Any quoted url: value with a spec file extension
	regexp.MustCompile(`url\s*:\s*["']([^"']+\.(?:json|yaml|yml))["']`),
	// configUrl: "..."
	regexp.MustCompile(`configUrl\s*:\s*["']([^"']+)["']`),
	// data-url="..." attributes used by some UI wrappers
	regexp.MustCompile(`data-url\s*=\s*["']([^"']+)["']`),
	// href to a spec-looking path with a spec extension
	regexp.MustCompile(`href\s*=\s*["']([^"']*(?:swagger|openapi|api-docs)[^"']*\.(?:json|yaml|yml))["']`),
	// Generic url-like key whose value mentions a spec route
	regexp.MustCompile(`["']?(?:url|specUrl|swaggerUrl|apiDocsUrl)["']?\s*:\s*["']([^"']*(?:api-docs|swagger|openapi)[^"']*)["']`),
	// Literal well-known paths appearing anywhere in the page
	regexp.MustCompile(`["']((?:/v[23]/api-docs|/swagger\.json|/openapi\.json|/api/docs|/api-docs))["']`),
}

var staticAssetExts = []string{
	".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".svg", ".ico",
	".woff", ".woff2", ".ttf", ".eot", ".map",
}

// initializer script filenames worth fetching for an embedded spec
var initScriptNames = []string{"swagger-ui-init", "swagger-initializer", "swagger-config"}

var (
	scriptSrcRe    = regexp.MustCompile(`<script[^>]+src\s*=\s*["']([^"']+)["']`)
	inlineScriptRe = regexp.MustCompile(`(?s)<script[^>]*>(.*?)</script>`)
	embeddedKeyRe  = regexp.MustCompile(`["']?(?:swaggerDoc|spec)["']?\s*:\s*\{`)
	schemeRe       = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)
)

// scrape locates the spec behind an HTML documentation page. The stages run
// in strict priority order: direct URL extraction, embedded-script
// extraction, conventional-path probing.
func (f *Fetcher) scrape(ctx context.Context, pageURL, html string) (*Document, error) {
	if candidate := extractSpecURL(html); candidate != "" {
		resolved := resolveSpecURL(pageURL, candidate)
		f.logger.Debug("scrape: found spec URL in page", zap.String("candidate", candidate), zap.String("resolved", resolved))
		doc, err := f.fetchDirect(ctx, pageURL, resolved)
		if err == nil {
			return doc, nil
		}
		f.logger.Debug("scrape: extracted spec URL did not yield a spec", zap.String("url", resolved), zap.Error(err))
	}

	if doc, ok := f.extractEmbeddedSpec(ctx, pageURL, html); ok {
		return doc, nil
	}

	if doc, ok := f.probeConventionalPaths(ctx, pageURL); ok {
		return doc, nil
	}

	return nil, newError(KindScrapeExhausted, pageURL,
		"scrape %s: page looks like API documentation but no spec could be located behind it", pageURL)
}

// extractSpecURL scans the page against the pattern families in order and
// returns the first match that does not look like a static asset.
func extractSpecURL(html string) string {
	for _, re := range specURLPatterns {
		for _, m := range re.FindAllStringSubmatch(html, -1) {
			candidate := strings.TrimSpace(m[1])
			if candidate == "" || isStaticAsset(candidate) {
				continue
			}
			return candidate
		}
	}
	return ""
}

func isStaticAsset(u string) bool {
	lower := strings.ToLower(u)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range staticAssetExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// resolveSpecURL resolves a scraped reference against the documentation
// page's own URL: absolute refs pass through, root-relative refs resolve
// against the origin, and bare refs resolve against the page's directory.
func resolveSpecURL(pageURL, ref string) string {
	if schemeRe.MatchString(ref) {
		return ref
	}
	origin, pagePath, err := originOf(pageURL)
	if err != nil {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return origin + ref
	}
	dir := pagePath
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	}
	return origin + dir + "/" + ref
}

// extractEmbeddedSpec looks for a spec object embedded in the page's
// initializer scripts (fetched by src) or in inline script blocks, under a
// swaggerDoc or spec key.
func (f *Fetcher) extractEmbeddedSpec(ctx context.Context, pageURL, html string) (*Document, bool) {
	for _, m := range scriptSrcRe.FindAllStringSubmatch(html, -1) {
		src := m[1]
		if !isInitScript(src) {
			continue
		}
		scriptURL := resolveSpecURL(pageURL, src)
		body, _, err := f.get(ctx, scriptURL, f.settings.Timeout)
		if err != nil {
			f.logger.Debug("scrape: initializer script fetch failed", zap.String("url", scriptURL), zap.Error(err))
			continue
		}
		if doc, ok := f.specFromScriptText(pageURL, scriptURL, body); ok {
			return doc, true
		}
	}

	for _, m := range inlineScriptRe.FindAllStringSubmatch(html, -1) {
		if doc, ok := f.specFromScriptText(pageURL, pageURL, m[1]); ok {
			return doc, true
		}
	}
	return nil, false
}

func isInitScript(src string) bool {
	lower := strings.ToLower(src)
	for _, name := range initScriptNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

// specFromScriptText finds a brace-delimited JSON object under a swaggerDoc
// or spec key and, when it carries a spec marker, builds a document from it.
func (f *Fetcher) specFromScriptText(pageURL, scriptURL, text string) (*Document, bool) {
	for _, loc := range embeddedKeyRe.FindAllStringIndex(text, -1) {
		start := strings.LastIndexByte(text[loc[0]:loc[1]], '{') + loc[0]
		objText, ok := extractJSONObject(text, start)
		if !ok {
			continue
		}
		var root map[string]any
		if err := json.Unmarshal([]byte(objText), &root); err != nil {
			continue
		}
		if !isSpecRoot(root) {
			continue
		}
		doc, err := f.buildDocument(pageURL, scriptURL, true, objText, "application/json")
		if err != nil {
			f.logger.Debug("scrape: embedded object failed validation", zap.Error(err))
			continue
		}
		return doc, true
	}
	return nil, false
}

// extractJSONObject returns the balanced {...} substring starting at start.
// Brace counting is string-literal-aware: braces inside quoted strings are
// ignored and backslash escapes are honored.
func extractJSONObject(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// uiPathSegments are documentation-UI path pieces stripped when deriving the
// base path a spec is likely mounted under.
var uiPathSegments = []string{"/swagger-ui.html", "/swagger-ui", "/index.html", "/docs", "/swagger"}

// probeConventionalPaths tries well-known spec locations derived from the
// page's origin and base path, accepting the first 200 whose body decodes to
// a document with a spec marker.
func (f *Fetcher) probeConventionalPaths(ctx context.Context, pageURL string) (*Document, bool) {
	origin, pagePath, err := originOf(pageURL)
	if err != nil {
		return nil, false
	}
	for _, candidate := range probeCandidates(pagePath) {
		probeURL := origin + candidate
		body, contentType, gerr := f.get(ctx, probeURL, f.settings.ProbeTimeout)
		if gerr != nil {
			f.logger.Debug("scrape: probe failed", zap.String("url", probeURL), zap.Error(gerr))
			continue
		}
		if looksLikeHTML(contentType, body) {
			continue
		}
		root, perr := parseBody(probeURL, body, contentType)
		if perr != nil || !isSpecRoot(root) {
			continue
		}
		doc, berr := f.buildDocument(pageURL, probeURL, true, body, contentType)
		if berr != nil {
			f.logger.Debug("scrape: probed document failed validation", zap.String("url", probeURL), zap.Error(berr))
			continue
		}
		f.logger.Debug("scrape: probe located spec", zap.String("url", probeURL))
		return doc, true
	}
	return nil, false
}

// probeCandidates builds the ordered, de-duplicated probe list for a page
// path. Candidates derived from the page's own base path come after the
// bare conventional roots.
func probeCandidates(pagePath string) []string {
	base := strings.TrimSuffix(pagePath, "/")
	stripped := base
	for _, seg := range uiPathSegments {
		stripped = strings.TrimSuffix(stripped, seg)
	}

	raw := []string{
		"/v3/api-docs",
		"/v2/api-docs",
	}
	if stripped != "" && stripped != "/" {
		raw = append(raw,
			stripped+"/v3/api-docs",
			stripped+"/v2/api-docs",
			stripped+"-json",
			stripped+".json",
		)
	}
	raw = append(raw,
		"/swagger.json",
		"/openapi.json",
		"/api/swagger.json",
		"/api/v3/api-docs",
		"/v3/api-docs-json",
		"/api-json",
		"/api-docs",
	)

	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if c == "" || c == "/" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
