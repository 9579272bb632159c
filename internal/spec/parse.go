// Package spec normalizes raw OpenAPI 3.x and Swagger 2.0 documents into one
// unified API description model.
package spec

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/mark3labs/openapi-mcp/internal/fetch"
)

// DefaultMaxSchemaDepth bounds schema recursion so cyclic reference graphs
// still terminate. Beyond the cap a schema degrades to an opaque object stub.
const DefaultMaxSchemaDepth = 10

// Parser converts raw spec documents into the normalized model.
type Parser struct {
	// MaxSchemaDepth caps schema recursion. Zero means DefaultMaxSchemaDepth.
	MaxSchemaDepth int
	logger         *zap.Logger
}

// NewParser constructs a Parser. A nil logger is replaced with a no-op one.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{MaxSchemaDepth: DefaultMaxSchemaDepth, logger: logger}
}

func (p *Parser) maxDepth() int {
	if p.MaxSchemaDepth > 0 {
		return p.MaxSchemaDepth
	}
	return DefaultMaxSchemaDepth
}

// Parse normalizes a fetched document. It never fails for a structurally
// valid document: endpoints that cannot be built are logged and skipped.
func (p *Parser) Parse(doc *fetch.Document) *API {
	root := doc.Root
	isV3 := doc.Generation == fetch.GenV3

	api := &API{
		SpecVersion:   doc.Label,
		SourceURL:     doc.SourceURL,
		ResolvedURL:   doc.ResolvedURL,
		ScrapedFromUI: doc.ScrapedFromUI,
		FetchedAt:     doc.FetchedAt,
	}

	if info := asMap(root["info"]); info != nil {
		api.Title = strings.TrimSpace(asString(info["title"]))
		api.Version = strings.TrimSpace(asString(info["version"]))
		api.Description = strings.TrimSpace(asString(info["description"]))
	}

	if isV3 {
		api.Servers = serverURLs(root)
		if len(api.Servers) > 0 {
			api.BaseURL = api.Servers[0]
		}
	} else {
		api.BaseURL = v2BaseURL(root)
		if api.BaseURL != "" {
			api.Servers = []string{api.BaseURL}
		}
	}

	api.SecuritySchemes = p.securitySchemes(root, isV3)
	rootSecurity := asSlice(root["security"])

	paths := asMap(root["paths"])
	pathKeys := make([]string, 0, len(paths))
	for k := range paths {
		pathKeys = append(pathKeys, k)
	}
	sort.Strings(pathKeys)

	for _, path := range pathKeys {
		item := asMap(paths[path])
		if item == nil {
			continue
		}
		pathParams := asSlice(item["parameters"])
		for _, method := range Methods {
			op := asMap(item[string(method)])
			if op == nil {
				continue
			}
			ep, err := p.buildEndpoint(root, isV3, path, method, op, pathParams, rootSecurity, api.SecuritySchemes)
			if err != nil {
				p.logger.Warn("skipping endpoint",
					zap.String("path", path),
					zap.String("method", string(method)),
					zap.Error(err))
				continue
			}
			api.Endpoints = append(api.Endpoints, ep)
		}
	}

	api.TotalEndpoints = len(api.Endpoints)
	return api
}

// buildEndpoint normalizes one operation. Unexpected document shapes are
// recovered here so a single broken operation never fails the whole parse.
func (p *Parser) buildEndpoint(root map[string]any, isV3 bool, path string, method HTTPMethod, op map[string]any, pathParams, rootSecurity []any, schemes map[string]SecurityScheme) (ep Endpoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("build endpoint %s %s: %v", method, path, r)
		}
	}()

	ep = Endpoint{
		Path:        path,
		Method:      method,
		OperationID: strings.TrimSpace(asString(op["operationId"])),
		Summary:     strings.TrimSpace(asString(op["summary"])),
		Description: strings.TrimSpace(asString(op["description"])),
		Deprecated:  asBool(op["deprecated"]),
	}

	for _, t := range asSlice(op["tags"]) {
		if s := strings.TrimSpace(asString(t)); s != "" {
			ep.Tags = append(ep.Tags, s)
		}
	}

	merged := p.mergeParameters(root, pathParams, asSlice(op["parameters"]))
	for _, prm := range merged {
		switch prm.In {
		case "path":
			ep.PathParams = append(ep.PathParams, prm)
		case "query":
			ep.QueryParams = append(ep.QueryParams, prm)
		case "header":
			ep.HeaderParams = append(ep.HeaderParams, prm)
		case "cookie":
			ep.CookieParams = append(ep.CookieParams, prm)
		}
	}

	if isV3 {
		ep.RequestBody = p.v3RequestBody(root, op)
	} else {
		ep.RequestBody = p.v2RequestBody(root, asSlice(op["parameters"]), pathParams)
	}

	ep.Responses = p.responses(root, isV3, asMap(op["responses"]))

	security := asSlice(op["security"])
	if op["security"] == nil {
		security = rootSecurity
	}
	ep.Security = resolveSecurity(security, schemes)

	return ep, nil
}

// mergeParameters overlays operation-level parameters onto path-item-level
// ones, keyed by (location, name). $ref-only entries are dropped.
func (p *Parser) mergeParameters(root map[string]any, pathLevel, opLevel []any) []Parameter {
	var order []string
	byKey := make(map[string]Parameter)

	add := func(raw any) {
		pm := asMap(raw)
		if pm == nil {
			return
		}
		if _, isRef := pm["$ref"]; isRef {
			// $ref parameters are not resolved; documented limitation.
			return
		}
		name := strings.TrimSpace(asString(pm["name"]))
		in := strings.TrimSpace(asString(pm["in"]))
		if name == "" || in == "" {
			return
		}
		key := in + ":" + name
		prm := Parameter{
			Name:        name,
			In:          in,
			Description: strings.TrimSpace(asString(pm["description"])),
			Required:    asBool(pm["required"]),
			Deprecated:  asBool(pm["deprecated"]),
		}
		if schema := pm["schema"]; schema != nil {
			prm.Schema = p.normalizeSchema(root, schema, 0)
		} else if t := asString(pm["type"]); t != "" {
			// Swagger 2.0 inlines the schema fields on the parameter itself.
			prm.Schema = p.normalizeSchema(root, pm, 0)
		}
		if _, exists := byKey[key]; !exists {
			order = append(order, key)
		}
		byKey[key] = prm
	}

	for _, raw := range pathLevel {
		add(raw)
	}
	for _, raw := range opLevel {
		add(raw)
	}

	out := make([]Parameter, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

// v3RequestBody normalizes an operation's requestBody, keeping the first
// declared content type's schema and listing the rest by name.
func (p *Parser) v3RequestBody(root map[string]any, op map[string]any) *RequestBody {
	rbm := asMap(op["requestBody"])
	if rbm == nil {
		return nil
	}
	rb := &RequestBody{
		Description: strings.TrimSpace(asString(rbm["description"])),
		Required:    asBool(rbm["required"]),
	}
	content := asMap(rbm["content"])
	if len(content) == 0 {
		return rb
	}
	mimes := make([]string, 0, len(content))
	for mime := range content {
		mimes = append(mimes, mime)
	}
	sort.Strings(mimes)
	rb.ContentTypes = mimes
	rb.ContentType = mimes[0]
	if media := asMap(content[mimes[0]]); media != nil {
		rb.Schema = p.normalizeSchema(root, media["schema"], 0)
	}
	return rb
}

// v2RequestBody takes the first parameter with location "body", checking
// operation-level entries before path-level ones.
func (p *Parser) v2RequestBody(root map[string]any, opParams, pathParams []any) *RequestBody {
	for _, params := range [][]any{opParams, pathParams} {
		for _, raw := range params {
			pm := asMap(raw)
			if pm == nil || !strings.EqualFold(asString(pm["in"]), "body") {
				continue
			}
			return &RequestBody{
				Description: strings.TrimSpace(asString(pm["description"])),
				Required:    asBool(pm["required"]),
				Schema:      p.normalizeSchema(root, pm["schema"], 0),
			}
		}
	}
	return nil
}

// responses yields one normalized response per status key in sorted order.
// $ref-valued response entries are skipped; documented limitation.
func (p *Parser) responses(root map[string]any, isV3 bool, responses map[string]any) []Response {
	if len(responses) == 0 {
		return nil
	}
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]Response, 0, len(codes))
	for _, code := range codes {
		rm := asMap(responses[code])
		if rm == nil {
			continue
		}
		if _, isRef := rm["$ref"]; isRef {
			continue
		}
		resp := Response{
			Status:      code,
			Description: strings.TrimSpace(asString(rm["description"])),
		}
		if isV3 {
			content := asMap(rm["content"])
			if len(content) > 0 {
				mimes := make([]string, 0, len(content))
				for mime := range content {
					mimes = append(mimes, mime)
				}
				sort.Strings(mimes)
				resp.ContentType = mimes[0]
				if media := asMap(content[mimes[0]]); media != nil {
					resp.Schema = p.normalizeSchema(root, media["schema"], 0)
				}
			}
		} else if rm["schema"] != nil {
			resp.Schema = p.normalizeSchema(root, rm["schema"], 0)
		}
		out = append(out, resp)
	}
	return out
}

// serverURLs returns the declared server URLs of a 3.x document in order.
func serverURLs(root map[string]any) []string {
	var out []string
	for _, raw := range asSlice(root["servers"]) {
		sm := asMap(raw)
		if sm == nil {
			continue
		}
		if u := strings.TrimSpace(asString(sm["url"])); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// v2BaseURL synthesizes scheme://host[basePath] from a 2.0 document,
// defaulting the scheme to https when none is declared.
func v2BaseURL(root map[string]any) string {
	host := strings.TrimSpace(asString(root["host"]))
	if host == "" {
		return ""
	}
	scheme := "https"
	if schemes := asSlice(root["schemes"]); len(schemes) > 0 {
		if s := strings.TrimSpace(asString(schemes[0])); s != "" {
			scheme = s
		}
	}
	return scheme + "://" + host + strings.TrimSpace(asString(root["basePath"]))
}

func collectSortedTags(endpoints []Endpoint) []string {
	set := make(map[string]struct{})
	for _, ep := range endpoints {
		for _, t := range ep.Tags {
			if t = strings.TrimSpace(t); t != "" {
				set[t] = struct{}{}
			}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Duck-typed accessors over the raw document tree. YAML decoding produces
// map[string]any for mappings; JSON decoding produces float64 numbers while
// YAML produces int, so numeric accessors handle both.

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}
