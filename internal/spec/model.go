package spec

import "time"

// Unified, generation-agnostic API description model. Both OpenAPI 3.x and
// Swagger 2.0 documents normalize into these types.

type HTTPMethod string

const (
	GET     HTTPMethod = "get"
	POST    HTTPMethod = "post"
	PUT     HTTPMethod = "put"
	DELETE  HTTPMethod = "delete"
	PATCH   HTTPMethod = "patch"
	HEAD    HTTPMethod = "head"
	OPTIONS HTTPMethod = "options"
	TRACE   HTTPMethod = "trace"
)

// Methods lists the eight standard HTTP methods in stable order.
var Methods = []HTTPMethod{GET, POST, PUT, DELETE, PATCH, HEAD, OPTIONS, TRACE}

// API is the normalized description of one spec document. Constructed once
// per successful parse and immutable afterward.
type API struct {
	Title       string
	Version     string
	Description string
	BaseURL     string
	Servers     []string
	Endpoints   []Endpoint
	// SecuritySchemes maps declared scheme name to its normalized form.
	SecuritySchemes map[string]SecurityScheme
	// TotalEndpoints always equals len(Endpoints).
	TotalEndpoints int
	// SpecVersion is the human-readable generation label, e.g. "OpenAPI 3.0.3".
	SpecVersion string
	SourceURL   string
	// ResolvedURL is where the spec bytes were read from; differs from
	// SourceURL when the input was a documentation page.
	ResolvedURL   string
	ScrapedFromUI bool
	FetchedAt     time.Time
}

type Endpoint struct {
	Path        string
	Method      HTTPMethod
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	// Parameters partitioned by location. Within each list entries are
	// deduplicated by name, operation-level winning over path-level.
	PathParams   []Parameter
	QueryParams  []Parameter
	HeaderParams []Parameter
	CookieParams []Parameter
	RequestBody  *RequestBody
	Responses    []Response
	Security     []SecurityRequirement
}

type Parameter struct {
	Name        string
	In          string // path|query|header|cookie
	Description string
	Required    bool
	Deprecated  bool
	Schema      *Schema
}

type RequestBody struct {
	Description string
	Required    bool
	// ContentType is the first declared media type; Schema is its schema.
	ContentType string
	// ContentTypes lists every declared media type by name.
	ContentTypes []string
	Schema       *Schema
}

type Response struct {
	Status      string // "200", "4XX", "default"
	Description string
	ContentType string
	Schema      *Schema
}

// Schema is the recursive structural description of a JSON-compatible value.
type Schema struct {
	Type        string
	Format      string
	Description string
	Enum        []any
	Default     any
	Example     any
	Nullable    bool
	Pattern     string
	Minimum     *float64
	Maximum     *float64
	MinLength   *int
	MaxLength   *int
	Items       *Schema
	Properties  map[string]*Schema
	Required    []string
	OneOf       []*Schema
	AnyOf       []*Schema
	AllOf       []*Schema
	// Ref preserves the original reference path for diagnostics.
	Ref string
}

// SecuritySchemeKind discriminates normalized security schemes.
type SecuritySchemeKind string

const (
	SchemeAPIKey  SecuritySchemeKind = "apiKey"
	SchemeHTTP    SecuritySchemeKind = "http"
	SchemeBearer  SecuritySchemeKind = "bearer"
	SchemeBasic   SecuritySchemeKind = "basic"
	SchemeOAuth2  SecuritySchemeKind = "oauth2"
	SchemeOpenID  SecuritySchemeKind = "openIdConnect"
	SchemeUnknown SecuritySchemeKind = "unknown"
)

type SecurityScheme struct {
	Kind        SecuritySchemeKind
	Name        string
	In          string // header|query|cookie, for apiKey
	Scheme      string
	Description string
}

// SecurityRequirement is a scheme resolved against an endpoint's security
// entry, with the scopes that entry demands.
type SecurityRequirement struct {
	SchemeName string
	Scheme     SecurityScheme
	Scopes     []string
}

// Parameters returns all parameter lists flattened, path first.
func (e *Endpoint) Parameters() []Parameter {
	out := make([]Parameter, 0, len(e.PathParams)+len(e.QueryParams)+len(e.HeaderParams)+len(e.CookieParams))
	out = append(out, e.PathParams...)
	out = append(out, e.QueryParams...)
	out = append(out, e.HeaderParams...)
	out = append(out, e.CookieParams...)
	return out
}

// TagSet returns the sorted set of tags used across endpoints.
func (a *API) TagSet() []string {
	return collectSortedTags(a.Endpoints)
}
