package fetch

import "fmt"

// ErrorKind categorizes fetch failures for clearer handling and messaging.
type ErrorKind string

const (
	// KindAuthRequired covers 401/403 responses from a direct spec fetch.
	KindAuthRequired ErrorKind = "AuthenticationRequired"
	// KindNotFound covers a 404 on a direct spec fetch. Exhausting the probe
	// list during UI scraping reports KindScrapeExhausted instead.
	KindNotFound ErrorKind = "NotFound"
	// KindTimeout covers request deadline and client timeout failures.
	KindTimeout ErrorKind = "Timeout"
	// KindConnection covers DNS and connection-refused failures.
	KindConnection ErrorKind = "ConnectionFailure"
	// KindHTTP covers any other non-2xx response.
	KindHTTP ErrorKind = "HttpFailure"
	// KindParse means the body decoded as neither JSON nor YAML.
	KindParse ErrorKind = "ParseFailure"
	// KindValidation means the document decoded but is structurally invalid
	// or declares an unsupported spec version.
	KindValidation ErrorKind = "ValidationFailure"
	// KindScrapeExhausted means an HTML documentation page was recognized but
	// no spec could be located behind it.
	KindScrapeExhausted ErrorKind = "UIScrapeExhausted"
)

// Error is a structured fetch failure. Status and Body are populated for HTTP
// failures so callers can surface upstream diagnostics.
type Error struct {
	Kind    ErrorKind
	Message string
	URL     string
	Status  int
	Body    string
	Cause   error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Cause }

func newError(kind ErrorKind, url, format string, args ...any) *Error {
	return &Error{Kind: kind, URL: url, Message: fmt.Sprintf(format, args...)}
}
