package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const petV3JSON = `{"openapi":"3.0.3","info":{"title":"T","version":"1"},"paths":{"/a":{"get":{"responses":{"200":{"description":"ok"}}}}}}`

const petV2YAML = `swagger: "2.0"
info:
  title: Legacy
  version: "1.0"
host: api.x.com
basePath: /v1
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
`

func testFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	return NewFetcher(zap.NewNop(), opts...)
}

func TestFetch_DirectJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Accept"), "application/json")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(petV3JSON))
	}))
	defer srv.Close()

	doc, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, GenV3, doc.Generation)
	assert.Equal(t, "OpenAPI 3.0.3", doc.Label)
	assert.Equal(t, srv.URL, doc.SourceURL)
	assert.Equal(t, srv.URL, doc.ResolvedURL)
	assert.False(t, doc.ScrapedFromUI)
	assert.False(t, doc.FetchedAt.IsZero())
	assert.Contains(t, doc.Root, "paths")
}

func TestFetch_DirectYAML(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write([]byte(petV2YAML))
	}))
	defer srv.Close()

	doc, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, GenV2, doc.Generation)
	assert.Equal(t, "Swagger 2.0", doc.Label)
}

func TestFetch_JSONContentTypeFallsBackToYAML(t *testing.T) {
	t.Parallel()
	// Declared JSON but actually YAML; the parser must fall through.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(petV2YAML))
	}))
	defer srv.Close()

	doc, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, GenV2, doc.Generation)
}

func TestFetch_BearerTokenHeader(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sekrit" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(petV3JSON))
	}))
	defer srv.Close()

	_, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	requireKind(t, err, KindAuthRequired)

	doc, err := testFetcher(t, WithAuthToken("sekrit")).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, GenV3, doc.Generation)
}

func TestFetch_AuthFailureDistinctFromNotFound(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/protected":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	_, err := testFetcher(t).Fetch(context.Background(), srv.URL+"/protected")
	fe := requireKind(t, err, KindAuthRequired)
	assert.Equal(t, http.StatusUnauthorized, fe.Status)
	assert.Contains(t, fe.Message, "authentication required")

	_, err = testFetcher(t).Fetch(context.Background(), srv.URL+"/missing")
	fe = requireKind(t, err, KindNotFound)
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.Contains(t, fe.Message, "not found")
}

func TestFetch_ForbiddenIsAuthFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	requireKind(t, err, KindAuthRequired)
}

func TestFetch_GenericHTTPFailureKeepsStatusAndBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	_, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	fe := requireKind(t, err, KindHTTP)
	assert.Equal(t, http.StatusBadGateway, fe.Status)
	assert.Contains(t, fe.Body, "upstream exploded")
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Write([]byte(petV3JSON))
	}))
	defer srv.Close()

	f := NewFetcher(zap.NewNop(),
		WithTimeout(50*time.Millisecond),
		WithClient(&http.Client{Timeout: 50 * time.Millisecond}),
	)
	_, err := f.Fetch(context.Background(), srv.URL)
	requireKind(t, err, KindTimeout)
}

func TestFetch_ConnectionFailure(t *testing.T) {
	t.Parallel()
	_, err := testFetcher(t).Fetch(context.Background(), "http://127.0.0.1:1/spec.json")
	requireKind(t, err, KindConnection)
}

func TestFetch_ParseFailure(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json: [and not: yaml"))
	}))
	defer srv.Close()

	_, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	requireKind(t, err, KindParse)
}

func TestFetch_ValidationFailures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
	}{
		{"neither key", `{"title":"not a spec"}`},
		{"openapi missing paths", `{"openapi":"3.0.0","info":{"title":"T","version":"1"}}`},
		{"openapi missing info", `{"openapi":"3.0.0","paths":{}}`},
		{"unsupported openapi major", `{"openapi":"4.0.0","info":{},"paths":{}}`},
		{"unsupported swagger version", `{"swagger":"1.2","info":{},"paths":{}}`},
		{"swagger missing paths", `{"swagger":"2.0","info":{}}`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			_, err := testFetcher(t).Fetch(context.Background(), srv.URL)
			requireKind(t, err, KindValidation)
		})
	}
}

func TestFetch_EmptyURL(t *testing.T) {
	t.Parallel()
	_, err := testFetcher(t).Fetch(context.Background(), "   ")
	requireKind(t, err, KindValidation)
}

func TestLooksLikeHTML(t *testing.T) {
	t.Parallel()
	assert.True(t, looksLikeHTML("text/html; charset=utf-8", "{}"))
	assert.True(t, looksLikeHTML("", "<!DOCTYPE html><html></html>"))
	assert.True(t, looksLikeHTML("", "  <html lang=\"en\">"))
	assert.True(t, looksLikeHTML("", "<head></head><body></body>"))
	assert.False(t, looksLikeHTML("application/json", petV3JSON))
	assert.False(t, looksLikeHTML("", petV2YAML))
}

func requireKind(t *testing.T, err error, kind ErrorKind) *Error {
	t.Helper()
	require.Error(t, err)
	fe, ok := err.(*Error)
	require.True(t, ok, "expected *fetch.Error, got %T: %v", err, err)
	require.Equal(t, kind, fe.Kind, "error: %v", err)
	return fe
}
