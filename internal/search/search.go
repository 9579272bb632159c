// Package search ranks endpoints of a normalized API description against a
// free-text query with optional structural filters.
package search

import (
	"sort"
	"strings"

	"github.com/mark3labs/openapi-mcp/internal/spec"
)

// Options filter and cap the result set. Filters apply before scoring.
type Options struct {
	// Method keeps only endpoints with this HTTP method (case-insensitive
	// exact match).
	Method string
	// Tag keeps only endpoints with a tag containing this substring
	// (case-insensitive).
	Tag string
	// Limit caps the ranked result list when positive.
	Limit int
}

// Result pairs an endpoint with its relevance score.
type Result struct {
	Endpoint *spec.Endpoint
	Score    int
}

// Whole-query and per-term bonus weights.
const (
	scoreOperationIDExact  = 100
	scoreOperationIDSubstr = 50
	scorePathSubstr        = 40
	scoreSummarySubstr     = 30
	scoreDescriptionSubstr = 20
	scoreTagSubstr         = 15

	termPathSubstr        = 5
	termOperationIDSubstr = 5
	termSummarySubstr     = 3
	termDescriptionSubstr = 2
)

// Endpoints ranks an API's endpoints against query. Zero-score endpoints are
// excluded; ties keep the description's original endpoint order.
func Endpoints(api *spec.API, query string, opts Options) []Result {
	if api == nil {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	terms := strings.Fields(q)

	var results []Result
	for i := range api.Endpoints {
		ep := &api.Endpoints[i]
		if !matchesFilters(ep, opts) {
			continue
		}
		score := scoreEndpoint(ep, q, terms)
		if score <= 0 {
			continue
		}
		results = append(results, Result{Endpoint: ep, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return results
}

// Filter returns the endpoints passing the method/tag filters, unscored, in
// original order.
func Filter(api *spec.API, opts Options) []*spec.Endpoint {
	if api == nil {
		return nil
	}
	var out []*spec.Endpoint
	for i := range api.Endpoints {
		ep := &api.Endpoints[i]
		if matchesFilters(ep, opts) {
			out = append(out, ep)
		}
	}
	return out
}

func matchesFilters(ep *spec.Endpoint, opts Options) bool {
	if opts.Method != "" && !strings.EqualFold(string(ep.Method), opts.Method) {
		return false
	}
	if opts.Tag != "" {
		want := strings.ToLower(opts.Tag)
		found := false
		for _, t := range ep.Tags {
			if strings.Contains(strings.ToLower(t), want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// scoreEndpoint adds up the independent signals. The operationId exact-match
// bonus and its substring bonus are mutually exclusive; per-term bonuses
// stack across terms and on top of the whole-query bonuses.
func scoreEndpoint(ep *spec.Endpoint, query string, terms []string) int {
	if query == "" {
		return 0
	}
	opID := strings.ToLower(ep.OperationID)
	path := strings.ToLower(ep.Path)
	summary := strings.ToLower(ep.Summary)
	description := strings.ToLower(ep.Description)

	score := 0
	switch {
	case opID != "" && opID == query:
		score += scoreOperationIDExact
	case opID != "" && strings.Contains(opID, query):
		score += scoreOperationIDSubstr
	}
	if strings.Contains(path, query) {
		score += scorePathSubstr
	}
	if summary != "" && strings.Contains(summary, query) {
		score += scoreSummarySubstr
	}
	if description != "" && strings.Contains(description, query) {
		score += scoreDescriptionSubstr
	}
	for _, t := range ep.Tags {
		if strings.Contains(strings.ToLower(t), query) {
			score += scoreTagSubstr
			break
		}
	}

	for _, term := range terms {
		if strings.Contains(path, term) {
			score += termPathSubstr
		}
		if opID != "" && strings.Contains(opID, term) {
			score += termOperationIDSubstr
		}
		if summary != "" && strings.Contains(summary, term) {
			score += termSummarySubstr
		}
		if description != "" && strings.Contains(description, term) {
			score += termDescriptionSubstr
		}
	}
	return score
}
