package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/openapi-mcp/internal/spec"
)

func sampleAPI() *spec.API {
	return &spec.API{
		Endpoints: []spec.Endpoint{
			{Path: "/users", Method: spec.GET, OperationID: "getUsers", Summary: "List users", Tags: []string{"users"}},
			{Path: "/users/{id}", Method: spec.GET, OperationID: "getUserById", Summary: "Get one user", Tags: []string{"users"}},
			{Path: "/pets", Method: spec.GET, OperationID: "listPets", Summary: "List pets", Description: "Returns all pets", Tags: []string{"pets"}},
			{Path: "/pets", Method: spec.POST, OperationID: "createPet", Summary: "Create a pet", Tags: []string{"pets", "write"}},
			{Path: "/health", Method: spec.GET},
		},
	}
}

func TestEndpoints_ExactOperationIDOutranksSubstring(t *testing.T) {
	t.Parallel()
	results := Endpoints(sampleAPI(), "getUsers", Options{})
	require.NotEmpty(t, results)
	assert.Equal(t, "getUsers", results[0].Endpoint.OperationID)
	assert.GreaterOrEqual(t, results[0].Score, 100)

	// getUserById matches only as substring signals and must rank strictly
	// below the exact match.
	for _, r := range results[1:] {
		assert.Less(t, r.Score, results[0].Score)
	}
}

func TestEndpoints_ExactAndSubstringAreMutuallyExclusive(t *testing.T) {
	t.Parallel()
	api := &spec.API{Endpoints: []spec.Endpoint{
		{Path: "/a", Method: spec.GET, OperationID: "ping"},
	}}
	results := Endpoints(api, "ping", Options{})
	require.Len(t, results, 1)
	// Exact 100 + per-term operationId substring 5; not 100+50+5.
	assert.Equal(t, 105, results[0].Score)
}

func TestEndpoints_ScoreComposition(t *testing.T) {
	t.Parallel()
	api := &spec.API{Endpoints: []spec.Endpoint{
		{
			Path:        "/pets/search",
			Method:      spec.GET,
			OperationID: "searchPets",
			Summary:     "Search pets",
			Description: "Full text search over pets",
			Tags:        []string{"pets"},
		},
	}}
	results := Endpoints(api, "pets", Options{})
	require.Len(t, results, 1)
	// Whole query: opId substring 50 + path 40 + summary 30 + description 20
	// + tag 15 = 155. Single term "pets": path 5 + opId 5 + summary 3 +
	// description 2 = 15. Total 170.
	assert.Equal(t, 170, results[0].Score)
}

func TestEndpoints_MultiTermStacking(t *testing.T) {
	t.Parallel()
	api := &spec.API{Endpoints: []spec.Endpoint{
		{Path: "/users/create", Method: spec.POST, OperationID: "createUser", Summary: "Create a user"},
	}}
	results := Endpoints(api, "create user", Options{})
	require.Len(t, results, 1)
	// No field contains the whole query "create user", so only the per-term
	// bonuses apply and they stack across both terms:
	// term "create": path 5 + opId 5 + summary 3 = 13
	// term "user":   path 5 + opId 5 + summary 3 = 13
	assert.Equal(t, 26, results[0].Score)
}

func TestEndpoints_ZeroScoresExcluded(t *testing.T) {
	t.Parallel()
	results := Endpoints(sampleAPI(), "nonexistent-thing", Options{})
	assert.Empty(t, results)

	results = Endpoints(sampleAPI(), "", Options{})
	assert.Empty(t, results)
}

func TestEndpoints_FiltersApplyBeforeScoring(t *testing.T) {
	t.Parallel()
	results := Endpoints(sampleAPI(), "pets", Options{Method: "POST"})
	require.Len(t, results, 1)
	assert.Equal(t, "createPet", results[0].Endpoint.OperationID)

	results = Endpoints(sampleAPI(), "pets", Options{Tag: "WRITE"})
	require.Len(t, results, 1)
	assert.Equal(t, "createPet", results[0].Endpoint.OperationID)

	results = Endpoints(sampleAPI(), "pets", Options{Method: "delete"})
	assert.Empty(t, results)
}

func TestEndpoints_TiesKeepDocumentOrder(t *testing.T) {
	t.Parallel()
	api := &spec.API{Endpoints: []spec.Endpoint{
		{Path: "/widgets/a", Method: spec.GET},
		{Path: "/widgets/b", Method: spec.GET},
		{Path: "/widgets/c", Method: spec.GET},
	}}
	results := Endpoints(api, "widgets", Options{})
	require.Len(t, results, 3)
	assert.Equal(t, "/widgets/a", results[0].Endpoint.Path)
	assert.Equal(t, "/widgets/b", results[1].Endpoint.Path)
	assert.Equal(t, "/widgets/c", results[2].Endpoint.Path)
}

func TestEndpoints_LimitCapsResults(t *testing.T) {
	t.Parallel()
	results := Endpoints(sampleAPI(), "users", Options{Limit: 1})
	assert.Len(t, results, 1)
}

func TestFilter(t *testing.T) {
	t.Parallel()
	eps := Filter(sampleAPI(), Options{Tag: "pets"})
	require.Len(t, eps, 2)
	eps = Filter(sampleAPI(), Options{Method: "get"})
	assert.Len(t, eps, 4)
	eps = Filter(sampleAPI(), Options{})
	assert.Len(t, eps, 5)
}
