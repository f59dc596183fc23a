package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var searchHandlerTestCases = []testCase{
	{
		name:           "NoRequestBody",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    nil,
		expectedStatus: http.StatusUnprocessableEntity,
	},
	{
		name:           "QueryTooLong",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": strings.Repeat("a", 1001)},
		expectedStatus: http.StatusNotAcceptable,
	},
	{
		name:           "QueryWithNullByte",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "a\x00b"},
		expectedStatus: http.StatusNotAcceptable,
	},
	{
		name:           "UnknownScopeKind",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "foo", "scope": map[string]any{"kind": "global"}},
		expectedStatus: http.StatusNotAcceptable,
	},
	{
		name:           "SearchScopeWithoutID",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "foo", "scope": map[string]any{"kind": "search"}},
		expectedStatus: http.StatusNotAcceptable,
	},
	{
		name:           "InvalidQueryPattern",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "foo(", "is_regex": true},
		expectedStatus: http.StatusBadRequest,
		expectedResponse: map[string]any{
			"data": map[string]any{"field": "query", "pattern": "foo("},
		},
	},
	{
		name:           "InvalidExcludePattern",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "foo", "is_regex": true, "exclude_query": "[bar"},
		expectedStatus: http.StatusBadRequest,
		expectedResponse: map[string]any{
			"data": map[string]any{"field": "exclude_query", "pattern": "[bar"},
		},
	},
	{
		name:           "LiteralCaseSensitive",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "foo", "match_case": true},
		expectedStatus: http.StatusOK,
		expectedResponse: map[string]any{
			"data": map[string]any{
				"request": map[string]any{
					"query":        "foo",
					"scope":        map[string]any{"kind": "workspace"},
					"dedupe_lines": true,
				},
				"results": []any{
					map[string]any{
						"buffer_id": "t1",
						"title":     "t1.txt",
						"matches": []any{
							map[string]any{"line": float64(1), "column": float64(1), "matched_text": "foo", "line_text": "foo"},
							map[string]any{"line": float64(2), "column": float64(5), "matched_text": "foo", "line_text": "bar foo"},
						},
					},
				},
			},
		},
	},
	{
		name:           "LiteralCaseInsensitive",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "FOO", "match_case": false},
		expectedStatus: http.StatusOK,
		expectedResponse: map[string]any{
			"data": map[string]any{
				"results": []any{
					map[string]any{
						"buffer_id": "t1",
						"matches": []any{
							map[string]any{"line": float64(1), "column": float64(1), "matched_text": "foo"},
							map[string]any{"line": float64(2), "column": float64(5), "matched_text": "foo"},
						},
					},
				},
			},
		},
	},
	{
		name:           "ExcludeQuery",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "foo", "exclude_query": "bar"},
		expectedStatus: http.StatusOK,
		expectedResponse: map[string]any{
			"data": map[string]any{
				"request": map[string]any{"exclude_query": "bar"},
				"results": []any{
					map[string]any{
						"buffer_id": "t1",
						"matches": []any{
							map[string]any{"line": float64(1), "column": float64(1), "matched_text": "foo"},
						},
					},
				},
			},
		},
	},
	{
		name:           "EmptyQuery",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "   "},
		expectedStatus: http.StatusOK,
		expectedResponse: map[string]any{
			"data": map[string]any{
				"request": map[string]any{"query": ""},
				"results": []any{},
			},
		},
	},
	{
		name:           "UnknownParentSearch",
		requestHeaders: defaultTestRequestHeaders,
		requestBody:    map[string]any{"query": "foo", "scope": map[string]any{"kind": "search", "search_id": "gone"}},
		expectedStatus: http.StatusOK,
		expectedResponse: map[string]any{
			"data": map[string]any{
				"parent_search_id": "gone",
				"results":          []any{},
			},
		},
	},
}

func TestSearchHandler(t *testing.T) {
	for _, testCase := range searchHandlerTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert := require.New(t)
			ts := setupTestServer(t, assert)
			syncTestBuffer(ts, assert, "t1", "foo\nbar foo\nbaz")

			w := makeTestHTTPRequest(ts.router, assert, http.MethodPost, "/search", testCase.requestHeaders, testCase.requestBody)

			assert.Equal(testCase.expectedStatus, w.Code, w.Body.String())
			if testCase.expectedResponse != nil {
				assertSubset(assert, testCase.expectedResponse, decodeResponse(assert, w), "response")
			}
		})
	}
}

func TestRefineAndDisposeThroughAPI(t *testing.T) {
	assert := require.New(t)
	ts := setupTestServer(t, assert)
	syncTestBuffer(ts, assert, "t1", "foo\nbar foo\nbaz")

	parent := runTestSearch(ts, assert, map[string]any{"query": "bar foo"})
	parentID := parent["search_id"].(string)
	assert.NotEmpty(parentID)

	refined := runTestSearch(ts, assert, map[string]any{
		"query":      "bar",
		"match_case": true,
		"scope":      map[string]any{"kind": "search", "search_id": parentID},
	})
	assertSubset(assert, map[string]any{
		"parent_search_id": parentID,
		"request":          map[string]any{"scope": map[string]any{"kind": "search", "search_id": parentID}},
		"results": []any{
			map[string]any{
				"buffer_id": "t1",
				"matches": []any{
					map[string]any{"line": float64(2), "column": float64(1), "matched_text": "bar", "line_text": "bar foo"},
				},
			},
		},
	}, refined, "data")

	w := makeTestHTTPRequest(ts.router, assert, http.MethodGet, "/search/"+parentID, nil, nil)
	assert.Equal(http.StatusOK, w.Code)

	w = makeTestHTTPRequest(ts.router, assert, http.MethodDelete, "/search/"+parentID, nil, nil)
	assert.Equal(http.StatusNoContent, w.Code)
	w = makeTestHTTPRequest(ts.router, assert, http.MethodDelete, "/search/"+parentID, nil, nil)
	assert.Equal(http.StatusNoContent, w.Code, "disposal is idempotent")

	w = makeTestHTTPRequest(ts.router, assert, http.MethodGet, "/search/"+parentID, nil, nil)
	assert.Equal(http.StatusNotFound, w.Code)

	afterDispose := runTestSearch(ts, assert, map[string]any{
		"query": "bar",
		"scope": map[string]any{"kind": "search", "search_id": parentID},
	})
	assert.Empty(afterDispose["results"])
}

func TestStats(t *testing.T) {
	assert := require.New(t)
	ts := setupTestServer(t, assert)
	syncTestBuffer(ts, assert, "t1", "foo")
	runTestSearch(ts, assert, map[string]any{"query": "foo"})

	w := makeTestHTTPRequest(ts.router, assert, http.MethodGet, "/stats", nil, nil)
	assert.Equal(http.StatusOK, w.Code)
	assertSubset(assert, map[string]any{
		"data": map[string]any{"buffers": float64(1), "cached_searches": float64(1)},
	}, decodeResponse(assert, w), "response")
}
