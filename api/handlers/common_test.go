// Common test helpers
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bufsearch/db/bufferdb"
	"github.com/meghashyamc/bufsearch/db/kvdb"
	"github.com/meghashyamc/bufsearch/db/resultdb"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/services/broadcast"
	"github.com/meghashyamc/bufsearch/services/search"
	"github.com/meghashyamc/bufsearch/services/session"
	"github.com/meghashyamc/bufsearch/validation"
	"github.com/stretchr/testify/require"
)

const testMaxBufferSize = 1024 * 1024

var defaultTestRequestHeaders = map[string]string{"Content-Type": "application/json"}

var testFiles = map[string]string{
	"notes.txt":   "foo\nbar foo\nbaz",
	"src/main.go": "package main\n\nfunc main() {\n\tprint(\"foo\")\n}",
	"image.png":   "\x89PNG\x00\x00",
}

type testCase struct {
	name             string
	requestHeaders   map[string]string
	requestBody      map[string]any
	endpoint         string
	expectedStatus   int
	expectedResponse map[string]any
}

type testServer struct {
	router  *gin.Engine
	hub     *broadcast.Hub
	buffers *bufferdb.Registry
	dir     string
}

func newTestLogger() logger.Logger {

	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}

func setupTestServer(t *testing.T, assert *require.Assertions) *testServer {
	tempDir := t.TempDir()
	for relPath, content := range testFiles {
		fullPath := filepath.Join(tempDir, relPath)
		err := os.MkdirAll(filepath.Dir(fullPath), 0755)
		assert.NoError(err, "could not create test sub-directory")
		err = os.WriteFile(fullPath, []byte(content), 0644)
		assert.NoError(err, "could not write test file")
	}

	testLogger := newTestLogger()

	kvDB, err := kvdb.New(testLogger, filepath.Join(tempDir, ".bufsearch", "session.db"))
	assert.NoError(err, "could not create kv database")
	validator, err := validation.New(testLogger)
	assert.NoError(err, "could not create validator")

	buffers := bufferdb.New(testLogger)
	hub := broadcast.New(testLogger)
	searchService := search.New(testLogger, buffers, resultdb.New(testLogger), hub)
	sessions := session.New(testLogger, buffers, kvDB, testMaxBufferSize)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	gin.SetMode(gin.TestMode)
	router := gin.New()

	SetupBuffers(router, testLogger, buffers, sessions, validator)
	SetupSearch(router, testLogger, searchService, validator)
	SetupEvents(router, testLogger, hub, validator)

	t.Cleanup(func() {
		cancel()
		wg.Wait()
		assert.NoError(kvDB.Close(), "could not close kv database")
	})

	return &testServer{router: router, hub: hub, buffers: buffers, dir: tempDir}
}

func makeTestHTTPRequest(router *gin.Engine, assert *require.Assertions, method string, endpoint string, headers map[string]string, requestBodyMap map[string]interface{}) *httptest.ResponseRecorder {

	var err error
	w := httptest.NewRecorder()

	var jsonBody []byte
	var req *http.Request
	if requestBodyMap != nil {
		jsonBody, err = json.Marshal(requestBodyMap)
		assert.NoError(err)
	}

	slog.Info("Making test request", "method", method, "endpoint", endpoint, "headers", headers, "body", string(jsonBody))

	if len(jsonBody) > 0 {
		req, err = http.NewRequest(method, endpoint, bytes.NewBuffer(jsonBody))
	} else {
		req, err = http.NewRequest(method, endpoint, nil)
	}
	assert.NoError(err)

	for key, value := range headers {
		req.Header.Set(key, value)
	}
	router.ServeHTTP(w, req)

	return w
}

func decodeResponse(assert *require.Assertions, w *httptest.ResponseRecorder) map[string]any {
	var actualResponse map[string]any
	assert.NoError(json.Unmarshal(w.Body.Bytes(), &actualResponse), "response should be valid JSON")
	return actualResponse
}

// syncTestBuffer pushes a buffer the way an editing surface would.
func syncTestBuffer(ts *testServer, assert *require.Assertions, id string, content string) {
	w := makeTestHTTPRequest(ts.router, assert, http.MethodPut, "/buffers/"+id, defaultTestRequestHeaders,
		map[string]any{"title": id + ".txt", "content": content})
	assert.Equal(http.StatusOK, w.Code, w.Body.String())
}

// runTestSearch posts a search and returns the decoded data section.
func runTestSearch(ts *testServer, assert *require.Assertions, body map[string]any) map[string]any {
	w := makeTestHTTPRequest(ts.router, assert, http.MethodPost, "/search", defaultTestRequestHeaders, body)
	assert.Equal(http.StatusOK, w.Code, w.Body.String())
	return decodeResponse(assert, w)["data"].(map[string]any)
}

// assertSubset checks that every key in expected is present in actual with an equal value,
// descending into nested maps and slices.
func assertSubset(assert *require.Assertions, expected any, actual any, path string) {
	switch expectedValue := expected.(type) {
	case map[string]any:
		actualMap, ok := actual.(map[string]any)
		assert.True(ok, "expected an object at %s, got %v", path, actual)
		for key, value := range expectedValue {
			actualValue, exists := actualMap[key]
			assert.True(exists, "expected field %s.%s", path, key)
			assertSubset(assert, value, actualValue, path+"."+key)
		}
	case []any:
		actualSlice, ok := actual.([]any)
		assert.True(ok, "expected an array at %s, got %v", path, actual)
		assert.Len(actualSlice, len(expectedValue), "length mismatch at %s", path)
		for i := range expectedValue {
			assertSubset(assert, expectedValue[i], actualSlice[i], path)
		}
	default:
		assert.Equal(expected, actual, "value mismatch at %s", path)
	}
}
