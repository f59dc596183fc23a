package resultdb

import (
	"log/slog"
	"os"
	"testing"

	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
	"github.com/stretchr/testify/require"
)

func newTestLogger() logger.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler)
}

func TestPutGetDispose(t *testing.T) {
	assert := require.New(t)
	cache := New(newTestLogger())

	response := &models.SearchResponse{SearchID: "s1"}
	cache.Put(response)

	stored, ok := cache.Get("s1")
	assert.True(ok)
	assert.Same(response, stored)
	assert.Equal(1, cache.Len())

	assert.True(cache.Dispose("s1"))
	assert.False(cache.Dispose("s1"), "disposing twice is a no-op")

	_, ok = cache.Get("s1")
	assert.False(ok)
	assert.Equal(0, cache.Len())
}

func TestGetUnknown(t *testing.T) {
	assert := require.New(t)
	cache := New(newTestLogger())

	_, ok := cache.Get("missing")
	assert.False(ok)
}
