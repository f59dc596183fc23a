package resultdb

import (
	"sync"

	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
)

type Cache struct {
	mu        sync.RWMutex
	logger    logger.Logger
	responses map[string]*models.SearchResponse
}

func New(logger logger.Logger) *Cache {
	return &Cache{
		logger:    logger,
		responses: make(map[string]*models.SearchResponse),
	}
}

func (c *Cache) Put(response *models.SearchResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responses[response.SearchID] = response
}

func (c *Cache) Get(searchID string) (*models.SearchResponse, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	response, ok := c.responses[searchID]
	return response, ok
}

func (c *Cache) Dispose(searchID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.responses[searchID]; !ok {
		return false
	}
	delete(c.responses, searchID)
	c.logger.Debug("search result disposed", "search_id", searchID, "remaining", len(c.responses))

	return true
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.responses)
}
