package resultdb

import "github.com/meghashyamc/bufsearch/models"

// DB holds search responses until they are explicitly disposed. It never evicts on its own.
type DB interface {
	Put(response *models.SearchResponse)
	Get(searchID string) (*models.SearchResponse, bool)
	Dispose(searchID string) bool
	Len() int
}
