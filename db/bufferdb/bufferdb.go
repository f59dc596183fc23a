package bufferdb

import "github.com/meghashyamc/bufsearch/models"

// DB tracks the latest snapshot of every open buffer.
type DB interface {
	// Upsert replaces any snapshot sharing the same id. It reports whether the content changed.
	Upsert(snapshot models.BufferSnapshot) (models.BufferSnapshot, bool)
	Remove(id string) bool
	Get(id string) (models.BufferSnapshot, bool)
	// All returns the snapshots in insertion order.
	All() []models.BufferSnapshot
	Len() int
}
