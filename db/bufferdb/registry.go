package bufferdb

import (
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
)

type Registry struct {
	mu        sync.RWMutex
	logger    logger.Logger
	snapshots map[string]models.BufferSnapshot
	order     []string
}

func New(logger logger.Logger) *Registry {
	return &Registry{
		logger:    logger,
		snapshots: make(map[string]models.BufferSnapshot),
	}
}

func (r *Registry) Upsert(snapshot models.BufferSnapshot) (models.BufferSnapshot, bool) {
	snapshot.Fingerprint = xxhash.Sum64String(snapshot.Content)

	r.mu.Lock()
	defer r.mu.Unlock()

	previous, exists := r.snapshots[snapshot.ID]
	if !exists {
		r.order = append(r.order, snapshot.ID)
	}
	r.snapshots[snapshot.ID] = snapshot

	changed := !exists || previous.Fingerprint != snapshot.Fingerprint
	r.logger.Debug("buffer synced", "buffer_id", snapshot.ID, "new", !exists, "changed", changed, "size", len(snapshot.Content))

	return snapshot, changed
}

func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.snapshots[id]; !exists {
		return false
	}
	delete(r.snapshots, id)

	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
	r.logger.Debug("buffer removed", "buffer_id", id)

	return true
}

func (r *Registry) Get(id string) (models.BufferSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot, ok := r.snapshots[id]
	return snapshot, ok
}

// All copies the snapshots out under the read lock so a search never sees a half-applied sync.
func (r *Registry) All() []models.BufferSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshots := make([]models.BufferSnapshot, 0, len(r.order))
	for _, id := range r.order {
		snapshots = append(snapshots, r.snapshots[id])
	}
	return snapshots
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}
