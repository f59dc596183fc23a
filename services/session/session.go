// Package session loads files into the buffer registry and remembers which
// buffers were open so they can be reopened after a restart.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/meghashyamc/bufsearch/db/bufferdb"
	"github.com/meghashyamc/bufsearch/db/kvdb"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
)

type Service struct {
	logger        logger.Logger
	buffers       bufferdb.DB
	store         kvdb.DB
	maxBufferSize int64
}

func New(logger logger.Logger, buffers bufferdb.DB, store kvdb.DB, maxBufferSize int64) *Service {
	return &Service{
		logger:        logger,
		buffers:       buffers,
		store:         store,
		maxBufferSize: maxBufferSize,
	}
}

// Open reads path into a buffer. Opening a file that is already open refreshes that buffer.
func (s *Service) Open(path string) (models.BufferSnapshot, error) {
	path = filepath.Clean(path)

	content, err := ReadTextFile(path, s.maxBufferSize)
	if err != nil {
		s.logger.Warn("could not open file", "path", path, "err", err.Error())
		return models.BufferSnapshot{}, fmt.Errorf("could not open %s: %w", path, err)
	}

	id := s.findByPath(path)
	if id == "" {
		id = uuid.New().String()
	}

	snapshot, _ := s.buffers.Upsert(models.BufferSnapshot{
		ID:       id,
		Title:    filepath.Base(path),
		FilePath: path,
		Content:  content,
	})

	if err := s.remember(snapshot); err != nil {
		return models.BufferSnapshot{}, err
	}
	s.logger.Info("opened buffer", "buffer_id", snapshot.ID, "path", path)

	return snapshot, nil
}

// Close drops the buffer from the registry and from the session.
func (s *Service) Close(id string) error {
	removed := s.buffers.Remove(id)

	if err := s.store.Delete(kvdb.BuffersBucket, id); err != nil {
		s.logger.Error("failed to forget buffer", "buffer_id", id, "err", err.Error())
		return err
	}

	if !removed {
		return ErrBufferNotFound
	}
	s.logger.Info("closed buffer", "buffer_id", id)
	return nil
}

// SaveAs writes the buffer's current content to path and points the buffer at it.
func (s *Service) SaveAs(id string, path string) (models.BufferSnapshot, error) {
	snapshot, ok := s.buffers.Get(id)
	if !ok {
		return models.BufferSnapshot{}, ErrBufferNotFound
	}

	path = filepath.Clean(path)
	if err := os.WriteFile(path, []byte(snapshot.Content), 0644); err != nil {
		s.logger.Error("failed to save buffer", "buffer_id", id, "path", path, "err", err.Error())
		return models.BufferSnapshot{}, fmt.Errorf("failed to save buffer to %s: %w", path, err)
	}

	snapshot.FilePath = path
	snapshot.Title = filepath.Base(path)
	snapshot, _ = s.buffers.Upsert(snapshot)

	if err := s.remember(snapshot); err != nil {
		return models.BufferSnapshot{}, err
	}
	s.logger.Info("saved buffer", "buffer_id", id, "path", path)

	return snapshot, nil
}

// Restore reopens every remembered buffer. Buffers whose file is gone or unreadable are forgotten.
func (s *Service) Restore() (int, error) {
	records, err := s.store.GetAll(kvdb.BuffersBucket)
	if err != nil {
		s.logger.Error("failed to read session", "err", err.Error())
		return 0, fmt.Errorf("failed to read session: %w", err)
	}

	type entry struct {
		id     string
		record kvdb.BufferRecord
	}
	entries := make([]entry, 0, len(records))
	for id, value := range records {
		var record kvdb.BufferRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			s.logger.Error("failed to unmarshal buffer record", "buffer_id", id, "err", err.Error())
			s.forget(id)
			continue
		}
		entries = append(entries, entry{id: id, record: record})
	}

	// reopen in the order the buffers were first opened
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].record.OpenedAt.Equal(entries[j].record.OpenedAt) {
			return entries[i].record.OpenedAt.Before(entries[j].record.OpenedAt)
		}
		return entries[i].id < entries[j].id
	})

	restored := 0
	for _, e := range entries {
		id, record := e.id, e.record
		content, err := ReadTextFile(record.FilePath, s.maxBufferSize)
		if err != nil {
			s.logger.Warn("dropping buffer that can no longer be read", "buffer_id", id, "path", record.FilePath, "err", err.Error())
			s.forget(id)
			continue
		}

		s.buffers.Upsert(models.BufferSnapshot{
			ID:       id,
			Title:    record.Title,
			FilePath: record.FilePath,
			Content:  content,
		})
		restored++
	}

	s.logger.Info("restored session", "buffers", restored, "dropped", len(records)-restored)
	return restored, nil
}

func (s *Service) remember(snapshot models.BufferSnapshot) error {
	record := kvdb.BufferRecord{FilePath: snapshot.FilePath, Title: snapshot.Title, OpenedAt: time.Now().UTC()}
	if value, err := s.store.Get(kvdb.BuffersBucket, snapshot.ID); err == nil {
		var previous kvdb.BufferRecord
		if err := json.Unmarshal([]byte(value), &previous); err == nil {
			record.OpenedAt = previous.OpenedAt
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		s.logger.Error("failed to marshal buffer record", "buffer_id", snapshot.ID, "err", err.Error())
		return fmt.Errorf("failed to marshal buffer record for %s: %w", snapshot.ID, err)
	}

	if err := s.store.Set(kvdb.BuffersBucket, snapshot.ID, string(data)); err != nil {
		s.logger.Error("failed to remember buffer", "buffer_id", snapshot.ID, "err", err.Error())
		return err
	}
	return nil
}

func (s *Service) forget(id string) {
	if err := s.store.Delete(kvdb.BuffersBucket, id); err != nil && !errors.Is(err, kvdb.ErrNotFound) {
		s.logger.Error("failed to forget buffer", "buffer_id", id, "err", err.Error())
	}
}

func (s *Service) findByPath(path string) string {
	for _, snapshot := range s.buffers.All() {
		if snapshot.FilePath == path {
			return snapshot.ID
		}
	}
	return ""
}
