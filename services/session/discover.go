package session

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/meghashyamc/bufsearch/db/bufferdb"
	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
)

// TreeFilter selects files by doublestar globs relative to the walked root.
// An empty Include selects everything.
type TreeFilter struct {
	Include []string
	Exclude []string
}

func (f TreeFilter) Validate() error {
	for _, pattern := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid glob pattern %q", pattern)
		}
	}
	return nil
}

func (f TreeFilter) matches(relPath string) bool {
	for _, pattern := range f.Exclude {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return false
		}
	}

	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, _ := doublestar.Match(pattern, relPath); matched {
			return true
		}
	}
	return false
}

// DiscoverFiles walks root and returns the slash-separated relative paths of
// files the filter selects, skipping hidden files and directories.
func DiscoverFiles(logger logger.Logger, root string, filter TreeFilter) ([]string, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			logger.Error("could not walk through file or directory", "path", path, "err", err.Error())
			if errors.Is(err, fs.ErrPermission) {
				return nil
			}
			return err
		}

		// Skip directories that start with '.' but not the root directory
		if entry.IsDir() && strings.HasPrefix(entry.Name(), ".") && path != root {
			return filepath.SkipDir
		}

		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !entry.Type().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if filter.matches(relPath) {
			files = append(files, relPath)
		}
		return nil
	})

	return files, err
}

// LoadTree reads every discovered text file under root into buffers, keyed by relative path.
// Files that are binary or too large are skipped.
func LoadTree(logger logger.Logger, buffers bufferdb.DB, root string, filter TreeFilter, maxSize int64) (int, error) {
	files, err := DiscoverFiles(logger, root, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to discover files under %s: %w", root, err)
	}

	loaded := 0
	for _, relPath := range files {
		fullPath := filepath.Join(root, filepath.FromSlash(relPath))
		content, err := ReadTextFile(fullPath, maxSize)
		if err != nil {
			if errors.Is(err, ErrNotText) || errors.Is(err, ErrTooLarge) {
				logger.Debug("skipping file", "path", fullPath, "reason", err.Error())
				continue
			}
			logger.Warn("could not read file", "path", fullPath, "err", err.Error())
			continue
		}

		buffers.Upsert(models.BufferSnapshot{
			ID:       relPath,
			Title:    relPath,
			FilePath: fullPath,
			Content:  content,
		})
		loaded++
	}

	logger.Info("loaded files", "root", root, "discovered", len(files), "loaded", loaded)
	return loaded, nil
}
