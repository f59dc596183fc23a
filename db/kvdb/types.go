package kvdb

import (
	"errors"
	"fmt"
	"time"
)

const (
	// BuffersBucket maps a buffer id to the session record needed to reopen it.
	BuffersBucket = "buffers"
)

var buckets = []string{BuffersBucket}

var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
)

type InvalidKeyError struct {
	Key    string
	Reason string
}
type NotFoundError struct {
	Bucket string
	Key    string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid key %s: %s", e.Key, e.Reason)
}

func (e *InvalidKeyError) Is(target error) bool {
	return target == ErrInvalidKey
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("key not found in %s: %s", e.Bucket, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// BufferRecord is what the session keeps about an open buffer. Content is never stored.
type BufferRecord struct {
	FilePath string    `json:"file_path"`
	Title    string    `json:"title"`
	OpenedAt time.Time `json:"opened_at"`
}
