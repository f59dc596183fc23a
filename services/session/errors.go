package session

import (
	"errors"
	"fmt"
)

var (
	ErrBufferNotFound = errors.New("buffer not found")
	ErrNotText        = errors.New("file is not text")
	ErrTooLarge       = errors.New("file is too large")
)

type TooLargeError struct {
	Path    string
	Size    int64
	MaxSize int64
}

type NotTextError struct {
	Path string
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, more than the limit of %d", e.Path, e.Size, e.MaxSize)
}

func (e *TooLargeError) Is(target error) bool {
	return target == ErrTooLarge
}

func (e *NotTextError) Error() string {
	return fmt.Sprintf("file %s does not look like text", e.Path)
}

func (e *NotTextError) Is(target error) bool {
	return target == ErrNotText
}
