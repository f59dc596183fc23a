package session

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// sniffSize is how much of a file is inspected to decide whether it is text.
const sniffSize = 8000

// ReadTextFile reads a file into a string, refusing files larger than maxSize or that look binary.
func ReadTextFile(path string, maxSize int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}
	if stat.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if maxSize > 0 && stat.Size() > maxSize {
		return "", &TooLargeError{Path: path, Size: stat.Size(), MaxSize: maxSize}
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}

	if !IsText(content) {
		return "", &NotTextError{Path: path}
	}

	return string(content), nil
}

// IsText treats content as text when its head has no NUL byte and is valid UTF-8.
func IsText(content []byte) bool {
	head := content[:min(len(content), sniffSize)]
	if bytes.IndexByte(head, 0) >= 0 {
		return false
	}
	// the sniffed window may cut a multi-byte rune in half
	for i := 0; i < utf8.UTFMax && len(head) > 0 && !utf8.Valid(head); i++ {
		head = head[:len(head)-1]
	}
	return utf8.Valid(head)
}
