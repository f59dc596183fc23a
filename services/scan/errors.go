package scan

import (
	"errors"
	"fmt"
)

var ErrInvalidPattern = errors.New("invalid pattern")

const (
	FieldQuery        = "query"
	FieldExcludeQuery = "exclude_query"
)

// InvalidPatternError names which of the two patterns failed to compile.
type InvalidPatternError struct {
	Field   string
	Pattern string
	Err     error
}

func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern in %s %q: %s", e.Field, e.Pattern, e.Err)
}

func (e *InvalidPatternError) Is(target error) bool {
	return target == ErrInvalidPattern
}

func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}
