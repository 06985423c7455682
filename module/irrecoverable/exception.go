package irrecoverable

import (
	"fmt"
)

// exception wraps an error while breaking the errors.Is / errors.As chain to
// it. It marks failures that no caller should attempt to interpret or
// recover from, preventing a benign-looking sentinel deep in the chain from
// being matched by business logic.
type exception struct {
	err error
}

func (e exception) Error() string {
	return e.err.Error() + " (exception!)"
}

// NewException wraps the input error as an exception, stripping any sentinel
// errors in its chain from consideration by higher logic.
func NewException(err error) error {
	return exception{err: err}
}

// NewExceptionf is NewException with formatting.
func NewExceptionf(msg string, args ...interface{}) error {
	return NewException(fmt.Errorf(msg, args...))
}
