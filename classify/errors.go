package classify

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape is returned for empty or ragged matrices and out of range sizes.
	ErrInputShape = errors.New("invalid input shape")
	// ErrNumerical is returned when a linear algebra routine fails.
	ErrNumerical = errors.New("numerical failure")
	// ErrClustering is returned when density clustering cannot run.
	ErrClustering = errors.New("clustering failed")
)

// EmbedderError wraps an error returned by an Embedder unchanged
type EmbedderError struct {
	Err error
}

func (e *EmbedderError) Error() string {
	return fmt.Sprintf("embedder failed: %v", e.Err)
}

func (e *EmbedderError) Unwrap() error {
	return e.Err
}
