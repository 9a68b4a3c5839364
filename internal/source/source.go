// Package source retrieves raw content files by path.
package source

import (
	"context"
	"fmt"
	"net/http"
)

// Retriever fetches the raw bytes of a content file.
type Retriever interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// RetrieverFunc adapts a function to the Retriever interface.
type RetrieverFunc func(ctx context.Context, path string) ([]byte, error)

func (f RetrieverFunc) Fetch(ctx context.Context, path string) ([]byte, error) {
	return f(ctx, path)
}

// RetrievalError reports a failed fetch. Status is zero when no response was
// received.
type RetrievalError struct {
	Path   string
	Status int
	Reason string
	Err    error
}

func (e *RetrievalError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("failed to load %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("failed to load %s: %d %s", e.Path, e.Status, e.Reason)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func notFound(path string) *RetrievalError {
	return &RetrievalError{Path: path, Status: http.StatusNotFound, Reason: http.StatusText(http.StatusNotFound)}
}
