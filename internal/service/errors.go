package service

import "fmt"

// Failure taxonomy for the upload path. The HTTP layer collapses these into
// an opaque failure for the client but logs each kind distinctly.

type ErrDecode struct {
	error
}

func NewErrDecode(filename string, cause error) *ErrDecode {
	return &ErrDecode{fmt.Errorf("unreadable image %q: %w", filename, cause)}
}

type ErrInference struct {
	error
}

func NewErrInference(filename string, cause error) *ErrInference {
	return &ErrInference{fmt.Errorf("scoring failed for %q: %w", filename, cause)}
}

type ErrStore struct {
	error
}

func NewErrStore(cause error) *ErrStore {
	return &ErrStore{fmt.Errorf("score store: %w", cause)}
}

type ErrModelUnavailable struct {
	error
}

func NewErrModelUnavailable() *ErrModelUnavailable {
	return &ErrModelUnavailable{fmt.Errorf("scoring model not loaded")}
}

type ErrRecordNotFound struct {
	error
}

func NewErrRecordNotFound(id uint) *ErrRecordNotFound {
	return &ErrRecordNotFound{fmt.Errorf("score record %d not found", id)}
}

type ErrUnknownMetric struct {
	error
}

func NewErrUnknownMetric(name string) *ErrUnknownMetric {
	return &ErrUnknownMetric{fmt.Errorf("unknown metric %q", name)}
}
