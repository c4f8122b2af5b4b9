package scoutrag

import (
	"errors"
	"fmt"
)

// ErrCacheMismatch signals that a cache artifact does not belong to the
// current team data. It only ever triggers a rebuild.
var ErrCacheMismatch = errors.New("cache fingerprint mismatch")

// ProviderError is returned when the remote embedding call fails, either
// with a non-success status or at the transport level.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s embedding error: %d - %s", e.Provider, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s embedding error: %v", e.Provider, e.Err)
	default:
		return e.Provider + " embedding error"
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DataSourceError is returned when team records cannot be read. Path is the
// directory or the file that failed.
type DataSourceError struct {
	Path string
	Err  error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("team data %s: %v", e.Path, e.Err)
}

func (e *DataSourceError) Unwrap() error {
	return e.Err
}
