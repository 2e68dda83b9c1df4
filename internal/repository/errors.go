package repository

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a row id is unknown to the store.
	ErrNotFound = errors.New("not found")
	// ErrRowScraped is returned when a selection change targets a row
	// that has already been scraped.
	ErrRowScraped = errors.New("url already scraped")
	// ErrStoreUnavailable wraps store connectivity failures that abort an
	// operation before any work is dispatched.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrBatchInProgress is returned when a scrape run is requested while
	// another one holds the process-wide batch guard.
	ErrBatchInProgress = errors.New("batch scrape already in progress")

	// ErrFetchTimeout marks a scrape that exceeded the per-task timeout.
	ErrFetchTimeout = errors.New("fetch timed out")
	// ErrParse marks a fetched page that yielded no usable product fields.
	ErrParse = errors.New("page could not be parsed")
)

// HTTPStatusError is returned by scrape adapters when the target responds
// with a non-2xx status. It is a soft, row-level failure like ErrFetchTimeout
// and ErrParse: the queue row stays selected and retryable.
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.StatusCode, e.URL)
}
