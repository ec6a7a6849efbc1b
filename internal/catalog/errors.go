package catalog

import "errors"

var (
	// ErrNotFound indicates the requested movie, download, or scrape doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a status event would move a download backwards.
	ErrInvalidTransition = errors.New("invalid download status transition")

	// ErrInvalidCode indicates an empty catalog code.
	ErrInvalidCode = errors.New("invalid catalog code")
)
