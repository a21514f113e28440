package matching

import "errors"

var (
	// ErrInvalidRequest is returned for a malformed match request. Nothing is read or written.
	ErrInvalidRequest = errors.New("invalid match request")
	// ErrNoCandidates is returned when the namespace holds no résumés.
	ErrNoCandidates = errors.New("no resumes found for college code")
	// ErrPersistence wraps repository failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrNotFound is returned by stores for a missing entity.
	ErrNotFound = errors.New("not found")
)
