package model

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared by every store backend, the archive codec and the
// use case layer. Check them with errors.Is.
var (
	// ErrValidation is returned when required input is missing or malformed
	ErrValidation = goerr.New("validation failed")

	// ErrNotFound is returned when an operation references a nonexistent ID
	ErrNotFound = goerr.New("not found")

	// ErrFormat is returned when an archive is not a well-formed backup
	ErrFormat = goerr.New("invalid backup format")

	// ErrSizeLimit is returned when an archive exceeds the size ceiling
	ErrSizeLimit = goerr.New("backup file too large")

	// ErrConflict is returned when a username already exists
	ErrConflict = goerr.New("user already exists")

	// ErrBackend wraps opaque failures surfaced by a remote backend
	ErrBackend = goerr.New("backend failure")

	// ErrBusy is returned when a restore is requested while one is running
	ErrBusy = goerr.New("restore already in progress")

	// ErrInvalidState is returned for illegal restore workflow transitions
	ErrInvalidState = goerr.New("invalid restore state")

	// ErrNotConfigured is returned by a notifier lacking credentials
	ErrNotConfigured = goerr.New("notifier not configured")
)

// Context keys for error values
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
	FieldKey    = "field"
	FileNameKey = "file_name"
	FileSizeKey = "file_size"
	StateKey    = "state"
)
