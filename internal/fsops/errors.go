package fsops

import "errors"

// Filesystem layer errors.
var (
	// ErrConfinement is returned when a path escapes the workspace root.
	// The check happens before any I/O.
	ErrConfinement = errors.New("path escapes working directory")

	// ErrNotFound is returned when a read targets a missing file.
	ErrNotFound = errors.New("file not found")

	// ErrConflict is returned when a move destination already exists.
	ErrConflict = errors.New("destination already exists")

	// ErrUndoUnsupported is returned for change records that cannot be
	// reversed, currently recursive directory deletion.
	ErrUndoUnsupported = errors.New("undo not supported for this operation")

	// ErrInvalidPattern is returned for malformed glob or regex patterns.
	ErrInvalidPattern = errors.New("invalid search pattern")
)
