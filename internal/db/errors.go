package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// CommandError carries the server command that failed so logs show the exact
// operation without string matching on error text.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string { return "db: " + e.Command + ": " + e.Err.Error() }
func (e *CommandError) Unwrap() error { return e.Err }
