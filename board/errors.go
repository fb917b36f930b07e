package board

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by operations that need a loaded board.
	ErrNotLoaded = errors.New("board is not loaded")
	// ErrTaskNotFound is returned when a task id is not on the board.
	ErrTaskNotFound = errors.New("task not found on board")
)

// ValidationError rejects input before any network call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// LoadError reports a failed board load. Nothing from the failed load was
// committed and the load can be retried.
type LoadError struct {
	Stage string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load board (%s): %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Retryable is always true; load failures leave the board untouched.
func (e *LoadError) Retryable() bool { return true }

// MutationError wraps a failed create, update, delete or move call. Its
// message is the collaborator's message unchanged.
type MutationError struct {
	Op  string
	Err error
}

func (e *MutationError) Error() string { return e.Err.Error() }

func (e *MutationError) Unwrap() error { return e.Err }
