package services

import (
	"errors"
	"fmt"

	"adminpanel/internal/editor"
)

var (
	// ErrValidation is matched by every draft rejected by its field rules.
	ErrValidation = editor.ErrInvalid
	// ErrLoading is returned while a collection has not delivered its first snapshot.
	ErrLoading = errors.New("collection is still loading")

	ErrEmailInUse         = errors.New("email already in use")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// SyncError reports that a collection's live query failed.
type SyncError struct {
	Collection string
	Message    string
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("%s: live query failed: %s", e.Collection, e.Message)
}

// MutationError wraps a failed create, update or delete.
type MutationError struct {
	Op         string
	Collection string
	ID         string
	Err        error
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
	}
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Collection, e.ID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
