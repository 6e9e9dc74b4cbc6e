package mpi

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports that the id is absent from the authoritative store.
	ErrNotFound = errors.New("patient not found")

	// ErrUnknownProfile reports a weight profile name with no configuration.
	ErrUnknownProfile = errors.New("unknown weight profile")

	// ErrHasRelations blocks hard deletion while linked relations exist.
	ErrHasRelations = errors.New("patient has active relations")
)

// ValidationError reports a malformed identity fragment, e.g. a fuzzy query
// with every field empty.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid identity fragment: " + e.Reason
}

// SyncFailure reports that index propagation failed after a successful
// authoritative write. It is a warning: the write is never rolled back.
type SyncFailure struct {
	Op  string
	ID  string
	Err error
}

func (e *SyncFailure) Error() string {
	return fmt.Sprintf("index %s for patient %s failed: %v", e.Op, e.ID, e.Err)
}

func (e *SyncFailure) Unwrap() error { return e.Err }
