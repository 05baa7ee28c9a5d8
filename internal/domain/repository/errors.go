package repository

import "errors"

var (
	// ErrNotFound is returned when a keyed lookup has no match
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned when a conditional write lost a race
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyForced is returned when a quarantine entry was already imported
	ErrAlreadyForced = errors.New("quarantine entry already force-imported")

	// ErrReplayInProgress is returned when another operator holds the replay claim
	ErrReplayInProgress = errors.New("quarantine entry replay already in progress")
)
