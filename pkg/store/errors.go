package store

import "errors"

var (
	// ErrSnapshotNotFound is returned when no snapshot exists for the requested ID.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrInvalidSnapshot is returned when a snapshot has an empty ID.
	ErrInvalidSnapshot = errors.New("invalid snapshot: empty id")
	// ErrInvalidSnapshotID is returned when an ID cannot be used as a storage key.
	ErrInvalidSnapshotID = errors.New("invalid snapshot id")
)
