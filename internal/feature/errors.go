package feature

import "errors"

// Sentinel errors for feature registry operations.
var (
	// ErrUnknownFeature is returned when a name has no registered feature.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrDuplicateFeature is returned when a name is registered twice.
	ErrDuplicateFeature = errors.New("feature already registered")
)
