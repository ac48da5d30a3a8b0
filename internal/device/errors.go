package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a device name has never been discovered.
	ErrNotFound = errors.New("device: not found")

	// ErrInvalidName is returned when a record has an empty name.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrOffline is returned by callers of the registry (e.g. the IoT
	// client) when a device exists but is currently unhealthy.
	ErrOffline = errors.New("device: offline")

	// ErrUnsupportedOperation is returned when an operation is not in a
	// device's capability set.
	ErrUnsupportedOperation = errors.New("device: unsupported operation")
)
