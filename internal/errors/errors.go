// Package errors provides centralized error definitions for the capture
// runtime: sentinel errors for the conditions that terminate a capture,
// a device error type carrying the offending identity, and classification
// helpers used by the control loop.
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience, so callers can
// import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Sentinel errors for fatal capture conditions.
var (
	// ErrUsage indicates a bad or unknown command-line argument.
	ErrUsage = New("invalid usage")
	// ErrDeviceAbsent indicates the capture status reports no device or no
	// device identity.
	ErrDeviceAbsent = New("no receiver found")
	// ErrUnknownDevice indicates the device identity prefix is not in the
	// parameter catalog.
	ErrUnknownDevice = New("unknown receiver")
	// ErrDecoderUnavailable indicates the decoder status snapshot is
	// missing or carries no status.
	ErrDecoderUnavailable = New("decoder not available")
)

// DeviceError wraps a fatal device condition with the identity string that
// triggered it.
type DeviceError struct {
	Device string
	Err    error
}

// NewDeviceError creates a DeviceError wrapping err for the given device
// identity.
func NewDeviceError(device string, err error) *DeviceError {
	return &DeviceError{Device: device, Err: err}
}

func (e *DeviceError) Error() string {
	if e.Device == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Device)
}

// Unwrap returns the underlying error.
func (e *DeviceError) Unwrap() error { return e.Err }

// IsFatal reports whether err is one of the conditions that must terminate
// the capture. Fatal errors initiate shutdown; anything else leaves the
// reconciliation loop to retry through its next tick.
func IsFatal(err error) bool {
	return Is(err, ErrDeviceAbsent) ||
		Is(err, ErrUnknownDevice) ||
		Is(err, ErrDecoderUnavailable)
}
