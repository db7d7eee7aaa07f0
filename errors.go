package sense

import (
	"errors"
	"fmt"
)

// Kind tags the category of a Session-level failure, mirroring the
// tagged error variants a caller needs to branch on (bad address vs.
// device offline vs. a parameter out of range, etc).
type Kind int

const (
	// InvalidAddress is returned when a constructor address fails the
	// MAC-address regex.
	InvalidAddress Kind = iota
	// DeviceNotFound is returned when the transport fails or times out
	// while opening the link.
	DeviceNotFound
	// ContactingDeviceError is returned when a write-flush or read
	// deadline is exceeded.
	ContactingDeviceError
	// DeviceNotIdle is returned when a command requires the idle state
	// but an acquisition is active.
	DeviceNotIdle
	// DeviceNotInAcquisition is returned when Read or Stop is called
	// outside an acquisition.
	DeviceNotInAcquisition
	// InvalidParameter is returned for an out-of-range channel, a
	// duplicate channel, a bad API mode, a bad DAC/battery value, or a
	// wrong-length trigger list.
	InvalidParameter
	// NotSupported is returned when decoding is attempted under an API
	// mode this core does not implement.
	NotSupported
	// UnknownError is returned when the acquisition stream dies before
	// delivering a frame.
	UnknownError
)

func (k Kind) String() string {
	switch k {
	case InvalidAddress:
		return "INVALID_ADDRESS"
	case DeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case ContactingDeviceError:
		return "CONTACTING_DEVICE_ERROR"
	case DeviceNotIdle:
		return "DEVICE_NOT_IDLE"
	case DeviceNotInAcquisition:
		return "DEVICE_NOT_IN_ACQUISITION"
	case InvalidParameter:
		return "INVALID_PARAMETER"
	case NotSupported:
		return "NOT_SUPPORTED"
	case UnknownError:
		return "UNKNOWN_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is the error type raised by every Session and codec operation.
// It carries a Kind a caller can switch on plus an optional diagnostic
// string, and unwraps to the underlying cause when there is one.
type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// newErr builds an *Error with no underlying cause.
func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// wrapErr builds an *Error wrapping a lower-level cause.
func wrapErr(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the Kind tag from err, if err is (or wraps) a
// *sense.Error. UnknownError and false are returned otherwise.
func KindOf(err error) (Kind, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return UnknownError, false
}
