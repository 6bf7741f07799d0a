package ezo

import "fmt"

// Status is the first byte of a response frame.
type Status byte

const (
	// StatusSuccess indicates the payload holds a valid response.
	StatusSuccess Status = 1
	// StatusSyntaxError indicates the circuit did not understand the command.
	StatusSyntaxError Status = 2
	// StatusPending indicates the circuit is still processing the command.
	StatusPending Status = 254
	// StatusNoData indicates the circuit has nothing to send.
	StatusNoData Status = 255
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSyntaxError:
		return "syntax-error"
	case StatusPending:
		return "pending"
	case StatusNoData:
		return "no-data"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

// Err maps the status to its sentinel error. It returns nil for StatusSuccess.
func (s Status) Err() error {
	switch s {
	case StatusSuccess:
		return nil
	case StatusSyntaxError:
		return ErrDeviceSyntax
	case StatusPending:
		return ErrDeviceBusy
	case StatusNoData:
		return ErrDeviceNoData
	default:
		return fmt.Errorf("%w: %d", ErrUnrecognizedStatus, byte(s))
	}
}
