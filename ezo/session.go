package ezo

import "time"

// Session holds what the driver learned about the circuit and the timing of
// the outstanding command.
type Session struct {
	name    string
	version string
	address uint8

	// startTime is when the head command was written.
	startTime time.Time
}

// Name returns the circuit type reported by the device information query, e.g. "pH".
func (s Session) Name() string { return s.name }

// Version returns the firmware version reported by the device information query.
func (s Session) Version() string { return s.version }

// Address returns the current bus address, 0 if unknown.
func (s Session) Address() uint8 { return s.address }

// Identified reports whether the bootstrap query has completed.
func (s Session) Identified() bool { return s.name != "" }
