package ezo

import "time"

// Transport is the byte channel to a single circuit.
//
// A Device owns its Transport exclusively: the protocol has no framing to
// tell interleaved responses apart, so nothing else may use it while the
// device is running.
type Transport interface {
	// Write sends p to the circuit.
	Write(p []byte) error
	// ReadExact reads one response frame of n bytes. Implementations return
	// an error when no frame is available.
	ReadExact(n int) ([]byte, error)
}

// AddressSetter is implemented by transports that can follow an address
// change of the circuit (I2C).
type AddressSetter interface {
	SetAddress(addr uint8) error
}

// Clock returns the current time. It must be monotonic.
type Clock func() time.Time

// Sink receives numeric values published by a Device.
type Sink interface {
	PublishState(value float64)
}

// SinkFunc is the func form of Sink.
type SinkFunc func(value float64)

// PublishState implements Sink.
func (f SinkFunc) PublishState(value float64) { f(value) }

// WaitHook is called on every tick spent waiting for the head command, with
// the number of ticks elapsed since it was sent.
type WaitHook func(cmd *Command, ticks uint64)
