package ezo

import "errors"

// Sentinel errors for the command/response protocol.
//
// Protocol failures never abort the device: they are logged, counted in
// DeviceMetrics and end only the command that caused them.
var (
	// ErrTransport indicates a write or read failed at the byte-transfer level.
	ErrTransport = errors.New("ezo: transport error")
	// ErrDeviceSyntax indicates the circuit reported a syntax error (status 2).
	ErrDeviceSyntax = errors.New("ezo: device returned a syntax error")
	// ErrDeviceNoData indicates the circuit had no data to send (status 255).
	ErrDeviceNoData = errors.New("ezo: device returned no data")
	// ErrDeviceBusy indicates the circuit is still processing (status 254).
	ErrDeviceBusy = errors.New("ezo: device still processing")
	// ErrUnrecognizedStatus indicates an unknown status byte.
	ErrUnrecognizedStatus = errors.New("ezo: device returned an unknown response")
	// ErrPayloadParse indicates a measurement payload could not be parsed as a number.
	ErrPayloadParse = errors.New("ezo: payload is not a number")
	// ErrShortFrame indicates the transport returned an empty response frame.
	ErrShortFrame = errors.New("ezo: empty response frame")
)

// Configuration and usage errors.
var (
	// ErrNilTransport indicates a Device was created without a transport.
	ErrNilTransport = errors.New("ezo: transport is nil")
	// ErrNilConfig indicates a Device was created without a configuration.
	ErrNilConfig = errors.New("ezo: device config is nil")
	// ErrInvalidAddress indicates an I2C address outside [1, 127].
	ErrInvalidAddress = errors.New("ezo: invalid I2C address, should be in range of [1, 127]")
	// ErrDeviceStarted indicates handlers were changed after the first tick.
	ErrDeviceStarted = errors.New("ezo: device already started")
	// ErrUnknownCategory indicates an undefined command category.
	ErrUnknownCategory = errors.New("ezo: unknown command category")
	// ErrUseSetAddress indicates an address change was enqueued directly
	// instead of through Device.SetAddress.
	ErrUseSetAddress = errors.New("ezo: address changes must use SetAddress")
	// ErrNoHandlerSlot indicates a category that does not accept a string handler.
	ErrNoHandlerSlot = errors.New("ezo: category does not accept a handler")
	// ErrUnknownProfile indicates a profile name that is not defined.
	ErrUnknownProfile = errors.New("ezo: unknown device profile")
	// ErrEmptyCommand indicates an empty command payload.
	ErrEmptyCommand = errors.New("ezo: command is empty")
	// ErrInvalidFrameSize indicates a response frame size outside [MinFrameSize, MaxFrameSize].
	ErrInvalidFrameSize = errors.New("ezo: invalid response frame size")
)
