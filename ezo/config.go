package ezo

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-ezo/logger"
)

// Default settle delays used by the EZO command set.
const (
	DefaultDelay            = 300 * time.Millisecond // LED, info, slope, queries, internal commands
	DefaultReadDelay        = 900 * time.Millisecond // "R"
	DefaultCalibrationDelay = 900 * time.Millisecond // calibration points
	MaxDelay                = 10 * time.Second
)

// Response frame limits.
const (
	DefaultFrameSize = 32
	MinFrameSize     = 2 // status byte plus at least one payload byte
	MaxFrameSize     = 256
)

// I2C address limits.
const (
	MinAddress = 1
	MaxAddress = 127
)

// DeviceConfig holds the configuration of a Device.
type DeviceConfig struct {
	name string

	// frameSize is the number of bytes read per response.
	frameSize int

	// Settle delays between send and read.
	defaultDelay     time.Duration
	readDelay        time.Duration
	calibrationDelay time.Duration

	// address is the initial bus address, informational for DumpConfig.
	address uint8

	clock  Clock
	logger logger.Logger

	sinks      []Sink
	handlers   [categoryCount]func(string)
	ledHandler func(bool)
	waitHook   WaitHook
}

// NewDeviceConfig creates a new device configuration.
//
// opts are functional options applied in order; see With* functions.
func NewDeviceConfig(opts ...DeviceOption) (*DeviceConfig, error) {
	cfg := &DeviceConfig{
		name:             "ezo",
		frameSize:        DefaultFrameSize,
		defaultDelay:     DefaultDelay,
		readDelay:        DefaultReadDelay,
		calibrationDelay: DefaultCalibrationDelay,
		clock:            time.Now,
		logger:           logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// --- Getters ---

// Name returns the device name used in logs and sink labels.
func (cfg *DeviceConfig) Name() string { return cfg.name }

// FrameSize returns the response frame size in bytes.
func (cfg *DeviceConfig) FrameSize() int { return cfg.frameSize }

// DefaultDelay returns the settle delay of generic commands.
func (cfg *DeviceConfig) DefaultDelay() time.Duration { return cfg.defaultDelay }

// ReadDelay returns the settle delay of measurement requests.
func (cfg *DeviceConfig) ReadDelay() time.Duration { return cfg.readDelay }

// CalibrationDelay returns the settle delay of calibration points.
func (cfg *DeviceConfig) CalibrationDelay() time.Duration { return cfg.calibrationDelay }

// Address returns the configured initial bus address, 0 if unset.
func (cfg *DeviceConfig) Address() uint8 { return cfg.address }

// GetLogger returns the configured logger.
func (cfg *DeviceConfig) GetLogger() logger.Logger { return cfg.logger }

// --- DeviceOption ---

// DeviceOption is a functional option for configuring a DeviceConfig.
type DeviceOption interface {
	apply(*DeviceConfig) error
}

type deviceOptFunc func(*DeviceConfig) error

func (f deviceOptFunc) apply(cfg *DeviceConfig) error { return f(cfg) }

// WithName sets the device name.
func WithName(name string) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if name == "" {
			return errors.New("ezo: device name must not be empty")
		}
		cfg.name = name

		return nil
	})
}

// WithAddress records the bus address the circuit starts at. Must be in [1, 127].
func WithAddress(addr uint8) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if addr < MinAddress || addr > MaxAddress {
			return fmt.Errorf("%w: %d", ErrInvalidAddress, addr)
		}
		cfg.address = addr

		return nil
	})
}

// WithFrameSize sets the number of bytes read per response.
// Must be in [MinFrameSize, MaxFrameSize]. Defaults to 32.
func WithFrameSize(n int) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if n < MinFrameSize || n > MaxFrameSize {
			return fmt.Errorf("%w: %d out of range [%d, %d]", ErrInvalidFrameSize, n, MinFrameSize, MaxFrameSize)
		}
		cfg.frameSize = n

		return nil
	})
}

func validDelay(kind string, d time.Duration) error {
	if d < 0 || d > MaxDelay {
		return fmt.Errorf("ezo: %s delay %v out of range [0, %v]", kind, d, MaxDelay)
	}

	return nil
}

// WithDefaultDelay sets the settle delay of generic commands. Defaults to 300ms.
func WithDefaultDelay(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if err := validDelay("default", d); err != nil {
			return err
		}
		cfg.defaultDelay = d

		return nil
	})
}

// WithReadDelay sets the settle delay of measurement requests. Defaults to 900ms.
func WithReadDelay(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if err := validDelay("read", d); err != nil {
			return err
		}
		cfg.readDelay = d

		return nil
	})
}

// WithCalibrationDelay sets the settle delay of calibration points. Defaults to 900ms.
func WithCalibrationDelay(d time.Duration) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if err := validDelay("calibration", d); err != nil {
			return err
		}
		cfg.calibrationDelay = d

		return nil
	})
}

// WithClock replaces the time source. Defaults to time.Now.
func WithClock(clock Clock) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if clock == nil {
			return errors.New("ezo: clock must not be nil")
		}
		cfg.clock = clock

		return nil
	})
}

// WithLogger sets the logger for the device.
func WithLogger(l logger.Logger) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		if l == nil {
			return errors.New("ezo: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithSinks sets the sinks measurements are published to.
//
// Single-value profiles publish to the first sink; multi-value profiles
// publish field i to sink i. A nil entry skips that field.
func WithSinks(sinks ...Sink) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		cfg.sinks = append([]Sink(nil), sinks...)

		return nil
	})
}

// WithHandler registers the response handler of a category.
// Only device information, slope, calibration, temperature and custom
// categories accept a string handler.
func WithHandler(category Category, handler func(string)) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		return cfg.setHandler(category, handler)
	})
}

// WithLEDHandler registers the handler receiving LED state responses.
func WithLEDHandler(handler func(bool)) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		cfg.ledHandler = handler

		return nil
	})
}

// WithWaitHook registers a callback invoked on every tick spent waiting for
// the head command after it was sent.
func WithWaitHook(hook WaitHook) DeviceOption {
	return deviceOptFunc(func(cfg *DeviceConfig) error {
		cfg.waitHook = hook

		return nil
	})
}

func (cfg *DeviceConfig) setHandler(category Category, handler func(string)) error {
	if !category.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, category)
	}
	if !category.hasStringHandler() {
		return fmt.Errorf("%w: %s", ErrNoHandlerSlot, category)
	}
	cfg.handlers[category] = handler

	return nil
}
