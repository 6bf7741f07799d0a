package main

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/i2c"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/i2cbus"
	"github.com/arloliu/go-ezo/logger"
	"github.com/arloliu/go-ezo/sink"
	"github.com/arloliu/go-ezo/uart"
)

// busOpener opens an I2C bus by name.
type busOpener func(name string) (i2c.BusCloser, error)

// transports opens the transports of the configured devices, sharing one
// handle per I2C bus.
type transports struct {
	openBus busOpener
	buses   map[string]i2c.BusCloser
	closers []io.Closer
	logger  logger.Logger
}

func newTransports(openBus busOpener, l logger.Logger) *transports {
	return &transports{
		openBus: openBus,
		buses:   make(map[string]i2c.BusCloser),
		logger:  l,
	}
}

// open returns the transport of dc and the address the circuit starts at,
// 0 for UART circuits.
func (ts *transports) open(dc DeviceConfig, profile ezo.Profile) (ezo.Transport, uint8, error) {
	if dc.Transport == "uart" {
		tr, err := uart.Open(uart.Config{Port: dc.Port, Baud: dc.Baud}, ts.logger)
		if err != nil {
			return nil, 0, err
		}
		ts.closers = append(ts.closers, tr)

		return tr, 0, nil
	}

	bus, ok := ts.buses[dc.Bus]
	if !ok {
		var err error
		if bus, err = ts.openBus(dc.Bus); err != nil {
			return nil, 0, err
		}
		ts.buses[dc.Bus] = bus
		ts.closers = append(ts.closers, bus)
	}

	addr := uint8(dc.Address)
	if addr == 0 {
		addr = profile.DefaultAddress
	}

	tr, err := i2cbus.New(bus, addr)
	if err != nil {
		return nil, 0, fmt.Errorf("device %q: %w", dc.Name, err)
	}

	return tr, addr, nil
}

func (ts *transports) Close() {
	for i := len(ts.closers) - 1; i >= 0; i-- {
		if err := ts.closers[i].Close(); err != nil {
			ts.logger.Warn("failed to close transport", "error", err)
		}
	}
}

// buildDevice creates the device of dc publishing to factories. extra options
// are applied after the ones derived from dc.
func buildDevice(dc DeviceConfig, ts *transports, l logger.Logger, extra []ezo.DeviceOption, factories ...sink.Factory) (*ezo.Device, error) {
	profile, err := ezo.ProfileByName(dc.Profile, dc.Fields...)
	if err != nil {
		return nil, err
	}

	tr, addr, err := ts.open(dc, profile)
	if err != nil {
		return nil, err
	}

	opts := []ezo.DeviceOption{
		ezo.WithName(dc.Name),
		ezo.WithLogger(l),
		ezo.WithSinks(sink.ForFields(dc.Name, profile.FieldNames(), factories...)...),
	}
	if addr != 0 {
		opts = append(opts, ezo.WithAddress(addr))
	}
	if dc.ReadDelay > 0 {
		opts = append(opts, ezo.WithReadDelay(dc.ReadDelay))
	}
	if dc.FrameSize > 0 {
		opts = append(opts, ezo.WithFrameSize(dc.FrameSize))
	}
	opts = append(opts, extra...)

	cfg, err := ezo.NewDeviceConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("device %q: %w", dc.Name, err)
	}

	return ezo.NewDevice(tr, profile, cfg)
}
