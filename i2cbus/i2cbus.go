// Package i2cbus provides an ezo.Transport for circuits attached to an I2C bus.
package i2cbus

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/arloliu/go-ezo/ezo"
)

// ErrNilBus indicates a Transport was created without a bus.
var ErrNilBus = errors.New("i2cbus: bus is nil")

// OpenBus initializes the host drivers and opens the named I2C bus.
// An empty name selects the first available bus.
//
// The returned bus may be shared by several Transports driven from the same
// goroutine.
func OpenBus(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2cbus: failed to initialize host drivers: %w", err)
	}

	bus, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2cbus: failed to open bus %q: %w", name, err)
	}

	return bus, nil
}

// Transport talks to one circuit at a 7-bit address.
type Transport struct {
	dev *i2c.Dev
}

var (
	_ ezo.Transport     = (*Transport)(nil)
	_ ezo.AddressSetter = (*Transport)(nil)
)

// New creates a Transport for the circuit at addr on bus.
func New(bus i2c.Bus, addr uint8) (*Transport, error) {
	if bus == nil {
		return nil, ErrNilBus
	}
	if err := validAddress(addr); err != nil {
		return nil, err
	}

	return &Transport{dev: &i2c.Dev{Bus: bus, Addr: uint16(addr)}}, nil
}

// Write sends p as a single write transaction.
func (t *Transport) Write(p []byte) error {
	if err := t.dev.Tx(p, nil); err != nil {
		return fmt.Errorf("i2cbus: write to 0x%02x: %w", t.dev.Addr, err)
	}

	return nil
}

// ReadExact reads an n byte response frame in a single read transaction.
func (t *Transport) ReadExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := t.dev.Tx(nil, buf); err != nil {
		return nil, fmt.Errorf("i2cbus: read from 0x%02x: %w", t.dev.Addr, err)
	}

	return buf, nil
}

// SetAddress retargets the transport after the circuit changed its address.
func (t *Transport) SetAddress(addr uint8) error {
	if err := validAddress(addr); err != nil {
		return err
	}
	t.dev.Addr = uint16(addr)

	return nil
}

// Address returns the current 7-bit address.
func (t *Transport) Address() uint8 { return uint8(t.dev.Addr) }

// String returns the bus and address.
func (t *Transport) String() string {
	return fmt.Sprintf("%s@0x%02x", t.dev.Bus, t.dev.Addr)
}

func validAddress(addr uint8) error {
	if addr < ezo.MinAddress || addr > ezo.MaxAddress {
		return fmt.Errorf("%w: %d", ezo.ErrInvalidAddress, addr)
	}

	return nil
}
