package main

import (
	"testing"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
	"github.com/arloliu/go-ezo/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	name   string
	addrs  []uint16
	closed bool
}

func (b *fakeBus) String() string                  { return b.name }
func (b *fakeBus) SetSpeed(physic.Frequency) error { return nil }
func (b *fakeBus) Close() error                    { b.closed = true; return nil }

func (b *fakeBus) Tx(addr uint16, _, r []byte) error {
	b.addrs = append(b.addrs, addr)
	if len(r) > 0 {
		r[0] = byte(ezo.StatusSuccess)
		copy(r[1:], "7.00")
	}

	return nil
}

func TestBuildDevice(t *testing.T) {
	assert := assert.New(t)

	opened := map[string]*fakeBus{}
	ts := newTransports(func(name string) (i2c.BusCloser, error) {
		bus := &fakeBus{name: name}
		opened[name] = bus

		return bus, nil
	}, logger.NewMockLogger().AllowAll())

	l := logger.NewMockLogger().AllowAll()
	store := sink.NewStore()

	ph, err := buildDevice(DeviceConfig{Name: "tank-ph", Profile: "ph", Transport: "i2c", Bus: "1"}, ts, l, nil, store)
	require.NoError(t, err)
	ec, err := buildDevice(DeviceConfig{Name: "tank-ec", Profile: "ec", Transport: "i2c", Bus: "1", Address: 101}, ts, l, nil, store)
	require.NoError(t, err)

	require.Len(t, opened, 1, "devices on one bus share the handle")
	assert.Equal(uint8(99), ph.Session().Address())
	assert.Equal(uint8(101), ec.Session().Address())

	ph.RequestMeasurement()
	ph.Tick()
	assert.Equal([]uint16{99}, opened["1"].addrs)

	r := ph.Metrics()
	assert.Equal(uint64(1), r.CommandSendCount.Load())

	ts.Close()
	assert.True(opened["1"].closed)
}

func TestBuildDevice_Errors(t *testing.T) {
	ts := newTransports(func(string) (i2c.BusCloser, error) { return &fakeBus{}, nil }, logger.GetLogger())

	_, err := buildDevice(DeviceConfig{Name: "x", Profile: "co2"}, ts, logger.GetLogger(), nil)
	require.ErrorIs(t, err, ezo.ErrUnknownProfile)

	_, err = buildDevice(DeviceConfig{Name: "x", Profile: "ph", Transport: "i2c", FrameSize: 1}, ts, logger.GetLogger(), nil)
	require.ErrorIs(t, err, ezo.ErrInvalidFrameSize)
}
