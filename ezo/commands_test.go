package ezo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_PayloadsAndDelays(t *testing.T) {
	tests := []struct {
		name     string
		enqueue  func(d *Device)
		payload  string
		category Category
		delay    time.Duration
	}{
		{"measurement", (*Device).RequestMeasurement, "R", CategoryRead, DefaultReadDelay},
		{"led on", func(d *Device) { d.SetLED(true) }, "L,1", CategoryLED, DefaultDelay},
		{"led off", func(d *Device) { d.SetLED(false) }, "L,0", CategoryLED, DefaultDelay},
		{"led query", (*Device).GetLED, "L,?", CategoryLED, DefaultDelay},
		{"device info", (*Device).GetDeviceInfo, "i", CategoryDeviceInfo, DefaultDelay},
		{"slope", (*Device).GetSlope, "Slope,?", CategorySlope, DefaultDelay},
		{"sleep", (*Device).Sleep, "Sleep", CategorySleep, 0},
		{"set temperature", func(d *Device) { d.SetTemperature(25) }, "T,25.00", CategoryTemperature, DefaultDelay},
		{"set temperature rounding", func(d *Device) { d.SetTemperature(19.456) }, "T,19.46", CategoryTemperature, DefaultDelay},
		{"get temperature", (*Device).GetTemperature, "T,?", CategoryTemperature, DefaultDelay},
		{"calibration query", (*Device).GetCalibration, "Cal,?", CategoryCalibration, DefaultDelay},
		{"calibrate low", func(d *Device) { d.CalibrateLow(4) }, "Cal,LOW,4.00", CategoryCalibration, DefaultCalibrationDelay},
		{"calibrate mid", func(d *Device) { d.CalibrateMid(7) }, "Cal,MID,7.00", CategoryCalibration, DefaultCalibrationDelay},
		{"calibrate high", func(d *Device) { d.CalibrateHigh(10) }, "Cal,HIGH,10.00", CategoryCalibration, DefaultCalibrationDelay},
		{"calibrate generic", func(d *Device) { d.CalibrateGeneric(225) }, "Cal,225.00", CategoryCalibration, DefaultCalibrationDelay},
		{"clear calibration", (*Device).ClearCalibration, "Cal,clear", CategoryCalibration, DefaultDelay},
		{"custom", func(d *Device) { d.SendCustom("Find") }, "Find", CategoryCustom, DefaultDelay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := newTestDevice(t, SingleProfile("ph"))

			tt.enqueue(d)

			cmd, ok := d.commands.Peek()
			require.True(t, ok)
			assert.Equal(t, tt.payload, cmd.Payload())
			assert.Equal(t, tt.category, cmd.Category())
			assert.Equal(t, tt.delay, cmd.Delay())
			assert.False(t, cmd.Sent())
			assert.False(t, cmd.HasHandler())
		})
	}
}

func TestCommands_ConfiguredDelays(t *testing.T) {
	d, _, _ := newTestDevice(t, SingleProfile("ph"),
		WithDefaultDelay(100*time.Millisecond),
		WithReadDelay(600*time.Millisecond),
		WithCalibrationDelay(1600*time.Millisecond),
	)

	d.GetSlope()
	d.RequestMeasurement()
	d.CalibrateMid(7)

	var delays []time.Duration
	d.commands.Any(func(cmd *Command) bool {
		delays = append(delays, cmd.Delay())
		return false
	})

	assert.Equal(t, []time.Duration{100 * time.Millisecond, 600 * time.Millisecond, 1600 * time.Millisecond}, delays)
}

func TestCommands_SetAddress(t *testing.T) {
	d, _, _ := newTestDevice(t, SingleProfile("ph"))

	require.ErrorIs(t, d.SetAddress(0), ErrInvalidAddress)
	require.ErrorIs(t, d.SetAddress(128), ErrInvalidAddress)
	assert.Equal(t, 0, d.Pending())

	require.NoError(t, d.SetAddress(1))
	require.NoError(t, d.SetAddress(127))
	assert.Equal(t, []string{"I2C,1", "I2C,127"}, queuedPayloads(d))
}

func TestCommands_Enqueue(t *testing.T) {
	d, _, _ := newTestDevice(t, SingleProfile("ph"))

	require.ErrorIs(t, d.Enqueue(Category(99), "R", 0, nil), ErrUnknownCategory)
	require.ErrorIs(t, d.Enqueue(CategoryAddress, "I2C,5", 0, nil), ErrUseSetAddress)
	assert.Zero(t, d.Pending())
	require.ErrorIs(t, d.Enqueue(CategoryCustom, "  ", 0, nil), ErrEmptyCommand)

	require.NoError(t, d.Enqueue(CategoryCustom, "Status", -1, nil))
	require.NoError(t, d.Enqueue(CategoryRead, "RT,25.0", 900*time.Millisecond, nil))

	cmd, ok := d.commands.Dequeue()
	require.True(t, ok)
	assert.Equal(t, DefaultDelay, cmd.Delay())

	cmd, ok = d.commands.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "RT,25.0", cmd.Payload())
	assert.Equal(t, 900*time.Millisecond, cmd.Delay())
}

func TestCommands_NoDeduplication(t *testing.T) {
	d, _, _ := newTestDevice(t, SingleProfile("ph"))

	d.GetSlope()
	d.GetSlope()
	d.RequestMeasurement()
	d.RequestMeasurement()

	assert.Equal(t, 4, d.Pending())
}

func TestUpdate(t *testing.T) {
	t.Run("queues a measurement", func(t *testing.T) {
		d, _, _ := newTestDevice(t, SingleProfile("ph"))

		d.Update()

		assert.Equal(t, []string{"R"}, queuedPayloads(d))
	})

	t.Run("skips when a read is pending", func(t *testing.T) {
		l := newAllowAllLogger()
		d, _, _ := newTestDevice(t, SingleProfile("ph"), WithLogger(l))

		d.GetSlope()
		d.Update()
		d.Update()

		assert.Equal(t, []string{"Slope,?", "R"}, queuedPayloads(d))
		assert.Equal(t, 1, l.CountCalls("Warn", "ezo: read already pending at update interval"))
	})

	t.Run("pending read in flight", func(t *testing.T) {
		d, _, clk := newTestDevice(t, SingleProfile("ph"))

		d.Update()
		step(d, clk, 0)
		require.Equal(t, StateSettling, d.State())

		d.Update()
		assert.Equal(t, 1, d.Pending())
	})
}

func TestHandlerRegistration(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		d, _, _ := newTestDevice(t, SingleProfile("ph"))

		require.NoError(t, d.On(CategorySlope, func(string) {}))
		require.NoError(t, d.OnLED(func(bool) {}))
		require.ErrorIs(t, d.On(CategoryRead, func(string) {}), ErrNoHandlerSlot)
		require.ErrorIs(t, d.On(CategoryLED, func(string) {}), ErrNoHandlerSlot)
		require.ErrorIs(t, d.On(Category(200), func(string) {}), ErrUnknownCategory)
	})

	t.Run("after start", func(t *testing.T) {
		d, _, _ := newTestDevice(t, SingleProfile("ph"))

		d.Tick()

		require.ErrorIs(t, d.On(CategorySlope, func(string) {}), ErrDeviceStarted)
		require.ErrorIs(t, d.OnLED(func(bool) {}), ErrDeviceStarted)
	})

	t.Run("handlers are per device", func(t *testing.T) {
		cfg, err := NewDeviceConfig(WithClock(newFakeClock().Now))
		require.NoError(t, err)

		var first, second []string
		d1, err := NewDevice(newFakeTransport(), SingleProfile("ph"), cfg)
		require.NoError(t, err)
		d2, err := NewDevice(newFakeTransport(), SingleProfile("ph"), cfg)
		require.NoError(t, err)

		require.NoError(t, d1.On(CategoryCustom, func(s string) { first = append(first, s) }))
		require.NoError(t, d2.On(CategoryCustom, func(s string) { second = append(second, s) }))

		d1.callHandler(CategoryCustom, "one")
		assert.Equal(t, []string{"one"}, first)
		assert.Empty(t, second)
	})
}

func TestNewDevice(t *testing.T) {
	cfg, err := NewDeviceConfig()
	require.NoError(t, err)

	_, err = NewDevice(nil, SingleProfile("ph"), cfg)
	require.ErrorIs(t, err, ErrNilTransport)

	_, err = NewDevice(newFakeTransport(), SingleProfile("ph"), nil)
	require.ErrorIs(t, err, ErrNilConfig)

	d, err := NewDevice(newFakeTransport(), ECProfile(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "ezo", d.Name())
	assert.Equal(t, "ec", d.Profile().Type)
	assert.Equal(t, StateIdle, d.State())
	assert.False(t, d.Session().Identified())
}

func TestDumpConfig(t *testing.T) {
	l := newAllowAllLogger()
	d, _, _ := newTestDevice(t, DOProfile(), WithLogger(l), WithAddress(97))

	d.DumpConfig()

	assert.Equal(t, 1, l.CountCalls("Info", "ezo: device config"))
	assert.Equal(t, uint8(97), d.Session().Address())
}
