package ezo

import (
	"fmt"
	"strings"
	"time"
)

// Enqueue appends a command to the queue.
//
// A nil handler selects the category's default interpretation. A negative
// delay selects the configured default delay.
func (d *Device) Enqueue(category Category, payload string, delay time.Duration, handler func(string)) error {
	if !category.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, category)
	}
	if category == CategoryAddress {
		return ErrUseSetAddress
	}
	if strings.TrimSpace(payload) == "" {
		return ErrEmptyCommand
	}
	if delay < 0 {
		delay = d.cfg.defaultDelay
	}
	d.enqueue(category, payload, delay, handler)

	return nil
}

// RequestMeasurement queues a reading ("R").
func (d *Device) RequestMeasurement() {
	d.enqueue(CategoryRead, "R", d.cfg.readDelay, nil)
}

// SetLED turns the indicator LED on or off.
func (d *Device) SetLED(on bool) {
	payload := "L,0"
	if on {
		payload = "L,1"
	}
	d.enqueue(CategoryLED, payload, d.cfg.defaultDelay, nil)
}

// GetLED queries the LED state. The result is delivered to the LED handler.
func (d *Device) GetLED() {
	d.enqueue(CategoryLED, "L,?", d.cfg.defaultDelay, nil)
}

// GetDeviceInfo queries the circuit type and firmware version.
func (d *Device) GetDeviceInfo() {
	d.enqueue(CategoryDeviceInfo, "i", d.cfg.defaultDelay, nil)
}

// GetSlope queries the probe slope.
func (d *Device) GetSlope() {
	d.enqueue(CategorySlope, "Slope,?", d.cfg.defaultDelay, nil)
}

// Sleep puts the circuit into low power mode. The circuit does not answer.
func (d *Device) Sleep() {
	d.enqueue(CategorySleep, "Sleep", 0, nil)
}

// SetAddress changes the circuit's I2C address. The circuit reboots without
// answering and the device follows it to the new address once the command is
// sent.
func (d *Device) SetAddress(addr uint8) error {
	if addr < MinAddress || addr > MaxAddress {
		return fmt.Errorf("%w: %d", ErrInvalidAddress, addr)
	}
	cmd := d.enqueue(CategoryAddress, fmt.Sprintf("I2C,%d", addr), 0, nil)
	cmd.address = addr

	return nil
}

// SetTemperature sets the temperature compensation in °C.
func (d *Device) SetTemperature(celsius float64) {
	d.enqueue(CategoryTemperature, fmt.Sprintf("T,%.2f", celsius), d.cfg.defaultDelay, nil)
}

// GetTemperature queries the temperature compensation.
func (d *Device) GetTemperature() {
	d.enqueue(CategoryTemperature, "T,?", d.cfg.defaultDelay, nil)
}

// GetCalibration queries the calibration state.
func (d *Device) GetCalibration() {
	d.enqueue(CategoryCalibration, "Cal,?", d.cfg.defaultDelay, nil)
}

// CalibrateLow performs a low point calibration.
func (d *Device) CalibrateLow(value float64) {
	d.calibrate("LOW", value)
}

// CalibrateMid performs a mid point calibration.
func (d *Device) CalibrateMid(value float64) {
	d.calibrate("MID", value)
}

// CalibrateHigh performs a high point calibration.
func (d *Device) CalibrateHigh(value float64) {
	d.calibrate("HIGH", value)
}

// CalibrateGeneric performs a single point calibration.
func (d *Device) CalibrateGeneric(value float64) {
	d.enqueue(CategoryCalibration, fmt.Sprintf("Cal,%.2f", value), d.cfg.calibrationDelay, nil)
}

// ClearCalibration deletes the calibration data.
func (d *Device) ClearCalibration() {
	d.enqueue(CategoryCalibration, "Cal,clear", d.cfg.defaultDelay, nil)
}

// SendCustom sends cmd verbatim. The response is delivered to the custom handler.
func (d *Device) SendCustom(cmd string) {
	d.enqueue(CategoryCustom, cmd, d.cfg.defaultDelay, nil)
}

func (d *Device) calibrate(point string, value float64) {
	d.enqueue(CategoryCalibration, fmt.Sprintf("Cal,%s,%.2f", point, value), d.cfg.calibrationDelay, nil)
}
