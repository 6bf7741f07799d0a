package ezo

import (
	"fmt"
	"strconv"
	"strings"
)

// dispatch delivers a successful response. An explicit command handler takes
// precedence over the category default.
func (d *Device) dispatch(cmd *Command, payload string) {
	if cmd.handler != nil {
		cmd.handler(payload)
		return
	}
	if payload == "" {
		return
	}

	switch cmd.category {
	case CategoryRead:
		d.handleReading(payload)

	case CategoryLED:
		if d.ledHandler != nil {
			d.ledHandler(payload[len(payload)-1] == '1')
		}

	case CategoryDeviceInfo:
		if len(payload) < 3 {
			d.logger.Warn("ezo: malformed device information", "payload", payload)
			return
		}
		d.callHandler(cmd.category, payload[3:])

	case CategorySlope, CategoryCalibration, CategoryTemperature:
		if _, value, ok := cutComma(payload); ok {
			d.callHandler(cmd.category, value)
		}

	case CategoryCustom:
		d.callHandler(cmd.category, payload)

	default:
		// internal commands carry their own handler
	}
}

func (d *Device) callHandler(category Category, value string) {
	if h := d.handlers[category]; h != nil {
		h(value)
	}
}

func (d *Device) handleReading(payload string) {
	if d.profile.Mode == SingleValue {
		field, _, _ := cutComma(payload)
		value, err := parseValue(field)
		if err != nil {
			d.metrics.incParseErrCount()
			d.logger.Warn("ezo: can't convert payload to number", "payload", payload, "error", err)

			return
		}
		d.publish(0, value)

		return
	}

	values, err := parseValues(payload)
	if err != nil {
		d.metrics.incParseErrCount()
		d.logger.Warn("ezo: can't convert payload to numbers", "payload", payload, "error", err)

		return
	}

	expected := d.profile.expectedFields(len(d.sinks))
	if len(values) < expected {
		if d.profile.Mode == FixedFields {
			d.logger.Warn("ezo: incomplete reading, enabling output fields",
				"received", len(values),
				"expected", expected,
			)
			d.selectFields()

			return
		}

		d.logger.Warn("ezo: received fewer values than sinks", "received", len(values), "expected", expected)
	}

	for i := 0; i < min(len(values), expected); i++ {
		d.publish(i, values[i])
	}
}

// selectFields queues the commands enabling every output field of the profile.
func (d *Device) selectFields() {
	for _, f := range d.profile.Fields {
		if f.Select != "" {
			d.enqueue(CategoryInternal, f.Select, d.cfg.defaultDelay, nil)
		}
	}
}

func (d *Device) publish(i int, value float64) {
	if i >= len(d.sinks) || d.sinks[i] == nil {
		return
	}
	d.sinks[i].PublishState(value)
	d.metrics.incPublishCount()
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrPayloadParse, s)
	}

	return v, nil
}

func parseValues(payload string) ([]float64, error) {
	fields := strings.Split(payload, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseValue(f)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	return values, nil
}

func cutComma(s string) (before, after string, found bool) {
	return strings.Cut(s, ",")
}
