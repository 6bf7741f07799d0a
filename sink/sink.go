// Package sink provides the destinations readings of an ezo.Device are
// published to: an in-memory store, Prometheus gauges, MQTT topics, websocket
// streams and logs.
//
// Every destination implements Factory, which hands out one ezo.Sink per
// device field. ForFields combines several factories into the ordered sink
// list a Device expects.
package sink

import (
	"time"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
)

// Reading is one published value.
type Reading struct {
	Device string    `json:"device" msgpack:"device"`
	Field  string    `json:"field" msgpack:"field"`
	Value  float64   `json:"value" msgpack:"value"`
	Time   time.Time `json:"time" msgpack:"time"`
}

// Factory creates the sink of one device field.
type Factory interface {
	Sink(device, field string) ezo.Sink
}

// FactoryFunc is the func form of Factory.
type FactoryFunc func(device, field string) ezo.Sink

// Sink implements Factory.
func (f FactoryFunc) Sink(device, field string) ezo.Sink { return f(device, field) }

// ForFields returns one sink per field, each publishing to every factory.
func ForFields(device string, fields []string, factories ...Factory) []ezo.Sink {
	sinks := make([]ezo.Sink, len(fields))
	for i, field := range fields {
		targets := make([]ezo.Sink, 0, len(factories))
		for _, f := range factories {
			if f != nil {
				targets = append(targets, f.Sink(device, field))
			}
		}
		sinks[i] = Fanout(targets...)
	}

	return sinks
}

type fanout []ezo.Sink

func (f fanout) PublishState(value float64) {
	for _, s := range f {
		s.PublishState(value)
	}
}

// Fanout returns a sink publishing every value to all sinks in order.
func Fanout(sinks ...ezo.Sink) ezo.Sink {
	if len(sinks) == 1 {
		return sinks[0]
	}

	return fanout(append([]ezo.Sink(nil), sinks...))
}

// Log returns a factory whose sinks log every reading at info level.
func Log(l logger.Logger) Factory {
	if l == nil {
		l = logger.GetLogger()
	}

	return FactoryFunc(func(device, field string) ezo.Sink {
		return ezo.SinkFunc(func(value float64) {
			l.Info("sink: reading", "device", device, "field", field, "value", value)
		})
	})
}
