// Package metrics exports ezo.DeviceMetrics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-ezo/ezo"
)

// Collector registers CounterFunc and GaugeFunc metrics backed by the atomic
// counters of each registered device.
type Collector struct {
	reg prometheus.Registerer
}

// NewCollector creates a Collector registering with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	return &Collector{reg: reg}
}

type counterDef struct {
	name string
	help string
	fn   func(m *ezo.DeviceMetrics) float64
}

var counters = []counterDef{
	{"commands_sent_total", "Commands written to the circuit.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.CommandSendCount.Load())
	}},
	{"responses_total", "Successful responses received.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.ResponseCount.Load())
	}},
	{"transport_errors_total", "Failed writes and reads.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.TransportErrCount.Load())
	}},
	{"device_errors_total", "Syntax error, no data and unknown status responses.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.DeviceErrCount.Load())
	}},
	{"parse_errors_total", "Measurement payloads that were not numbers.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.ParseErrCount.Load())
	}},
	{"busy_responses_total", "Still processing responses.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.BusyCount.Load())
	}},
	{"published_values_total", "Values published to sinks.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.PublishCount.Load())
	}},
}

var gauges = []counterDef{
	{"queue_length", "Queued commands including the outstanding one.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.QueueLengthGauge.Load())
	}},
	{"wait_ticks", "Ticks spent waiting on the outstanding command.", func(m *ezo.DeviceMetrics) float64 {
		return float64(m.WaitTicksGauge.Load())
	}},
}

// Register exports the metrics of device labelled with its name.
func (c *Collector) Register(device *ezo.Device) error {
	m := device.Metrics()
	labels := prometheus.Labels{"device": device.Name()}

	for _, def := range counters {
		fn := def.fn
		counter := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   "ezo",
			Name:        def.name,
			Help:        def.help,
			ConstLabels: labels,
		}, func() float64 { return fn(m) })

		if err := c.reg.Register(counter); err != nil {
			return err
		}
	}

	for _, def := range gauges {
		fn := def.fn
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "ezo",
			Name:        def.name,
			Help:        def.help,
			ConstLabels: labels,
		}, func() float64 { return fn(m) })

		if err := c.reg.Register(gauge); err != nil {
			return err
		}
	}

	return nil
}
