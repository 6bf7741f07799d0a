package sink

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/go-ezo/ezo"
)

// Gauge exports the latest reading of every device field as the
// ezo_reading{device,field} Prometheus gauge.
type Gauge struct {
	vec *prometheus.GaugeVec
}

var _ Factory = (*Gauge)(nil)

// NewGauge creates the gauge vector and registers it with reg.
func NewGauge(reg prometheus.Registerer) (*Gauge, error) {
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ezo",
		Name:      "reading",
		Help:      "Latest value reported by an EZO circuit.",
	}, []string{"device", "field"})

	if err := reg.Register(vec); err != nil {
		return nil, err
	}

	return &Gauge{vec: vec}, nil
}

// Sink returns the sink setting the gauge of device field.
func (g *Gauge) Sink(device, field string) ezo.Sink {
	gauge := g.vec.WithLabelValues(device, field)

	return ezo.SinkFunc(gauge.Set)
}
