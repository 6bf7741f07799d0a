package ezo

import (
	"sync/atomic"
)

// DeviceMetrics contains atomic metrics for a Device.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type DeviceMetrics struct {
	// CommandSendCount indicates the number of commands written to the transport.
	CommandSendCount atomic.Uint64
	// ResponseCount indicates the number of successful responses (status 1).
	ResponseCount atomic.Uint64
	// TransportErrCount indicates the number of failed writes and reads.
	TransportErrCount atomic.Uint64
	// DeviceErrCount indicates the number of syntax error, no data and unknown status responses.
	DeviceErrCount atomic.Uint64
	// ParseErrCount indicates the number of measurement payloads that were not numbers.
	ParseErrCount atomic.Uint64
	// BusyCount indicates the number of "still processing" responses (status 254).
	BusyCount atomic.Uint64
	// PublishCount indicates the number of values published to sinks.
	PublishCount atomic.Uint64

	// QueueLengthGauge indicates the number of queued commands, including the head.
	QueueLengthGauge atomic.Int64
	// WaitTicksGauge indicates the ticks spent waiting on the current head command.
	WaitTicksGauge atomic.Uint64
}

func (m *DeviceMetrics) incCommandSendCount() {
	m.CommandSendCount.Add(1)
}

func (m *DeviceMetrics) incResponseCount() {
	m.ResponseCount.Add(1)
}

func (m *DeviceMetrics) incTransportErrCount() {
	m.TransportErrCount.Add(1)
}

func (m *DeviceMetrics) incDeviceErrCount() {
	m.DeviceErrCount.Add(1)
}

func (m *DeviceMetrics) incParseErrCount() {
	m.ParseErrCount.Add(1)
}

func (m *DeviceMetrics) incBusyCount() {
	m.BusyCount.Add(1)
}

func (m *DeviceMetrics) incPublishCount() {
	m.PublishCount.Add(1)
}

func (m *DeviceMetrics) setQueueLength(n int) {
	m.QueueLengthGauge.Store(int64(n))
}

func (m *DeviceMetrics) setWaitTicks(n uint64) {
	m.WaitTicksGauge.Store(n)
}
