package ezo

import (
	"fmt"
	"time"

	"github.com/arloliu/go-ezo/internal/queue"
	"github.com/arloliu/go-ezo/logger"
)

// Device drives a single EZO circuit through its command queue.
//
// A Device is not goroutine-safe; see the package documentation.
type Device struct {
	cfg       *DeviceConfig
	transport Transport
	profile   Profile
	logger    logger.Logger
	clock     Clock

	commands  queue.Queue[*Command]
	session   Session
	waitTicks uint64
	started   bool

	sinks      []Sink
	handlers   [categoryCount]func(string)
	ledHandler func(bool)

	metrics DeviceMetrics
}

// NewDevice creates a Device talking to a circuit over transport.
//
// profile selects how measurement payloads are published; cfg is created
// with NewDeviceConfig.
func NewDevice(transport Transport, profile Profile, cfg *DeviceConfig) (*Device, error) {
	if transport == nil {
		return nil, ErrNilTransport
	}
	if cfg == nil {
		return nil, ErrNilConfig
	}

	d := &Device{
		cfg:        cfg,
		transport:  transport,
		profile:    profile,
		logger:     cfg.logger.With("device", cfg.name),
		clock:      cfg.clock,
		commands:   queue.NewSliceQueue[*Command](8),
		sinks:      append([]Sink(nil), cfg.sinks...),
		handlers:   cfg.handlers,
		ledHandler: cfg.ledHandler,
	}
	d.session.address = cfg.address

	return d, nil
}

// Name returns the device name.
func (d *Device) Name() string { return d.cfg.name }

// Profile returns the device profile.
func (d *Device) Profile() Profile { return d.profile }

// Session returns a snapshot of the device session.
func (d *Device) Session() Session { return d.session }

// Metrics returns the device metrics.
func (d *Device) Metrics() *DeviceMetrics { return &d.metrics }

// Pending returns the number of queued commands, including the head.
func (d *Device) Pending() int { return d.commands.Length() }

// WaitTicks returns the number of ticks spent waiting on the head command
// since it was sent.
func (d *Device) WaitTicks() uint64 { return d.waitTicks }

// On registers the response handler of a category.
//
// Handlers must be registered before the first Tick.
func (d *Device) On(category Category, handler func(string)) error {
	if d.started {
		return ErrDeviceStarted
	}
	if !category.IsValid() {
		return fmt.Errorf("%w: %d", ErrUnknownCategory, category)
	}
	if !category.hasStringHandler() {
		return fmt.Errorf("%w: %s", ErrNoHandlerSlot, category)
	}
	d.handlers[category] = handler

	return nil
}

// OnLED registers the handler receiving LED state responses.
//
// It must be registered before the first Tick.
func (d *Device) OnLED(handler func(bool)) error {
	if d.started {
		return ErrDeviceStarted
	}
	d.ledHandler = handler

	return nil
}

// SetSinks replaces the sinks measurements are published to.
func (d *Device) SetSinks(sinks ...Sink) {
	d.sinks = append(d.sinks[:0], sinks...)
}

// Setup queues the bootstrap device information query. The response fills
// Session.Name and Session.Version.
func (d *Device) Setup() {
	d.enqueue(CategoryInternal, "i", d.cfg.defaultDelay, d.handleBootstrap)
}

// Update is the periodic trigger: it requests a measurement unless one is
// already queued.
func (d *Device) Update() {
	if d.commands.Any(func(cmd *Command) bool { return cmd.category == CategoryRead }) {
		d.logger.Warn("ezo: read already pending at update interval")
		return
	}
	d.RequestMeasurement()
}

// DumpConfig logs the device configuration and session.
func (d *Device) DumpConfig() {
	d.logger.Info("ezo: device config",
		"type", d.profile.Type,
		"mode", d.profile.Mode.String(),
		"fields", d.profile.FieldNames(),
		"name", d.session.name,
		"version", d.session.version,
		"address", d.session.address,
		"frameSize", d.cfg.frameSize,
		"readDelay", d.cfg.readDelay,
		"pending", d.commands.Length(),
	)
}

func (d *Device) enqueue(category Category, payload string, delay time.Duration, handler func(string)) *Command {
	cmd := newCommand(category, payload, delay, handler)
	d.commands.Enqueue(cmd)
	d.metrics.setQueueLength(d.commands.Length())

	return cmd
}

// retire removes the head command.
func (d *Device) retire() {
	d.commands.Dequeue()
	d.waitTicks = 0
	d.metrics.setWaitTicks(0)
	d.metrics.setQueueLength(d.commands.Length())
}

func (d *Device) handleBootstrap(payload string) {
	info := ""
	if len(payload) > 3 {
		info = payload[3:]
	}
	name, version, _ := cutComma(info)
	d.session.name = name
	d.session.version = version

	d.logger.Info("ezo: device identified", "type", name, "version", version)
}
