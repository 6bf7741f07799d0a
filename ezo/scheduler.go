package ezo

import (
	"fmt"

	"github.com/arloliu/go-ezo/internal/util"
)

// State returns the scheduler state of the head command.
func (d *Device) State() State {
	cmd, ok := d.commands.Peek()
	if !ok {
		return StateIdle
	}
	if !cmd.sent {
		return StateAwaitingSend
	}
	if d.clock().Sub(d.session.startTime) < cmd.delay {
		return StateSettling
	}

	return StateReadyToRead
}

// Tick advances the head command by at most one step and returns without
// blocking. It must be called from the host control loop.
func (d *Device) Tick() {
	d.started = true

	cmd, ok := d.commands.Peek()
	if !ok {
		return
	}

	if !cmd.sent {
		d.send(cmd)
		return
	}

	d.waitTicks++
	d.metrics.setWaitTicks(d.waitTicks)
	if d.cfg.waitHook != nil {
		d.cfg.waitHook(cmd, d.waitTicks)
	}

	if d.clock().Sub(d.session.startTime) < cmd.delay {
		return
	}

	d.receive(cmd)
}

func (d *Device) send(cmd *Command) {
	if err := d.transport.Write([]byte(cmd.payload)); err != nil {
		d.metrics.incTransportErrCount()
		d.logger.Error("ezo: failed to send command",
			"command", cmd.payload,
			"category", cmd.category.String(),
			"error", fmt.Errorf("%w: %w", ErrTransport, err),
		)
		d.retire()

		return
	}

	d.metrics.incCommandSendCount()
	d.logger.Debug("ezo: command sent", "command", cmd.payload, "category", cmd.category.String())

	d.session.startTime = d.clock()
	cmd.markSent()
	d.waitTicks = 0
	d.metrics.setWaitTicks(0)

	if cmd.category.ExpectsResponse() {
		return
	}

	d.retire()
	if cmd.category == CategoryAddress {
		d.switchAddress(cmd.address)
	}
}

func (d *Device) receive(cmd *Command) {
	frame, err := d.transport.ReadExact(d.cfg.frameSize)
	if err == nil && len(frame) == 0 {
		err = ErrShortFrame
	}
	if err != nil {
		d.metrics.incTransportErrCount()
		d.logger.Error("ezo: failed to read response",
			"command", cmd.payload,
			"error", fmt.Errorf("%w: %w", ErrTransport, err),
		)
		d.retire()

		return
	}

	status := Status(frame[0])
	switch status {
	case StatusPending:
		d.metrics.incBusyCount()
		d.logger.Debug("ezo: device still processing", "command", cmd.payload, "waitTicks", d.waitTicks)
		return

	case StatusSuccess:

	default:
		d.metrics.incDeviceErrCount()
		d.logger.Error("ezo: command failed",
			"command", cmd.payload,
			"status", status.String(),
			"error", status.Err(),
		)
		d.retire()

		return
	}

	payload := string(util.CutNull(frame[1:]))
	d.metrics.incResponseCount()
	d.logger.Debug("ezo: response received", "command", cmd.payload, "payload", payload)

	// retired before dispatch so commands queued by the interpreter go behind
	// whatever was already waiting
	d.retire()
	d.dispatch(cmd, payload)
}

// switchAddress follows an address change once it was transmitted. The
// session keeps the transport's address when the transport can't move.
func (d *Device) switchAddress(addr uint8) {
	prev := d.session.address

	if setter, ok := d.transport.(AddressSetter); ok {
		if err := setter.SetAddress(addr); err != nil {
			d.metrics.incTransportErrCount()
			d.logger.Error("ezo: failed to retarget transport",
				"address", prev, "requested", addr, "error", fmt.Errorf("%w: %w", ErrTransport, err))

			return
		}
	}
	d.session.address = addr

	d.logger.Info("ezo: device address changed", "from", prev, "to", addr)
}
