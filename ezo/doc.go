// Package ezo implements a cooperative command-queue engine for Atlas
// Scientific EZO circuits (pH, ORP, DO, EC, RTD, FLO, HUM, ...).
//
// EZO circuits speak a polled, stop-and-wait ASCII protocol: the host writes a
// command such as "R" or "Cal,mid,7.00", waits for a circuit-specific settle
// delay, and then reads a fixed-size response frame.
//
// # Response Frame
//
// Every frame starts with a status byte followed by a NUL-terminated ASCII
// payload:
//
//   - 1: success, payload follows
//   - 2: syntax error
//   - 254: still processing, read again later
//   - 255: no data to send
//
// # Scheduling Model
//
// A [Device] owns a FIFO queue of [Command] values and a [Transport]. The host
// calls [Device.Tick] once per iteration of its control loop; each tick moves
// the head command at most one step through send, settle, read, interpret and
// retire, and never blocks. Only one command is outstanding at a time, and
// commands complete strictly in enqueue order.
//
// A circuit that keeps answering 254 stalls the queue: the head is retried on
// every tick with no upper bound. [DeviceMetrics.BusyCount], [Device.WaitTicks]
// and [WithWaitHook] make that condition observable so callers can add their
// own policy.
//
// # Concurrency
//
// A Device is not goroutine-safe. Setup, Update, Tick and all setters must be
// called from the goroutine that drives the control loop. Only
// [DeviceMetrics] may be read concurrently.
//
// # Device Profiles
//
// How a measurement payload is turned into published values is selected by a
// [Profile]: single-value circuits publish the first comma separated field,
// multi-value circuits publish fields positionally, and fixed-field circuits
// (DO, EC, FLO) re-enable their output fields when the circuit returns fewer
// fields than expected.
package ezo
