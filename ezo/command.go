package ezo

import "time"

// Command is a unit of work queued on a Device.
//
// All fields are fixed at enqueue time except the sent flag, which the
// scheduler flips exactly once when the payload is written.
type Command struct {
	payload  string
	category Category
	delay    time.Duration
	handler  func(string)
	sent     bool

	// address carried by CategoryAddress commands.
	address uint8
}

func newCommand(category Category, payload string, delay time.Duration, handler func(string)) *Command {
	return &Command{
		payload:  payload,
		category: category,
		delay:    delay,
		handler:  handler,
	}
}

// Payload returns the ASCII command sent to the circuit.
func (c *Command) Payload() string { return c.payload }

// Category returns the command category.
func (c *Command) Category() Category { return c.category }

// Delay returns the settle delay between sending and reading.
func (c *Command) Delay() time.Duration { return c.delay }

// Sent reports whether the payload has been written to the transport.
func (c *Command) Sent() bool { return c.sent }

// HasHandler reports whether the command carries its own completion handler.
func (c *Command) HasHandler() bool { return c.handler != nil }

func (c *Command) markSent() {
	c.sent = true
}
