// Package uart provides an ezo.Transport for circuits in UART mode.
//
// UART circuits answer with carriage return terminated lines instead of
// fixed frames. The transport collects the lines of one response and
// synthesizes the equivalent I2C frame, so a Device drives both buses the
// same way:
//
//   - data lines followed by "*OK" become status 1 with the data as payload
//   - "*ER" becomes status 2
//   - no terminal line before the read timeout becomes status 254, and the
//     device reads again on a later tick
package uart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tarm/serial"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/internal/util"
	"github.com/arloliu/go-ezo/logger"
)

// Defaults of the EZO UART interface.
//
// A tick reading a circuit that has not answered yet blocks in the port read
// for the read timeout, and every other device on the same host loop waits
// with it. The default stays close to the host loop interval; on POSIX ports
// the serial driver rounds any timeout up to 100ms.
const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 10 * time.Millisecond
)

// Response codes sent by the circuit when response codes are enabled.
const (
	codeOK    = "*OK"
	codeError = "*ER"
)

var errReadTimeout = errors.New("uart: read timeout")

// Config holds the serial port settings.
type Config struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// Transport talks to one circuit over a serial port.
type Transport struct {
	port   io.ReadWriteCloser
	logger logger.Logger
	buf    []byte
	chunk  []byte

	// data lines of a response whose terminal code has not arrived yet
	data []string
}

var _ ezo.Transport = (*Transport)(nil)

func (c Config) withDefaults() Config {
	if c.Baud == 0 {
		c.Baud = DefaultBaud
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}

	return c
}

// Open opens the serial port and prepares the circuit for polled operation:
// continuous readings are turned off and response codes are turned on.
func Open(cfg Config, l logger.Logger) (*Transport, error) {
	cfg = cfg.withDefaults()

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        cfg.Baud,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("uart: failed to open %s: %w", cfg.Port, err)
	}

	t := New(port, l)
	if err := t.init(); err != nil {
		_ = port.Close()
		return nil, err
	}

	return t, nil
}

// New wraps an already opened port. Reads on port must return after a
// timeout with no data instead of blocking forever.
func New(port io.ReadWriteCloser, l logger.Logger) *Transport {
	if l == nil {
		l = logger.GetLogger()
	}

	return &Transport{
		port:   port,
		logger: l.With("transport", "uart"),
		chunk:  make([]byte, 64),
	}
}

func (t *Transport) init() error {
	for _, cmd := range []string{"C,0", "*OK,1"} {
		if err := t.Write([]byte(cmd)); err != nil {
			return err
		}
	}
	t.drain()

	return nil
}

// drain discards everything the circuit sent until the port goes quiet.
func (t *Transport) drain() {
	for {
		line, err := t.readLine()
		if err != nil {
			t.buf = t.buf[:0]
			return
		}
		t.logger.Debug("uart: discarded line", "line", line)
	}
}

// Write sends p terminated by a carriage return.
func (t *Transport) Write(p []byte) error {
	msg := make([]byte, 0, len(p)+1)
	msg = append(msg, p...)
	msg = append(msg, '\r')

	if _, err := t.port.Write(msg); err != nil {
		return fmt.Errorf("uart: write: %w", err)
	}

	return nil
}

// ReadExact collects one response and returns it as an n byte frame.
func (t *Transport) ReadExact(n int) ([]byte, error) {
	for {
		line, err := t.readLine()
		if errors.Is(err, errReadTimeout) {
			return frame(ezo.StatusPending, nil, n), nil
		}
		if err != nil {
			t.data = nil
			return nil, err
		}

		switch {
		case line == "":
		case line == codeOK:
			data := t.data
			t.data = nil

			return frame(ezo.StatusSuccess, data, n), nil
		case line == codeError:
			t.data = nil

			return frame(ezo.StatusSyntaxError, nil, n), nil
		case strings.HasPrefix(line, "*"):
			// asynchronous event codes such as *WA, *RS or *SL
			t.logger.Debug("uart: event", "code", line)
		default:
			t.data = append(t.data, line)
		}
	}
}

// Close closes the serial port.
func (t *Transport) Close() error {
	return t.port.Close()
}

func (t *Transport) readLine() (string, error) {
	for {
		if i := bytes.IndexByte(t.buf, '\r'); i >= 0 {
			line := strings.TrimSpace(string(t.buf[:i]))
			t.buf = t.buf[i+1:]

			return line, nil
		}

		n, err := t.port.Read(t.chunk)
		if n > 0 {
			t.buf = append(t.buf, t.chunk[:n]...)
			continue
		}
		if err == nil || errors.Is(err, io.EOF) {
			return "", errReadTimeout
		}

		return "", fmt.Errorf("uart: read: %w", err)
	}
}

// frame builds a NUL padded response frame of n bytes.
func frame(status ezo.Status, data []string, n int) []byte {
	raw := append([]byte{byte(status)}, strings.Join(data, ",")...)

	return util.CloneSlice(raw, n)
}
