package ezo

import (
	"errors"
	"testing"
	"time"

	"github.com/arloliu/go-ezo/logger"
)

var errNoFrame = errors.New("fake: no frame scripted")

// fakeRead is one scripted ReadExact result.
type fakeRead struct {
	frame []byte
	err   error
}

// fakeTransport records writes and replays scripted response frames.
type fakeTransport struct {
	writes    []string
	readSizes []int
	events    []string
	frames    []fakeRead
	writeErrs map[string]error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{writeErrs: make(map[string]error)}
}

func (f *fakeTransport) Write(p []byte) error {
	payload := string(p)
	if err, ok := f.writeErrs[payload]; ok {
		f.events = append(f.events, "write-failed:"+payload)
		return err
	}
	f.writes = append(f.writes, payload)
	f.events = append(f.events, "write:"+payload)

	return nil
}

func (f *fakeTransport) ReadExact(n int) ([]byte, error) {
	f.readSizes = append(f.readSizes, n)
	f.events = append(f.events, "read")
	if len(f.frames) == 0 {
		return nil, errNoFrame
	}
	r := f.frames[0]
	f.frames = f.frames[1:]

	return r.frame, r.err
}

// reply scripts a response frame.
func (f *fakeTransport) reply(status Status, payload string) *fakeTransport {
	f.frames = append(f.frames, fakeRead{frame: makeFrame(status, payload, DefaultFrameSize)})
	return f
}

// failRead scripts a read error.
func (f *fakeTransport) failRead(err error) *fakeTransport {
	f.frames = append(f.frames, fakeRead{err: err})
	return f
}

// addrTransport is a fakeTransport that follows address changes.
type addrTransport struct {
	*fakeTransport
	addresses []uint8
	err       error
}

func (a *addrTransport) SetAddress(addr uint8) error {
	if a.err != nil {
		return a.err
	}
	a.addresses = append(a.addresses, addr)

	return nil
}

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// recordSink collects published values.
type recordSink struct {
	values []float64
}

func (s *recordSink) PublishState(v float64) { s.values = append(s.values, v) }

// makeFrame builds a NUL padded response frame.
func makeFrame(status Status, payload string, size int) []byte {
	frame := make([]byte, size)
	frame[0] = byte(status)
	copy(frame[1:], payload)

	return frame
}

// newTestDevice creates a Device on a fake transport and a fake clock.
func newTestDevice(t *testing.T, profile Profile, opts ...DeviceOption) (*Device, *fakeTransport, *fakeClock) {
	t.Helper()

	tr := newFakeTransport()
	clk := newFakeClock()

	d := newTestDeviceWith(t, tr, clk, profile, opts...)

	return d, tr, clk
}

func newTestDeviceWith(t *testing.T, tr Transport, clk *fakeClock, profile Profile, opts ...DeviceOption) *Device {
	t.Helper()

	defaults := []DeviceOption{
		WithName("test"),
		WithClock(clk.Now),
	}

	cfg, err := NewDeviceConfig(append(defaults, opts...)...)
	if err != nil {
		t.Fatalf("newTestDevice: %v", err)
	}

	d, err := NewDevice(tr, profile, cfg)
	if err != nil {
		t.Fatalf("newTestDevice: %v", err)
	}

	return d
}

// step advances the clock by dur and ticks once.
func step(d *Device, clk *fakeClock, dur time.Duration) {
	clk.Advance(dur)
	d.Tick()
}

// drain ticks one second apart until the queue is empty.
func drain(t *testing.T, d *Device, clk *fakeClock) {
	t.Helper()

	for i := 0; i < 200; i++ {
		if d.State() == StateIdle {
			return
		}
		step(d, clk, time.Second)
	}

	t.Fatalf("device still has %d pending commands", d.Pending())
}

func newAllowAllLogger() *logger.MockLogger {
	return logger.NewMockLogger().AllowAll()
}

func queuedPayloads(d *Device) []string {
	var payloads []string
	d.commands.Any(func(cmd *Command) bool {
		payloads = append(payloads, cmd.payload)
		return false
	})

	return payloads
}
