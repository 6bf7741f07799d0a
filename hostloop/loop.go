// Package hostloop drives ezo devices from a single cooperative control loop.
//
// Each iteration the loop runs closures submitted from other goroutines,
// fires the periodic Update of every device whose schedule is due and calls
// Tick on every device. All device methods therefore run on the loop
// goroutine, which is what ezo.Device requires.
package hostloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/arloliu/go-ezo/internal/pool"
	"github.com/arloliu/go-ezo/logger"
)

// Loop defaults.
const (
	DefaultInterval     = 10 * time.Millisecond
	MaxInterval         = 250 * time.Millisecond
	DefaultSchedule     = "@every 60s"
	DefaultSubmitBuffer = 64
)

var (
	// ErrLoopStarted indicates devices were added after the loop started, or
	// Run was called twice.
	ErrLoopStarted = errors.New("hostloop: loop already started")
	// ErrLoopStopped indicates a closure was submitted after Run returned.
	ErrLoopStopped = errors.New("hostloop: loop stopped")
	// ErrNilDevice indicates a nil device was added.
	ErrNilDevice = errors.New("hostloop: device is nil")
)

// Device is the part of ezo.Device the loop drives.
type Device interface {
	Name() string
	Setup()
	Update()
	Tick()
}

type entry struct {
	dev      Device
	spec     string
	schedule cron.Schedule
	next     time.Time
	ready    bool
}

// Loop is the cooperative control loop.
type Loop struct {
	interval time.Duration
	logger   logger.Logger
	parser   cron.Parser

	entries []*entry
	submits chan func()

	mu      sync.Mutex
	started atomic.Bool
	running atomic.Bool
	done    chan struct{}
}

// Option is a functional option for configuring a Loop.
type Option interface {
	apply(*Loop) error
}

type optFunc func(*Loop) error

func (f optFunc) apply(l *Loop) error { return f(l) }

// WithInterval sets the pause between iterations. Must be in (0, MaxInterval].
func WithInterval(d time.Duration) Option {
	return optFunc(func(l *Loop) error {
		if d <= 0 || d > MaxInterval {
			return fmt.Errorf("hostloop: interval %v out of range (0, %v]", d, MaxInterval)
		}
		l.interval = d

		return nil
	})
}

// WithLogger sets the logger of the loop.
func WithLogger(lg logger.Logger) Option {
	return optFunc(func(l *Loop) error {
		if lg == nil {
			return errors.New("hostloop: logger must not be nil")
		}
		l.logger = lg

		return nil
	})
}

// WithSubmitBuffer sets how many submitted closures may wait for the next iteration.
func WithSubmitBuffer(n int) Option {
	return optFunc(func(l *Loop) error {
		if n <= 0 {
			return errors.New("hostloop: submit buffer must be positive")
		}
		l.submits = make(chan func(), n)

		return nil
	})
}

// New creates a Loop.
func New(opts ...Option) (*Loop, error) {
	l := &Loop{
		interval: DefaultInterval,
		logger:   logger.GetLogger(),
		parser: cron.NewParser(
			cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		),
		submits: make(chan func(), DefaultSubmitBuffer),
		done:    make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt.apply(l); err != nil {
			return nil, err
		}
	}

	return l, nil
}

// Interval returns the pause between iterations.
func (l *Loop) Interval() time.Duration { return l.interval }

// Len returns the number of registered devices.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// Add registers dev with the cron spec of its periodic Update. An empty spec
// selects DefaultSchedule. Devices are driven in the order they were added.
func (l *Loop) Add(dev Device, spec string) error {
	if dev == nil {
		return ErrNilDevice
	}
	if l.started.Load() {
		return ErrLoopStarted
	}
	if spec == "" {
		spec = DefaultSchedule
	}

	schedule, err := l.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("hostloop: parsing schedule %q of %s: %w", spec, dev.Name(), err)
	}

	l.mu.Lock()
	l.entries = append(l.entries, &entry{dev: dev, spec: spec, schedule: schedule})
	l.mu.Unlock()

	return nil
}

// Submit queues fn to run on the loop goroutine before the next round of
// ticks. It blocks while the submit buffer is full.
func (l *Loop) Submit(fn func()) error {
	select {
	case <-l.done:
		return ErrLoopStopped
	default:
	}

	select {
	case l.submits <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	}
}

// Step runs one iteration at now. Run calls it; tests may call it directly
// instead of Run.
func (l *Loop) Step(now time.Time) {
	l.started.Store(true)
	l.runSubmitted()

	l.mu.Lock()
	entries := l.entries
	l.mu.Unlock()

	for _, e := range entries {
		if !e.ready {
			e.dev.Setup()
			e.ready = true
			e.next = now
			l.logger.Debug("hostloop: device set up", "device", e.dev.Name(), "schedule", e.spec)
		}

		if !now.Before(e.next) {
			e.dev.Update()
			e.next = e.schedule.Next(now)
		}

		e.dev.Tick()
	}
}

// Run drives the devices until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrLoopStarted
	}
	l.started.Store(true)
	defer close(l.done)

	l.logger.Info("hostloop: started", "devices", l.Len(), "interval", l.interval)

	for {
		l.Step(time.Now())

		if err := pool.Sleep(ctx, l.interval); err != nil {
			l.logger.Info("hostloop: stopped", "reason", err)
			return nil
		}
	}
}

func (l *Loop) runSubmitted() {
	for {
		select {
		case fn := <-l.submits:
			fn()
		default:
			return
		}
	}
}
