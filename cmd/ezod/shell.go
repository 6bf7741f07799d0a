package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/hostloop"
	"github.com/arloliu/go-ezo/i2cbus"
	"github.com/arloliu/go-ezo/logger"
)

const (
	shellReplyTimeout = 3 * time.Second
	// the shell triggers readings itself
	shellSchedule = "@every 8760h"
)

var (
	errUnknownAction = errors.New("unknown command")
	errNoReply       = errors.New("no reply from circuit")
	errUsage         = errors.New("invalid arguments")
)

// action is one console command. run is called on the loop goroutine and
// returns how many replies the command produces.
type action struct {
	name    string
	aliases []string
	help    string
	run     func(d *ezo.Device, args []string) (int, error)
}

// console drives one device interactively. Replies of the device handlers
// and sinks are collected on a channel and printed by the shell.
type console struct {
	loop    *hostloop.Loop
	device  *ezo.Device
	replies chan string
	timeout time.Duration
	actions []action
}

func newConsole(timeout time.Duration) *console {
	c := &console{
		replies: make(chan string, 16),
		timeout: timeout,
	}
	c.actions = c.buildActions()

	return c
}

// reply never blocks the loop; replies nobody waits for are dropped.
func (c *console) reply(s string) {
	select {
	case c.replies <- s:
	default:
	}
}

// Sink implements sink.Factory.
func (c *console) Sink(_, field string) ezo.Sink {
	return ezo.SinkFunc(func(v float64) {
		c.reply(field + "=" + strconv.FormatFloat(v, 'f', -1, 64))
	})
}

// options routes every response category to the console.
func (c *console) options() []ezo.DeviceOption {
	opts := []ezo.DeviceOption{
		ezo.WithLEDHandler(func(on bool) {
			if on {
				c.reply("led=on")
			} else {
				c.reply("led=off")
			}
		}),
	}

	for _, category := range []ezo.Category{
		ezo.CategoryDeviceInfo,
		ezo.CategorySlope,
		ezo.CategoryCalibration,
		ezo.CategoryTemperature,
		ezo.CategoryCustom,
	} {
		name := category.String()
		opts = append(opts, ezo.WithHandler(category, func(s string) {
			c.reply(name + "=" + s)
		}))
	}

	return opts
}

func parseFloatArg(args []string, i int) (float64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("%w: value expected", errUsage)
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", errUsage, args[i])
	}

	return v, nil
}

func (c *console) buildActions() []action {
	return []action{
		{
			name: "read", aliases: []string{"r"}, help: "take a reading",
			run: func(d *ezo.Device, _ []string) (int, error) {
				d.RequestMeasurement()
				return len(d.Profile().FieldNames()), nil
			},
		},
		{
			name: "led", help: "[on|off] query or switch the LED",
			run: func(d *ezo.Device, args []string) (int, error) {
				if len(args) == 0 {
					d.GetLED()
					return 1, nil
				}
				switch args[0] {
				case "on":
					d.SetLED(true)
				case "off":
					d.SetLED(false)
				default:
					return 0, fmt.Errorf("%w: led on|off", errUsage)
				}

				return 0, nil
			},
		},
		{
			name: "info", aliases: []string{"i"}, help: "device type and firmware",
			run: func(d *ezo.Device, _ []string) (int, error) {
				d.GetDeviceInfo()
				return 1, nil
			},
		},
		{
			name: "slope", help: "probe slope",
			run: func(d *ezo.Device, _ []string) (int, error) {
				d.GetSlope()
				return 1, nil
			},
		},
		{
			name: "cal", help: "[low|mid|high VALUE | VALUE | clear] query or calibrate",
			run: func(d *ezo.Device, args []string) (int, error) {
				if len(args) == 0 || args[0] == "?" {
					d.GetCalibration()
					return 1, nil
				}

				switch point := strings.ToLower(args[0]); point {
				case "clear":
					d.ClearCalibration()
				case "low", "mid", "high":
					v, err := parseFloatArg(args, 1)
					if err != nil {
						return 0, err
					}
					map[string]func(float64){
						"low":  d.CalibrateLow,
						"mid":  d.CalibrateMid,
						"high": d.CalibrateHigh,
					}[point](v)
				default:
					v, err := parseFloatArg(args, 0)
					if err != nil {
						return 0, err
					}
					d.CalibrateGeneric(v)
				}

				return 0, nil
			},
		},
		{
			name: "temp", aliases: []string{"t"}, help: "[CELSIUS] query or set temperature compensation",
			run: func(d *ezo.Device, args []string) (int, error) {
				if len(args) == 0 {
					d.GetTemperature()
					return 1, nil
				}
				v, err := parseFloatArg(args, 0)
				if err != nil {
					return 0, err
				}
				d.SetTemperature(v)

				return 0, nil
			},
		},
		{
			name: "sleep", help: "put the circuit to sleep",
			run: func(d *ezo.Device, _ []string) (int, error) {
				d.Sleep()
				return 0, nil
			},
		},
		{
			name: "address", help: "ADDR move the circuit to another I2C address",
			run: func(d *ezo.Device, args []string) (int, error) {
				if len(args) != 1 {
					return 0, fmt.Errorf("%w: address 1..127", errUsage)
				}
				n, err := strconv.ParseUint(args[0], 0, 8)
				if err != nil {
					return 0, fmt.Errorf("%w: %q", errUsage, args[0])
				}

				return 0, d.SetAddress(uint8(n))
			},
		},
		{
			name: "send", help: "RAW send a raw command and print its answer",
			run: func(d *ezo.Device, args []string) (int, error) {
				if len(args) == 0 {
					return 0, fmt.Errorf("%w: command expected", errUsage)
				}
				d.SendCustom(strings.Join(args, " "))

				return 1, nil
			},
		},
	}
}

func (c *console) find(name string) (action, bool) {
	for _, a := range c.actions {
		if a.name == name {
			return a, true
		}
		for _, alias := range a.aliases {
			if alias == name {
				return a, true
			}
		}
	}

	return action{}, false
}

// submit runs fn on the loop goroutine and waits for it.
func (c *console) submit(fn func()) error {
	ran := make(chan struct{})
	if err := c.loop.Submit(func() {
		fn()
		close(ran)
	}); err != nil {
		return err
	}

	select {
	case <-ran:
		return nil
	case <-time.After(c.timeout):
		return errNoReply
	}
}

// exec runs the named command and returns the replies it produced.
func (c *console) exec(name string, args []string) ([]string, error) {
	a, ok := c.find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errUnknownAction, name)
	}

	// drop replies of earlier commands that timed out
	for len(c.replies) > 0 {
		<-c.replies
	}

	var want int
	var runErr error
	if err := c.submit(func() { want, runErr = a.run(c.device, args) }); err != nil {
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}

	out := make([]string, 0, want)
	deadline := time.After(c.timeout)
	for len(out) < want {
		select {
		case r := <-c.replies:
			out = append(out, r)
		case <-deadline:
			return out, errNoReply
		}
	}

	return out, nil
}

// status describes the session and queue of the device.
func (c *console) status() (string, error) {
	var out string
	err := c.submit(func() {
		s := c.device.Session()
		m := c.device.Metrics()
		out = fmt.Sprintf("%s %s fw %s at 0x%02x, %d pending, state %s, %d sent, %d busy, %d transport errors, %d device errors",
			c.device.Name(), s.Name(), s.Version(), s.Address(),
			c.device.Pending(), c.device.State(),
			m.CommandSendCount.Load(), m.BusyCount.Load(),
			m.TransportErrCount.Load(), m.DeviceErrCount.Load(),
		)
	})

	return out, err
}

func (c *console) shell(prompt string) *ishell.Shell {
	sh := ishell.New()
	sh.SetPrompt(prompt + " > ")

	for _, a := range c.actions {
		name := a.name
		sh.AddCmd(&ishell.Cmd{
			Name:    a.name,
			Aliases: a.aliases,
			Help:    a.help,
			Func: func(ctx *ishell.Context) {
				replies, err := c.exec(name, ctx.Args)
				for _, r := range replies {
					ctx.Println(r)
				}
				switch {
				case err != nil:
					ctx.Err(err)
				case len(replies) == 0:
					ctx.Println("sent")
				}
			},
		})
	}

	sh.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "session and queue state",
		Func: func(ctx *ishell.Context) {
			s, err := c.status()
			if err != nil {
				ctx.Err(err)
				return
			}
			ctx.Println(s)
		},
	})

	return sh
}

// runShell opens an interactive console on one configured device:
//
//	ezod shell [flags] <device> [command args...]
//
// With a command the console runs it once and exits.
func runShell(args []string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}
	if len(cfg.args) == 0 {
		return fmt.Errorf("%w: usage: ezod shell [flags] <device> [command args...]", errUsage)
	}

	var dc *DeviceConfig
	for i := range cfg.Devices {
		if cfg.Devices[i].Name == cfg.args[0] {
			dc = &cfg.Devices[i]
		}
	}
	if dc == nil {
		return fmt.Errorf("device %q is not configured", cfg.args[0])
	}

	log := logger.NewSlogWithOptions(os.Stderr, logger.SlogOptions{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.FormatConsole,
	})

	c := newConsole(shellReplyTimeout)

	ts := newTransports(i2cbus.OpenBus, log)
	defer ts.Close()

	device, err := buildDevice(*dc, ts, log, c.options(), c)
	if err != nil {
		return err
	}
	c.device = device

	loop, err := hostloop.New(hostloop.WithInterval(cfg.Loop.Interval), hostloop.WithLogger(log))
	if err != nil {
		return err
	}
	if err := loop.Add(device, shellSchedule); err != nil {
		return err
	}
	c.loop = loop

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	sh := c.shell(dc.Name)
	if len(cfg.args) > 1 {
		return sh.Process(cfg.args[1:]...)
	}
	sh.Run()

	return nil
}
