// Command ezod polls EZO circuits and exports their readings.
//
// Readings are served as JSON on /readings, streamed over a websocket on
// /readings/stream, exported as Prometheus gauges on /metrics and optionally
// published to MQTT. Raw commands published to
// <prefix>/<device>/command are sent to the circuit and its answer is
// published to <prefix>/<device>/response.
//
// Usage:
//
//	ezod --config /etc/ezod/ezod.yaml --log-level debug
//	ezod shell --config /etc/ezod/ezod.yaml tank-ph
//
// The shell subcommand opens an interactive console on one configured device
// instead of running the daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/hostloop"
	"github.com/arloliu/go-ezo/i2cbus"
	"github.com/arloliu/go-ezo/logger"
	"github.com/arloliu/go-ezo/metrics"
	"github.com/arloliu/go-ezo/sink"
)

func main() {
	run := runDaemon
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "shell" {
		run, args = runShell, args[1:]
	}

	if err := run(args); err != nil {
		logger.Error("ezod failed", "error", err)
		os.Exit(1)
	}
}

func runDaemon(args []string) error {
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	log := logger.NewSlogWithOptions(os.Stdout, logger.SlogOptions{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
	})
	logger.SetLogger(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := sink.NewStore()
	gauge, err := sink.NewGauge(reg)
	if err != nil {
		return fmt.Errorf("registering reading gauge: %w", err)
	}
	stream := sink.NewStream(cfg.HTTP.StreamBuffer, log)
	factories := []sink.Factory{store, gauge, stream}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go stream.Run(ctx)

	var mq *sink.MQTT
	if cfg.MQTT.Enabled {
		mq, err = sink.NewMQTT(sink.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Prefix:   cfg.MQTT.Prefix,
			QoS:      cfg.MQTT.QoS,
			Retained: cfg.MQTT.Retained,
		}, log)
		if err != nil {
			return err
		}
		defer mq.Close()
		factories = append(factories, mq)
	}

	loop, err := hostloop.New(hostloop.WithInterval(cfg.Loop.Interval), hostloop.WithLogger(log))
	if err != nil {
		return err
	}

	ts := newTransports(i2cbus.OpenBus, log)
	defer ts.Close()

	collector := metrics.NewCollector(reg)
	for _, dc := range cfg.Devices {
		var extra []ezo.DeviceOption
		if mq != nil {
			extra = append(extra, ezo.WithHandler(ezo.CategoryCustom, mq.Responder(dc.Name)))
		}

		device, err := buildDevice(dc, ts, log, extra, factories...)
		if err != nil {
			return err
		}
		if err := loop.Add(device, dc.Schedule); err != nil {
			return err
		}
		if err := collector.Register(device); err != nil {
			return fmt.Errorf("registering metrics of %q: %w", dc.Name, err)
		}

		if mq != nil {
			name := dc.Name
			err := mq.SubscribeCommands(name, func(cmd string) {
				if err := loop.Submit(func() { device.SendCustom(cmd) }); err != nil {
					log.Warn("dropped command", "device", name, "command", cmd, "error", err)
				}
			})
			if err != nil {
				return err
			}
		}

		log.Info("device configured", "device", dc.Name, "profile", device.Profile().Type, "transport", dc.Transport)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           newHTTPHandler(cfg.HTTP, len(cfg.Devices), reg, store, stream),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()

	if err := loop.Run(ctx); err != nil {
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()

	return srv.Shutdown(shutdownCtx)
}
