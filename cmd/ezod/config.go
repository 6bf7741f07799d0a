package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/hostloop"
	"github.com/arloliu/go-ezo/logger"
)

// Config is the daemon configuration.
type Config struct {
	LogLevel  string
	LogFormat logger.Format
	HTTP      HTTPConfig
	Loop      LoopConfig
	MQTT      MQTTConfig
	Devices   []DeviceConfig

	// positional arguments left after flag parsing
	args []string
}

type HTTPConfig struct {
	Addr         string
	CORSOrigins  []string
	StreamBuffer int
}

type LoopConfig struct {
	Interval time.Duration
}

type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
	QoS      byte
	Retained bool
}

// DeviceConfig describes one circuit.
type DeviceConfig struct {
	Name      string        `mapstructure:"name"`
	Profile   string        `mapstructure:"profile"`
	Fields    []string      `mapstructure:"fields"`
	Transport string        `mapstructure:"transport"`
	Bus       string        `mapstructure:"bus"`
	Address   int           `mapstructure:"address"`
	Port      string        `mapstructure:"port"`
	Baud      int           `mapstructure:"baud"`
	Schedule  string        `mapstructure:"schedule"`
	ReadDelay time.Duration `mapstructure:"read_delay"`
	FrameSize int           `mapstructure:"frame_size"`
}

// LoadConfig parses the command line flags in args and reads the config file
// and EZOD_ prefixed environment variables.
func LoadConfig(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("ezod", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", "", "path of the config file (default ./ezod.yaml or /etc/ezod/ezod.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("log-format", "json", "log format: json, text or console")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("ezod")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("http.addr", ":9100")
	v.SetDefault("http.stream_buffer", 256)
	v.SetDefault("loop.interval", hostloop.DefaultInterval)
	v.SetDefault("mqtt.prefix", "ezo")
	if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("log_format", flags.Lookup("log-format")); err != nil {
		return nil, err
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		v.SetConfigName("ezod")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ezod")
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	format, err := logger.ParseFormat(v.GetString("log_format"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:  v.GetString("log_level"),
		LogFormat: format,
		args:      flags.Args(),
		HTTP: HTTPConfig{
			Addr:         v.GetString("http.addr"),
			CORSOrigins:  v.GetStringSlice("http.cors_origins"),
			StreamBuffer: v.GetInt("http.stream_buffer"),
		},
		Loop: LoopConfig{
			Interval: v.GetDuration("loop.interval"),
		},
		MQTT: MQTTConfig{
			Enabled:  v.GetBool("mqtt.enabled"),
			Broker:   v.GetString("mqtt.broker"),
			ClientID: v.GetString("mqtt.client_id"),
			Username: v.GetString("mqtt.username"),
			Password: v.GetString("mqtt.password"),
			Prefix:   v.GetString("mqtt.prefix"),
			QoS:      byte(v.GetUint("mqtt.qos")),
			Retained: v.GetBool("mqtt.retained"),
		},
	}

	if err := v.UnmarshalKey("devices", &cfg.Devices); err != nil {
		return nil, fmt.Errorf("decoding devices: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	if len(cfg.Devices) == 0 {
		return errors.New("config: no devices configured")
	}
	if cfg.MQTT.Enabled && cfg.MQTT.Broker == "" {
		return errors.New("config: mqtt.broker is required when mqtt is enabled")
	}
	if cfg.MQTT.QoS > 2 {
		return fmt.Errorf("config: mqtt.qos %d out of range [0, 2]", cfg.MQTT.QoS)
	}

	names := make(map[string]struct{}, len(cfg.Devices))
	for i := range cfg.Devices {
		dc := &cfg.Devices[i]
		if dc.Name == "" {
			return fmt.Errorf("config: device #%d has no name", i)
		}
		if _, dup := names[dc.Name]; dup {
			return fmt.Errorf("config: duplicate device name %q", dc.Name)
		}
		names[dc.Name] = struct{}{}

		if _, err := ezo.ProfileByName(dc.Profile, dc.Fields...); err != nil {
			return fmt.Errorf("config: device %q: %w", dc.Name, err)
		}

		dc.Transport = strings.ToLower(dc.Transport)
		switch dc.Transport {
		case "", "i2c":
			dc.Transport = "i2c"
			if dc.Address < 0 || dc.Address > ezo.MaxAddress {
				return fmt.Errorf("config: device %q: %w: %d", dc.Name, ezo.ErrInvalidAddress, dc.Address)
			}
		case "uart":
			if dc.Port == "" {
				return fmt.Errorf("config: device %q: uart transport needs a port", dc.Name)
			}
		default:
			return fmt.Errorf("config: device %q: unknown transport %q", dc.Name, dc.Transport)
		}
	}

	return nil
}
