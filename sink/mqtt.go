package sink

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/arloliu/go-ezo/ezo"
	"github.com/arloliu/go-ezo/logger"
)

const (
	defaultMQTTPrefix  = "ezo"
	defaultMQTTTimeout = 5 * time.Second
)

// MQTTConfig holds the broker connection settings.
type MQTTConfig struct {
	Broker   string
	ClientID string // derived from the machine id when empty
	Username string
	Password string
	// Prefix is the first topic level, "ezo" by default.
	Prefix   string
	QoS      byte
	Retained bool
	Timeout  time.Duration
}

// mqttClient is the part of paho.Client the sink uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Disconnect(quiesce uint)
}

// MQTT publishes readings as msgpack encoded Reading values to
// <prefix>/<device>/<field>, and bridges raw commands and responses through
// <prefix>/<device>/command and <prefix>/<device>/response.
//
// The broker drops subscriptions of a clean session when the connection is
// lost, so every command subscription is repeated after each reconnect.
type MQTT struct {
	client   mqttClient
	prefix   string
	qos      byte
	retained bool
	timeout  time.Duration
	logger   logger.Logger
	now      func() time.Time

	subsLock sync.Mutex
	subs     map[string]paho.MessageHandler
}

var _ Factory = (*MQTT)(nil)

// NewMQTT connects to the broker.
func NewMQTT(cfg MQTTConfig, l logger.Logger) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, errors.New("sink: mqtt broker must not be empty")
	}
	if cfg.ClientID == "" {
		cfg.ClientID = defaultClientID()
	}
	if l == nil {
		l = logger.GetLogger()
	}
	l = l.With("sink", "mqtt")

	var m *MQTT
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetKeepAlive(10 * time.Second).
		SetConnectTimeout(5 * time.Second).
		SetOnConnectHandler(func(paho.Client) {
			l.Info("sink: connected to MQTT broker", "broker", cfg.Broker)
			m.resubscribe()
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			l.Error("sink: connection lost to MQTT broker", "error", err)
		})

	client := paho.NewClient(opts)
	m = newMQTT(client, cfg, l)

	token := client.Connect()
	if !token.WaitTimeout(m.timeout) {
		return nil, fmt.Errorf("sink: connect to %s: timeout after %v", cfg.Broker, m.timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("sink: connect to %s: %w", cfg.Broker, err)
	}

	return m, nil
}

// defaultClientID returns an id that is stable per host, or a random one when
// the machine id can't be read.
func defaultClientID() string {
	if id, err := machineid.ProtectedID("ezod"); err == nil && len(id) >= 12 {
		return "ezod-" + id[:12]
	}

	return "ezod-" + uuid.NewString()
}

func newMQTT(client mqttClient, cfg MQTTConfig, l logger.Logger) *MQTT {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultMQTTPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultMQTTTimeout
	}

	return &MQTT{
		client:   client,
		prefix:   strings.TrimSuffix(cfg.Prefix, "/"),
		qos:      cfg.QoS,
		retained: cfg.Retained,
		timeout:  cfg.Timeout,
		logger:   l,
		now:      time.Now,
		subs:     make(map[string]paho.MessageHandler),
	}
}

// Topic returns <prefix>/<device>/<leaf>.
func (m *MQTT) Topic(device, leaf string) string {
	return m.prefix + "/" + device + "/" + leaf
}

// Sink returns the sink publishing readings of device field.
func (m *MQTT) Sink(device, field string) ezo.Sink {
	topic := m.Topic(device, field)

	return ezo.SinkFunc(func(value float64) {
		payload, err := msgpack.Marshal(&Reading{Device: device, Field: field, Value: value, Time: m.now()})
		if err != nil {
			m.logger.Error("sink: failed to encode reading", "topic", topic, "error", err)
			return
		}
		m.publish(topic, payload)
	})
}

// Responder returns a handler publishing raw circuit responses of device.
func (m *MQTT) Responder(device string) func(string) {
	topic := m.Topic(device, "response")

	return func(payload string) {
		m.publish(topic, []byte(payload))
	}
}

// SubscribeCommands forwards every payload received on the command topic of
// device to fn. fn runs on a paho goroutine.
func (m *MQTT) SubscribeCommands(device string, fn func(cmd string)) error {
	topic := m.Topic(device, "command")
	handler := func(_ paho.Client, msg paho.Message) {
		cmd := strings.TrimSpace(string(msg.Payload()))
		if cmd == "" {
			return
		}
		fn(cmd)
	}

	token := m.client.Subscribe(topic, m.qos, handler)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("sink: subscribe to %s: timeout after %v", topic, m.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("sink: subscribe to %s: %w", topic, err)
	}

	m.subsLock.Lock()
	m.subs[topic] = handler
	m.subsLock.Unlock()

	m.logger.Info("sink: subscribed to command topic", "topic", topic)

	return nil
}

// resubscribe repeats every command subscription. It runs on each (re)connect
// and doesn't wait for the broker.
func (m *MQTT) resubscribe() {
	m.subsLock.Lock()
	defer m.subsLock.Unlock()

	for topic, handler := range m.subs {
		m.wait(m.client.Subscribe(topic, m.qos, handler), "resubscribe", topic)
	}
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	m.client.Disconnect(uint(m.timeout / time.Millisecond))
}

// publish never waits on the control loop goroutine.
func (m *MQTT) publish(topic string, payload []byte) {
	m.wait(m.client.Publish(topic, m.qos, m.retained, payload), "publish", topic)
}

// wait logs the outcome of token in the background.
func (m *MQTT) wait(token paho.Token, op, topic string) {
	go func() {
		if !token.WaitTimeout(m.timeout) {
			m.logger.Warn("sink: "+op+" timeout", "topic", topic)
			return
		}
		if err := token.Error(); err != nil {
			m.logger.Error("sink: "+op+" failed", "topic", topic, "error", err)
		}
	}()
}
