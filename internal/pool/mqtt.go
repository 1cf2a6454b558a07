package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MqttOptions configures one broker connection.
type MqttOptions struct {
	ID       string
	Host     string
	Port     int // default 1883
	User     string
	Password string
	ClientID string // default loom-<random>
}

const (
	mqttConnectTimeout = 10 * time.Second
	mqttConnectElapsed = 30 * time.Second
	mqttTokenTimeout   = 10 * time.Second
	mqttKeepAlive      = 5 * time.Second
)

// MqttClient wraps one broker connection. Publishes go out at-least-once,
// subscriptions are at-most-once.
type MqttClient struct {
	id     string
	client mqtt.Client
	log    *slog.Logger

	// lossLogged suppresses repeated connection-loss logs until the next
	// successful reconnect.
	lossLogged atomic.Bool
}

// DialMqtt connects to the broker, retrying transient failures with
// exponential backoff until ctx is done.
func DialMqtt(ctx context.Context, opts MqttOptions, log *slog.Logger) (*MqttClient, error) {
	port := opts.Port
	if port == 0 {
		port = 1883
	}
	clientID := opts.ClientID
	if clientID == "" {
		clientID = "loom-" + uuid.NewString()[:8]
	}

	c := &MqttClient{id: opts.ID, log: log}

	co := mqtt.NewClientOptions()
	co.AddBroker(fmt.Sprintf("tcp://%s:%d", opts.Host, port))
	co.SetClientID(clientID)
	if opts.User != "" {
		co.SetUsername(opts.User)
		co.SetPassword(opts.Password)
	}
	co.SetKeepAlive(mqttKeepAlive)
	co.SetAutoReconnect(true)
	co.SetOrderMatters(true)
	co.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		if c.lossLogged.CompareAndSwap(false, true) {
			log.Warn("mqtt connection lost", "pool", opts.ID, "error", err)
		}
	})
	co.SetOnConnectHandler(func(mqtt.Client) {
		if c.lossLogged.CompareAndSwap(true, false) {
			log.Info("mqtt connection restored", "pool", opts.ID)
		}
	})
	c.client = mqtt.NewClient(co)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = mqttConnectElapsed
	err := backoff.Retry(func() error {
		return mqtt.WaitTokenTimeout(c.client.Connect(), mqttConnectTimeout)
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("connect mqtt pool %q: %w", opts.ID, err)
	}
	log.Info("mqtt connected", "pool", opts.ID, "client_id", clientID)
	return c, nil
}

// Publish sends body to topic at QoS 1 with the given retain flag.
func (c *MqttClient) Publish(topic string, body []byte, retain bool) error {
	token := c.client.Publish(topic, 1, retain, body)
	if err := mqtt.WaitTokenTimeout(token, mqttTokenTimeout); err != nil {
		return fmt.Errorf("publish %q: %w", topic, err)
	}
	return nil
}

// Subscribe registers h for messages matching the topic pattern at QoS 0.
func (c *MqttClient) Subscribe(topic string, h func(topic string, body []byte)) error {
	token := c.client.Subscribe(topic, 0, func(_ mqtt.Client, m mqtt.Message) {
		h(m.Topic(), m.Payload())
	})
	if err := mqtt.WaitTokenTimeout(token, mqttTokenTimeout); err != nil {
		return fmt.Errorf("subscribe %q: %w", topic, err)
	}
	return nil
}

// Unsubscribe drops the topic subscription.
func (c *MqttClient) Unsubscribe(topic string) error {
	token := c.client.Unsubscribe(topic)
	if err := mqtt.WaitTokenTimeout(token, mqttTokenTimeout); err != nil {
		return fmt.Errorf("unsubscribe %q: %w", topic, err)
	}
	return nil
}

// Close disconnects after letting in-flight messages settle.
func (c *MqttClient) Close() {
	c.client.Disconnect(250)
}
