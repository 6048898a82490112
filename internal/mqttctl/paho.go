package mqttctl

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// PahoConfig configures the real broker connection a BrokerSubscriber dials.
type PahoConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	QoS            byte
}

// BrokerSubscriber implements Subscriber against a real MQTT broker via
// paho.mqtt.golang, the broker client the examples reach for (grounded on
// the USRGateway wiring in the mqtt-modbus-bridge reference). It is the
// engine's one concrete Subscriber; everything upstream of it (mqttctl,
// the gateway session) only ever sees the Subscriber interface, so the
// broker wire protocol stays out of scope per §1.
type BrokerSubscriber struct {
	client paho.Client
	qos    byte
}

// NewBrokerSubscriber dials cfg.BrokerURL and blocks until the connection
// succeeds or cfg.ConnectTimeout elapses.
func NewBrokerSubscriber(cfg PahoConfig) (*BrokerSubscriber, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectTimeout(cfg.ConnectTimeout)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqttctl: connect to %s: timed out", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttctl: connect to %s: %w", cfg.BrokerURL, err)
	}

	return &BrokerSubscriber{client: client, qos: cfg.QoS}, nil
}

// Subscribe registers handler on topic, forwarding message payloads.
func (b *BrokerSubscriber) Subscribe(ctx context.Context, topic string, handler func(payload []byte)) error {
	token := b.client.Subscribe(topic, b.qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	return token.Error()
}

// Unsubscribe removes topic's subscription.
func (b *BrokerSubscriber) Unsubscribe(ctx context.Context, topic string) error {
	token := b.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

// Close disconnects from the broker, waiting up to 250ms for in-flight
// work to drain.
func (b *BrokerSubscriber) Close() {
	b.client.Disconnect(250)
}
