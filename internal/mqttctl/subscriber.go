package mqttctl

import (
	"context"
	"fmt"

	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/internal/store/models"
)

// Subscriber is the injected MQTT broker client. The broker wire protocol
// is out of scope per §1; the gateway task only needs to subscribe to its
// own ONDEMAND_REQUEST topic and hand inbound payloads to a handler.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler func(payload []byte)) error
	Unsubscribe(ctx context.Context, topic string) error
}

// Topic returns the ONDEMAND_REQUEST topic for gatewayID.
func Topic(gatewayID string) string {
	return fmt.Sprintf("%s/ONDEMAND_REQUEST", gatewayID)
}

const (
	mqttEventSubscribed   = "SUBSCRIBED"
	mqttEventUnsubscribed = "UNSUBSCRIBED"
	mqttEventSuppressed   = "SUPPRESSED"
)

// Controller wraps a Subscriber with the dlms_mqtt_info connectivity
// logging the distillation dropped (original_source/HES/src/server.cpp
// logs every subscribe/unsubscribe transition) — supplemented back in per
// SPEC_FULL.md.
type Controller struct {
	sub   Subscriber
	store store.GatewayStore
}

func NewController(sub Subscriber, st store.GatewayStore) *Controller {
	return &Controller{sub: sub, store: st}
}

// Subscribe subscribes gatewayID's ONDEMAND_REQUEST topic and logs the
// transition. suppressed, when true, skips the actual broker subscribe
// call and logs SUPPRESSED instead — used when a duplicate gateway
// connection was evicted and its MQTT reconnection must not proceed.
func (c *Controller) Subscribe(ctx context.Context, gatewayID string, suppressed bool, handler func(payload []byte)) error {
	topic := Topic(gatewayID)
	event := mqttEventSubscribed
	if suppressed {
		event = mqttEventSuppressed
	} else if err := c.sub.Subscribe(ctx, topic, handler); err != nil {
		return fmt.Errorf("mqttctl: subscribe %s: %w", topic, err)
	}
	return c.logEvent(ctx, gatewayID, topic, event)
}

func (c *Controller) Unsubscribe(ctx context.Context, gatewayID string) error {
	topic := Topic(gatewayID)
	if err := c.sub.Unsubscribe(ctx, topic); err != nil {
		return fmt.Errorf("mqttctl: unsubscribe %s: %w", topic, err)
	}
	return c.logEvent(ctx, gatewayID, topic, mqttEventUnsubscribed)
}

func (c *Controller) logEvent(ctx context.Context, gatewayID, topic, event string) error {
	entry := &models.DlmsMqttInfo{GatewayID: gatewayID, Topic: topic, Event: event}
	if err := c.store.AppendMqttInfo(ctx, entry); err != nil {
		return fmt.Errorf("mqttctl: log mqtt event: %w", err)
	}
	return nil
}
