package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/antnet/antnet/state"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// TableSnapshot is the payload handed to external consumers after every table emission.
type TableSnapshot struct {
	Router     string              `json:"router"`
	Time       time.Time           `json:"time"`
	Routing    state.RouteSnapshot `json:"routing"`
	Pheromones state.Snapshot      `json:"pheromones"`
}

type TablePublisher interface {
	Publish(snap TableSnapshot) error
	Close()
}

type NopPublisher struct{}

func (NopPublisher) Publish(TableSnapshot) error { return nil }
func (NopPublisher) Close()                      {}

var errPublishTimeout = errors.New("mqtt publish timed out")

// MqttPublisher pushes table snapshots to a broker as retained messages, so a dashboard
// subscribing later immediately sees the latest tables of every node.
type MqttPublisher struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
}

func NewMqttPublisher(broker, clientId, topic string, timeout time.Duration) (*MqttPublisher, error) {
	o := mqtt.NewClientOptions()
	o.AddBroker(broker)
	o.SetClientID(clientId)
	o.SetAutoReconnect(true)
	o.SetConnectRetry(true)
	o.SetConnectRetryInterval(2 * time.Second)
	c := mqtt.NewClient(o)

	// with connect retry the token only completes once connected, the client keeps trying in the background
	token := c.Connect()
	if token.WaitTimeout(timeout) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker %s: %w", broker, token.Error())
	}
	return &MqttPublisher{client: c, topic: topic, timeout: timeout}, nil
}

func (m *MqttPublisher) Publish(snap TableSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topic, 0, true, payload)
	if !token.WaitTimeout(m.timeout) {
		return errPublishTimeout
	}
	return token.Error()
}

func (m *MqttPublisher) Close() {
	m.client.Disconnect(250)
}
