// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttTimeout = 5 * time.Second

// mqttClient is the part of mqtt.Client the publisher uses
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTOptions configures an MQTTPublisher
type MQTTOptions struct {
	Broker   string // tcp://host:1883
	ClientID string
	Username string
	Password string
	Prefix   string // topic prefix, e.g. ptzbridge
	QoS      byte
	Retained bool
	Logger   *slog.Logger
}

// MQTTPublisher publishes each sample as a text payload on <prefix>/<key>.
type MQTTPublisher struct {
	client   mqttClient
	prefix   string
	qos      byte
	retained bool
}

// NewMQTTPublisher connects to the broker. The client reconnects on its own
// after a lost connection.
func NewMQTTPublisher(o MQTTOptions) (*MQTTPublisher, error) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(o.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(30 * time.Second)
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "broker", o.Broker, "error", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("mqtt connected", "broker", o.Broker)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", o.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", o.Broker, err)
	}

	return newMQTTPublisher(client, o), nil
}

func newMQTTPublisher(client mqttClient, o MQTTOptions) *MQTTPublisher {
	return &MQTTPublisher{
		client:   client,
		prefix:   o.Prefix,
		qos:      o.QoS,
		retained: o.Retained,
	}
}

// Publish implements Publisher
func (p *MQTTPublisher) Publish(ctx context.Context, key string, value float64) error {
	return p.publish(ctx, key, strconv.FormatFloat(value, 'f', -1, 64))
}

// PublishLabel implements LabelPublisher
func (p *MQTTPublisher) PublishLabel(ctx context.Context, key, text string) error {
	return p.publish(ctx, key, text)
}

func (p *MQTTPublisher) publish(ctx context.Context, key, payload string) error {
	topic := key
	if p.prefix != "" {
		topic = joinPath(p.prefix, key)
	}

	token := p.client.Publish(topic, p.qos, p.retained, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttTimeout):
		return fmt.Errorf("mqtt publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

// Close implements Publisher
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
