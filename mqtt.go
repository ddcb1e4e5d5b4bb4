package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"i4.energy/across/vmu/dispatch"
	"i4.energy/across/vmu/modem"
)

const (
	mqttStatusInterval = time.Minute
	mqttPublishTimeout = 5 * time.Second
	mqttRetryInterval  = 10 * time.Second
	mqttQuiesce        = 500 // milliseconds
)

// publisher is the part of mqtt.Client the bridge publishes with.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTBridge accepts SMS requests on an MQTT topic and publishes the engine
// status on <topic>/status.
type MQTTBridge struct {
	Logger *slog.Logger
	Engine dispatch.Controller
	Outbox *modem.Outbox
	Limit  *RateLimiter
	Topic  string
}

// Run connects to the broker and serves until ctx is done. Connection
// failures are retried in the background and never returned.
func (b *MQTTBridge) Run(ctx context.Context, config *Config) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.MQTTBroker)
	opts.SetClientID(config.MQTTClientID)
	if config.MQTTUsername != "" {
		opts.SetUsername(config.MQTTUsername)
		opts.SetPassword(config.MQTTPassword)
	}
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.Logger.Warn("MQTT connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		b.Logger.Info("MQTT connected", "topic", b.Topic)
		if token := c.Subscribe(b.Topic, 0, b.handleMessage); token.Wait() && token.Error() != nil {
			b.Logger.Error("MQTT subscribe failed", "topic", b.Topic, "error", token.Error())
		}
	})

	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(mqttRetryInterval)

	// The connect token completes only once connected and is not awaited.
	client := mqtt.NewClient(opts)
	client.Connect()
	defer client.Disconnect(mqttQuiesce)

	ticker := time.NewTicker(mqttStatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			b.publishStatus(client)
		}
	}
}

func (b *MQTTBridge) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var req SMSRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		b.Logger.Warn("MQTT bad payload", "topic", msg.Topic(), "error", err)
		return
	}
	if !req.valid() {
		b.Logger.Warn("MQTT request missing to/message", "topic", msg.Topic())
		return
	}
	if !b.Limit.Allow() {
		b.Logger.Warn("MQTT SMS rate limited", "to", req.To)
		return
	}
	if !b.Outbox.Push(modem.Message{Kind: modem.MessageSMS, To: req.To, Text: req.Message}) {
		b.Logger.Warn("Outbox full, SMS rejected", "to", req.To)
		return
	}
	b.Logger.Info("SMS queued", "to", req.To, "message_length", len(req.Message), "source", "mqtt")
}

func (b *MQTTBridge) publishStatus(p publisher) {
	payload, err := json.Marshal(b.Engine.Status())
	if err != nil {
		b.Logger.Error("Failed to encode status", "error", err)
		return
	}
	token := p.Publish(b.Topic+"/status", 0, true, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		b.Logger.Warn("MQTT status publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		b.Logger.Warn("MQTT status publish failed", "error", err)
	}
}
