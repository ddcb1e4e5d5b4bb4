package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/vmu/dispatch"
	"i4.energy/across/vmu/modem"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeToken struct {
	completed bool
	err       error
}

func (t fakeToken) Wait() bool                     { return t.completed }
func (t fakeToken) WaitTimeout(time.Duration) bool { return t.completed }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.completed {
		close(ch)
	}
	return ch
}

type publication struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	token mqtt.Token
	sent  []publication
}

func (p *fakePublisher) Publish(topic string, _ byte, retained bool, payload any) mqtt.Token {
	p.sent = append(p.sent, publication{topic: topic, retained: retained, payload: payload.([]byte)})
	return p.token
}

func TestMQTTHandleMessage(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		prefill     int
		limit       int
		expectedLen int
	}{
		{"Queued", `{"to":"+4917","message":"hello"}`, 0, 0, 1},
		{"Bad JSON", `hello`, 0, 0, 0},
		{"Missing recipient", `{"message":"hello"}`, 0, 0, 0},
		{"Outbox full", `{"to":"+4917","message":"hello"}`, 2, 0, 2},
		{"Rate limited", `{"to":"+4917","message":"hello"}`, 1, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &MQTTBridge{
				Logger: slog.New(slog.DiscardHandler),
				Outbox: modem.NewOutbox(2),
				Limit:  NewRateLimiter(tt.limit),
				Topic:  "vmu/sms",
			}
			for range tt.prefill {
				b.Outbox.Push(modem.Message{Kind: modem.MessageSMS, To: "+1", Text: "x"})
				b.Limit.Allow()
			}

			b.handleMessage(nil, fakeMessage{topic: b.Topic, payload: []byte(tt.payload)})

			if got := b.Outbox.Len(); got != tt.expectedLen {
				t.Errorf("Expected %d queued, got %d", tt.expectedLen, got)
			}
		})
	}
}

func TestMQTTPublishStatus(t *testing.T) {
	tests := []struct {
		name  string
		token fakeToken
	}{
		{"Published", fakeToken{completed: true}},
		{"Timed out", fakeToken{}},
		{"Failed", fakeToken{completed: true, err: errors.New("not connected")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			engine := dispatch.NewMockController(ctrl)
			engine.EXPECT().Status().Return(modem.Status{State: modem.StateReady, Signal: 17})

			b := &MQTTBridge{
				Logger: slog.New(slog.DiscardHandler),
				Engine: engine,
				Topic:  "vmu/sms",
			}
			p := &fakePublisher{token: tt.token}
			b.publishStatus(p)

			if len(p.sent) != 1 {
				t.Fatalf("Expected 1 publication, got %d", len(p.sent))
			}
			sent := p.sent[0]
			if sent.topic != "vmu/sms/status" || !sent.retained {
				t.Errorf("Expected retained vmu/sms/status, got %s retained=%v", sent.topic, sent.retained)
			}

			var got map[string]any
			if err := json.Unmarshal(sent.payload, &got); err != nil {
				t.Fatalf("Invalid JSON: %v", err)
			}
			if got["state"] != "Ready" || got["signal"] != float64(17) {
				t.Errorf("Unexpected payload %s", sent.payload)
			}
		})
	}
}
