package modem_test

import (
	"errors"
	"testing"

	"i4.energy/across/vmu/modem"
)

func TestConfig(t *testing.T) {
	t.Run("ErrNoServer when APN has no server", func(t *testing.T) {
		_, err := modem.NewConfigBuilder().
			WithAPN("internet", "", "").
			Build()

		if !errors.Is(err, modem.ErrNoServer) {
			t.Errorf("expected ErrNoServer, got: %v", err)
		}
	})

	t.Run("SMS-only without APN", func(t *testing.T) {
		config, err := modem.NewConfigBuilder().Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.RxTimeout != modem.DefaultRxTimeout {
			t.Errorf("expected default rx timeout, got %v", config.RxTimeout)
		}
		if config.Queue == nil || config.Outbox == nil || config.Dispatcher == nil || config.Logger == nil {
			t.Error("expected defaults for queue, outbox, dispatcher and logger")
		}
	})

	t.Run("Full GPRS settings", func(t *testing.T) {
		config, err := modem.NewConfigBuilder().
			WithAPN("internet", "user", "pass").
			WithServer("10.1.1.1").
			WithDNS("8.8.8.8").
			WithCarrier("T-Mobile D").
			Build()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if config.APNUser != "user" || config.Server != "10.1.1.1" || config.Carrier != "T-Mobile D" {
			t.Errorf("unexpected config: %+v", config)
		}
	})
}
