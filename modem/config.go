package modem

import (
	"log/slog"
	"time"

	"i4.energy/across/vmu/notify"
)

// DefaultRxTimeout is the receive silence after which the device resets.
const DefaultRxTimeout = 300 * time.Second

// Config holds the settings of a Machine. Use NewConfigBuilder to create one.
type Config struct {
	// APN, APNUser and APNPass set up the GPRS context. Without an APN the
	// machine stays SMS-only and never opens the server link.
	APN     string
	APNUser string
	APNPass string
	// DNS is the optional primary DNS server.
	DNS string
	// Server is the host or IP of the telemetry server.
	Server string
	// Carrier locks carrier selection to the named operator.
	Carrier string
	// GPS selects the wake command that also powers the internal GPS.
	GPS bool
	// USSDPacked decodes +CUSD replies as packed GSM 7-bit hex.
	USSDPacked bool
	// RxTimeout is the receive silence window before a device reset.
	RxTimeout time.Duration

	Dispatcher Dispatcher
	Diag       DiagHandler
	Composer   Composer
	Queue      *notify.Queue
	Outbox     *Outbox
	Power      PowerSwitch
	Logger     *slog.Logger
}

func (c *Config) validate() error {
	if c.APN != "" && c.Server == "" {
		return ErrNoServer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.RxTimeout <= 0 {
		c.RxTimeout = DefaultRxTimeout
	}
	if c.Dispatcher == nil {
		c.Dispatcher = nopDispatcher{}
	}
	if c.Queue == nil {
		c.Queue = notify.NewQueue()
	}
	if c.Outbox == nil {
		c.Outbox = NewOutbox(0)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ConfigBuilder builds a validated Config.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithAPN(apn, user, pass string) *ConfigBuilder {
	b.config.APN, b.config.APNUser, b.config.APNPass = apn, user, pass
	return b
}

func (b *ConfigBuilder) WithDNS(dns string) *ConfigBuilder {
	b.config.DNS = dns
	return b
}

func (b *ConfigBuilder) WithServer(server string) *ConfigBuilder {
	b.config.Server = server
	return b
}

func (b *ConfigBuilder) WithCarrier(carrier string) *ConfigBuilder {
	b.config.Carrier = carrier
	return b
}

func (b *ConfigBuilder) WithGPS(on bool) *ConfigBuilder {
	b.config.GPS = on
	return b
}

func (b *ConfigBuilder) WithUSSDPacked(on bool) *ConfigBuilder {
	b.config.USSDPacked = on
	return b
}

func (b *ConfigBuilder) WithRxTimeout(d time.Duration) *ConfigBuilder {
	b.config.RxTimeout = d
	return b
}

func (b *ConfigBuilder) WithDispatcher(d Dispatcher) *ConfigBuilder {
	b.config.Dispatcher = d
	return b
}

func (b *ConfigBuilder) WithDiag(h DiagHandler) *ConfigBuilder {
	b.config.Diag = h
	return b
}

func (b *ConfigBuilder) WithComposer(c Composer) *ConfigBuilder {
	b.config.Composer = c
	return b
}

func (b *ConfigBuilder) WithQueue(q *notify.Queue) *ConfigBuilder {
	b.config.Queue = q
	return b
}

func (b *ConfigBuilder) WithOutbox(o *Outbox) *ConfigBuilder {
	b.config.Outbox = o
	return b
}

func (b *ConfigBuilder) WithPower(p PowerSwitch) *ConfigBuilder {
	b.config.Power = p
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

// Build validates the settings and fills in defaults.
func (b *ConfigBuilder) Build() (Config, error) {
	c := b.config
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	c.setDefaults()
	return c, nil
}
