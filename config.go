package main

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds the application configuration
type Config struct {
	// BindAddress is the address the server listens on (e.g. "0.0.0.0:8080")
	BindAddress string
	// HTTPToken, when set, is required as "Authorization: Bearer <token>"
	HTTPToken string
	// SMSPerMinute limits SMS accepted through the HTTP and MQTT surfaces
	SMSPerMinute int
	// SerialPort is the path to the modem's serial port (e.g. "/dev/ttyUSB0")
	SerialPort string
	// BaudRate is the baud rate for serial communication with the modem (e.g. 115200)
	BaudRate int
	// Trace logs every byte exchanged with the modem at debug level
	Trace bool
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string

	// APN enables GPRS; without it the unit is SMS only
	APN     string
	APNUser string
	APNPass string
	// DNS is the primary DNS server configured on the modem
	DNS string
	// Server is the host of the telemetry server
	Server string
	// Carrier locks network selection to one operator (numeric or long name)
	Carrier string
	// Owner is the phone number allowed to send SMS commands. When empty the
	// owner entry of the SIM phonebook is used.
	Owner string
	// GPS selects the wake command of modems with an internal GPS
	GPS bool
	// USSDPacked decodes USSD replies sent as packed 7-bit hex
	USSDPacked bool
	// RxTimeout resets the device when the modem stays silent this long
	RxTimeout time.Duration

	// MQTTBroker enables the MQTT bridge (e.g. "tcp://localhost:1883")
	MQTTBroker   string
	MQTTClientID string
	// MQTTTopic receives SMS requests; status is published on MQTTTopic + "/status"
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SMSPerMinute = 30
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.RxTimeout = 300 * time.Second
		c.MQTTClientID = "vmu-1"
		c.MQTTTopic = "vmu/sms"
		return nil
	}
}

// WithEnv loads configuration from environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		texts := map[string]*string{
			"BIND_ADDRESS":   &c.BindAddress,
			"HTTP_TOKEN":     &c.HTTPToken,
			"SERIAL_PORT":    &c.SerialPort,
			"LOG_LEVEL":      &c.LogLevel,
			"APN":            &c.APN,
			"APN_USER":       &c.APNUser,
			"APN_PASS":       &c.APNPass,
			"DNS":            &c.DNS,
			"SERVER":         &c.Server,
			"CARRIER":        &c.Carrier,
			"OWNER":          &c.Owner,
			"MQTT_BROKER":    &c.MQTTBroker,
			"MQTT_CLIENT_ID": &c.MQTTClientID,
			"MQTT_TOPIC":     &c.MQTTTopic,
			"MQTT_USERNAME":  &c.MQTTUsername,
			"MQTT_PASSWORD":  &c.MQTTPassword,
		}
		for name, dst := range texts {
			if v := os.Getenv(name); v != "" {
				*dst = v
			}
		}

		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}

		if rate := os.Getenv("SMS_PER_MINUTE"); rate != "" {
			if n, err := strconv.Atoi(rate); err == nil {
				c.SMSPerMinute = n
			}
		}

		if timeout := os.Getenv("RX_TIMEOUT"); timeout != "" {
			if d, err := time.ParseDuration(timeout); err == nil {
				c.RxTimeout = d
			}
		}

		bools := map[string]*bool{
			"TRACE":       &c.Trace,
			"GPS":         &c.GPS,
			"USSD_PACKED": &c.USSDPacked,
		}
		for name, dst := range bools {
			if v := os.Getenv(name); v != "" {
				if b, err := strconv.ParseBool(v); err == nil {
					*dst = b
				}
			}
		}

		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			value := f.Value.String()
			switch f.Name {
			case "bind-address":
				c.BindAddress = value
			case "http-token":
				c.HTTPToken = value
			case "sms-per-minute":
				if n, err := strconv.Atoi(value); err == nil {
					c.SMSPerMinute = n
				}
			case "serial-port":
				c.SerialPort = value
			case "baud-rate":
				if b, err := strconv.Atoi(value); err == nil {
					c.BaudRate = b
				}
			case "trace":
				c.Trace, _ = strconv.ParseBool(value)
			case "log-level":
				c.LogLevel = value
			case "apn":
				c.APN = value
			case "apn-user":
				c.APNUser = value
			case "apn-pass":
				c.APNPass = value
			case "dns":
				c.DNS = value
			case "server":
				c.Server = value
			case "carrier":
				c.Carrier = value
			case "owner":
				c.Owner = value
			case "gps":
				c.GPS, _ = strconv.ParseBool(value)
			case "ussd-packed":
				c.USSDPacked, _ = strconv.ParseBool(value)
			case "rx-timeout":
				if d, err := time.ParseDuration(value); err == nil {
					c.RxTimeout = d
				}
			case "mqtt-broker":
				c.MQTTBroker = value
			case "mqtt-client-id":
				c.MQTTClientID = value
			case "mqtt-topic":
				c.MQTTTopic = value
			case "mqtt-username":
				c.MQTTUsername = value
			case "mqtt-password":
				c.MQTTPassword = value
			}
		})
		return nil
	}
}
