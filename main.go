package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.bug.st/serial"
	"golang.org/x/sync/errgroup"
	"i4.energy/across/vmu/dispatch"
	"i4.energy/across/vmu/modem"
	"i4.energy/across/vmu/notify"
)

func main() {
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to connect to the modem")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.Bool("trace", false, "Log all serial traffic at debug level")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("http-token", "", "Bearer token required by the HTTP server")
	flag.Int("sms-per-minute", 30, "SMS accepted per minute over HTTP and MQTT (0 disables the limit)")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("apn", "", "GPRS access point name (empty for SMS only)")
	flag.String("apn-user", "", "GPRS access point user")
	flag.String("apn-pass", "", "GPRS access point password")
	flag.String("dns", "", "DNS server used by the modem")
	flag.String("server", "", "Telemetry server host")
	flag.String("carrier", "", "Lock network selection to this carrier")
	flag.String("owner", "", "Phone number allowed to send SMS commands")
	flag.Bool("gps", false, "Modem has an internal GPS")
	flag.Bool("ussd-packed", false, "USSD replies are packed 7-bit hex")
	flag.Duration("rx-timeout", 300*time.Second, "Reset the device after this long without modem output")
	flag.String("mqtt-broker", "", "MQTT broker URL (empty disables MQTT)")
	flag.String("mqtt-client-id", "vmu-1", "MQTT client ID")
	flag.String("mqtt-topic", "vmu/sms", "MQTT topic for SMS requests")
	flag.String("mqtt-username", "", "MQTT username")
	flag.String("mqtt-password", "", "MQTT password")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	queue := notify.NewQueue()
	outbox := modem.NewOutbox(modem.DefaultOutboxSize)
	registry := dispatch.NewRegistry(outbox, logger)
	registry.SetOwner(config.Owner)

	modemConfig, err := modem.NewConfigBuilder().
		WithAPN(config.APN, config.APNUser, config.APNPass).
		WithDNS(config.DNS).
		WithServer(config.Server).
		WithCarrier(config.Carrier).
		WithGPS(config.GPS).
		WithUSSDPacked(config.USSDPacked).
		WithRxTimeout(config.RxTimeout).
		WithDispatcher(registry).
		WithDiag(registry).
		WithComposer(dispatch.Composer{}).
		WithQueue(queue).
		WithOutbox(outbox).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Error("Failed to create modem config", "error", err)
		os.Exit(1)
	}

	dialer := modem.SerialDialer{
		PortName: config.SerialPort,
		Mode: &serial.Mode{
			BaudRate: config.BaudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		},
		Trace:  config.Trace,
		Logger: logger,
	}

	engine := NewEngine(dialer, modemConfig, logger)
	registry.Bind(engine)
	limit := NewRateLimiter(config.SMSPerMinute)

	logger.Info("Starting vehicle monitoring unit",
		"serial_port", config.SerialPort,
		"gprs", config.APN != "",
		"server", config.Server,
		"mqtt", config.MQTTBroker != "",
	)

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Engine: engine,
			Queue:  queue,
			Outbox: outbox,
			Token:  config.HTTPToken,
			Limit:  limit,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return engine.Run(ctx)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Closing HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if config.MQTTBroker != "" {
		bridge := &MQTTBridge{
			Logger: logger.With("component", "mqtt"),
			Engine: engine,
			Outbox: outbox,
			Limit:  limit,
			Topic:  config.MQTTTopic,
		}
		g.Go(func() error {
			return bridge.Run(ctx, config)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Shutting down", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
