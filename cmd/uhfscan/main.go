// Command uhfscan connects to a UHF RFID reader, polls it for tags and logs
// (and optionally publishes over MQTT) every tag the first time it is seen.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	uhf "github.com/hootrhino/gouhf"
)

func initLogger(level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(output).Level(lvl).With().Timestamp().Str("app", "uhfscan").Logger()
	log.Logger = logger
	return logger
}

func main() {
	cfgfile := flag.String("cfg", "uhfscan.yaml", "Config file")
	listPorts := flag.Bool("list-ports", false, "List serial ports and exit")
	showMode := flag.Bool("workmode", false, "Print the reader work mode and exit")
	flag.Parse()

	if *listPorts {
		if err := printPorts(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := Load(*cfgfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if err := Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		os.Exit(1)
	}
	Normalize(cfg)
	logger := initLogger(cfg.LogLevel)

	if *showMode {
		if err := printWorkMode(cfg); err != nil {
			logger.Fatal().Err(err).Msg("read work mode")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("uhfscan stopped")
	}
}

func run(ctx context.Context, cfg *Config, logger zerolog.Logger) error {
	if cfg.MetricsAddr != "" {
		uhf.RegisterMetrics()
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server")
			}
		}()
		defer srv.Close()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving /metrics")
	}

	publisher, err := NewPublisher(cfg.MQTT, logger)
	if err != nil {
		return err
	}
	if err := publisher.Connect(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	defer publisher.Disconnect()

	scanner := uhf.NewScanner(cfg.ScannerConfig())
	scanner.SetZerolog(logger)
	events, cancel := scanner.Events().Subscribe(64)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			logEvent(logger, ev)
			publisher.Publish(ev)
		}
	}()

	if err := scanner.Connect(cfg.Reader.Port); err != nil {
		return err
	}
	if err := scanner.StartScanning(); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	if err := scanner.Disconnect(); err != nil {
		logger.Warn().Err(err).Msg("disconnect")
	}
	scanner.Events().Close()
	<-done
	return nil
}

func logEvent(logger zerolog.Logger, ev uhf.Event) {
	switch ev.Type {
	case uhf.EventTag:
		logger.Info().Str("epc", ev.Tag.ID()).Str("tid", ev.Tag.TIDHex()).Str("port", ev.Port).Msg("tag scanned")
	case uhf.EventStatus:
		logger.Info().Str("port", ev.Port).Msg(ev.Status)
	case uhf.EventError:
		logger.Error().Err(ev.Err).Str("kind", uhf.ErrorKind(ev.Err).String()).Str("port", ev.Port).Msg("reader error")
	}
}

func printPorts() error {
	ports, err := uhf.ListPorts()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Println(p.String())
	}
	return nil
}

func printWorkMode(cfg *Config) error {
	sc := cfg.ScannerConfig()
	transport, err := sc.Dialer(cfg.Reader.Port, sc.BaudRate)
	if err != nil {
		return err
	}
	reader := uhf.NewReaderHandler(transport)
	defer reader.Close()

	mode, resp, err := reader.GetWorkMode()
	if err != nil {
		return err
	}
	fmt.Println(resp.String())
	fmt.Println(mode.String())
	return nil
}
