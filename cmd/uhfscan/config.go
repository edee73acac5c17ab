package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	uhf "github.com/hootrhino/gouhf"
)

// Config is the uhfscan configuration file.
type Config struct {
	Reader      ReaderConfig `yaml:"reader"`
	MQTT        MQTTConfig   `yaml:"mqtt"`
	LogLevel    string       `yaml:"log_level"`
	MetricsAddr string       `yaml:"metrics_addr"`
}

// ReaderConfig selects the reader and how it is polled. The line speed is
// fixed by the reader family and cannot be configured.
type ReaderConfig struct {
	Port           string `yaml:"port"` // /dev/ttyUSB0, COM3 or tcp://host:port
	Power          *int   `yaml:"power"`
	IntervalMs     int    `yaml:"interval_ms"`
	ErrorBackoffMs int    `yaml:"error_backoff_ms"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	ReadTID        *bool  `yaml:"read_tid"`
	Password       string `yaml:"password"` // 8 hex digits
}

// MQTTConfig holds MQTT broker settings. An empty host disables publishing.
type MQTTConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	CACert      string `yaml:"ca_cert"`
	ClientCert  string `yaml:"client_cert"`
	ClientKey   string `yaml:"client_key"`
}

// Load reads and decodes a YAML config file. Unknown keys are rejected. It
// does not validate.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg.Reader.Port == "" {
		return fmt.Errorf("reader.port is required")
	}
	if p := cfg.Reader.Power; p != nil && (*p < 0 || *p > uhf.MaxPower) {
		return fmt.Errorf("reader.power %d out of range 0..%d", *p, uhf.MaxPower)
	}
	if cfg.Reader.IntervalMs < 0 || cfg.Reader.ErrorBackoffMs < 0 || cfg.Reader.TimeoutMs < 0 {
		return fmt.Errorf("reader timings must not be negative")
	}
	if cfg.Reader.Password != "" {
		if _, err := parsePassword(cfg.Reader.Password); err != nil {
			return err
		}
	}
	if cfg.LogLevel != "" {
		if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	if cfg.MQTT.Host != "" && cfg.MQTT.ClientID == "" {
		return fmt.Errorf("mqtt.client_id is required when mqtt.host is set")
	}
	if (cfg.MQTT.ClientCert == "") != (cfg.MQTT.ClientKey == "") {
		return fmt.Errorf("mqtt.client_cert and mqtt.client_key must be set together")
	}
	return nil
}

// Normalize fills defaults. Call it after Validate.
func Normalize(cfg *Config) {
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "uhf"
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// ScannerConfig maps the file settings onto uhf.ScannerConfig.
func (c *Config) ScannerConfig() uhf.ScannerConfig {
	sc := uhf.DefaultScannerConfig()
	if c.Reader.Power != nil {
		sc.Power = *c.Reader.Power
	}
	if c.Reader.IntervalMs > 0 {
		sc.Interval = time.Duration(c.Reader.IntervalMs) * time.Millisecond
	}
	if c.Reader.ErrorBackoffMs > 0 {
		sc.ErrorBackoff = time.Duration(c.Reader.ErrorBackoffMs) * time.Millisecond
	}
	if c.Reader.ReadTID != nil {
		sc.ReadTID = *c.Reader.ReadTID
	}
	if pwd, err := parsePassword(c.Reader.Password); err == nil {
		sc.Password = pwd
	}
	if c.Reader.TimeoutMs > 0 {
		ft := uhf.DefaultFrameTransportConfig()
		ft.ReadTimeout = time.Duration(c.Reader.TimeoutMs) * time.Millisecond
		sc.Dialer = func(address string, baudRate int) (uhf.Transport, error) {
			return uhf.DialWithConfig(address, baudRate, ft)
		}
	}
	return sc
}

func parsePassword(s string) (uhf.AccessPassword, error) {
	var pwd uhf.AccessPassword
	if s == "" {
		return pwd, nil
	}
	b, err := uhf.ParseTagID(s)
	if err != nil || len(b) != len(pwd) {
		return pwd, fmt.Errorf("reader.password must be 8 hex digits")
	}
	copy(pwd[:], b)
	return pwd, nil
}
