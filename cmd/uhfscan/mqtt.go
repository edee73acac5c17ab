package main

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	uhf "github.com/hootrhino/gouhf"
)

// Publisher forwards scanner events to an MQTT broker. A publisher built
// from a config without host is a no-op.
type Publisher struct {
	client  paho.Client
	prefix  string
	enabled bool
	logger  zerolog.Logger
}

// eventMessage is the JSON body published for every event.
type eventMessage struct {
	Type   string `json:"type"`
	Port   string `json:"port,omitempty"`
	EPC    string `json:"epc,omitempty"`
	TID    string `json:"tid,omitempty"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Time   string `json:"time"`
}

// NewPublisher creates a publisher. It does not connect.
func NewPublisher(cfg MQTTConfig, logger zerolog.Logger) (*Publisher, error) {
	p := &Publisher{prefix: cfg.TopicPrefix, logger: logger}
	if cfg.Host == "" {
		logger.Info().Msg("MQTT disabled (no host configured)")
		return p, nil
	}
	p.enabled = true

	var broker string
	var tlsConfig *tls.Config
	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)
		var err error
		if tlsConfig, err = buildTLSConfig(cfg); err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Msg("MQTT connection lost")
		}).
		SetOnConnectHandler(func(paho.Client) {
			logger.Info().Str("broker", broker).Msg("MQTT connection established")
		})
	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}
	p.client = paho.NewClient(opts)
	return p, nil
}

func buildTLSConfig(cfg MQTTConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{}
	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		caPool.AppendCertsFromPEM(caCert)
		tlsConfig.RootCAs = caPool
	}
	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

// Connect connects to the broker. No-op if disabled.
func (p *Publisher) Connect() error {
	if !p.enabled {
		return nil
	}
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	return nil
}

// Disconnect disconnects from the broker. No-op if disabled.
func (p *Publisher) Disconnect() {
	if !p.enabled || p.client == nil {
		return
	}
	p.client.Disconnect(250)
}

// Publish sends ev to <prefix>/tag, <prefix>/status or <prefix>/error.
func (p *Publisher) Publish(ev uhf.Event) {
	if !p.enabled {
		return
	}
	topic, body := encodeEvent(p.prefix, ev)
	payload, err := json.Marshal(body)
	if err != nil {
		p.logger.Error().Err(err).Msg("MQTT encode event")
		return
	}
	p.client.Publish(topic, 0, false, payload)
}

func encodeEvent(prefix string, ev uhf.Event) (string, eventMessage) {
	msg := eventMessage{
		Type: ev.Type.String(),
		Port: ev.Port,
		Time: ev.At.UTC().Format(time.RFC3339Nano),
	}
	switch ev.Type {
	case uhf.EventTag:
		msg.EPC = ev.Tag.ID()
		msg.TID = ev.Tag.TIDHex()
	case uhf.EventStatus:
		msg.Status = ev.Status
	case uhf.EventError:
		msg.Error = ev.Err.Error()
		msg.Kind = uhf.ErrorKind(ev.Err).String()
	}
	return prefix + "/" + msg.Type, msg
}
