package kafka

import (
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/version"
)

// CreateDialer builds a dialer with optional TLS and SASL.
func CreateDialer(cfg *Config) (*kafkago.Dialer, error) {
	dialer := &kafkago.Dialer{
		ClientID:  version.UserAgent(),
		Timeout:   ParseDuration(cfg.DialTimeout),
		DualStack: true,
	}

	tc, err := cfg.TLS.Build()
	if err != nil {
		return nil, err
	}
	dialer.TLS = tc

	if cfg.SASL.Enabled {
		m, err := cfg.SASL.mechanism()
		if err != nil {
			return nil, fmt.Errorf("SASL config: %w", err)
		}
		dialer.SASLMechanism = m
	}
	return dialer, nil
}

// NewReader builds a consumer group reader for cfg.Topic. Offsets are
// committed explicitly with CommitMessages.
func NewReader(cfg Config, log *logger.Logger) (*kafkago.Reader, error) {
	cfg.ApplyDefaults()
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}

	dialer, err := CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	startOffset := kafkago.FirstOffset
	if cfg.StartOffset == "last" {
		startOffset = kafkago.LastOffset
	}

	clog := log.WithComponent("kafka")
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             cfg.Topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       startOffset,
		MinBytes:          1,
		MaxBytes:          cfg.MaxBytes,
		SessionTimeout:    ParseDuration(cfg.SessionTimeout),
		HeartbeatInterval: ParseDuration(cfg.HeartbeatInterval),
		RebalanceTimeout:  ParseDuration(cfg.RebalanceTimeout),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			clog.Error("reader: "+fmt.Sprintf(msg, args...), logger.Fields(
				"topic", cfg.Topic,
				"group_id", cfg.GroupID,
			))
		}),
	})

	clog.Info("kafka reader initialized", logger.Fields(
		"topic", cfg.Topic,
		"group_id", cfg.GroupID,
		"brokers", cfg.Brokers,
	))
	return reader, nil
}

func (c SASLConfig) mechanism() (sasl.Mechanism, error) {
	switch c.Mechanism {
	case "PLAIN":
		return plain.Mechanism{Username: c.Username, Password: c.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, c.Username, c.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, c.Username, c.Password)
	}
	return nil, fmt.Errorf("unsupported SASL mechanism: %s", c.Mechanism)
}
