package reader

import (
	"context"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/gears/engine"
	"github.com/kbukum/gears/kafka"
	"github.com/kbukum/gears/logger"
	"github.com/kbukum/gears/pipeline"
	"github.com/kbukum/gears/resilience"
)

const commitTimeout = 5 * time.Second

// Fetcher is the part of a kafka-go Reader the Kafka reader uses.
type Fetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Kafka streams messages of one topic to a registration. A message is
// committed when the next one is requested, so a message is committed only
// after the execution it triggered has been handed its record.
type Kafka struct {
	open  func() (Fetcher, error)
	log   *logger.Logger
	retry resilience.RetryConfig
}

var _ engine.Subscriber = (*Kafka)(nil)

// NewKafka returns a reader consuming cfg.Topic with cfg.GroupID.
func NewKafka(cfg kafka.Config, log *logger.Logger) *Kafka {
	return NewKafkaFrom(func() (Fetcher, error) {
		return kafka.NewReader(cfg, log)
	}, log)
}

// NewKafkaFrom returns a reader over fetchers built by open.
// Retryable fetch errors are retried with backoff until the registration
// ends; any other error ends the subscription.
func NewKafkaFrom(open func() (Fetcher, error), log *logger.Logger) *Kafka {
	k := &Kafka{
		open: open,
		log:  log.WithComponent("reader.kafka"),
	}
	k.retry = resilience.RetryConfig{
		Backoff: resilience.Backoff{Initial: time.Second, Max: 30 * time.Second, Factor: 2, Jitter: 0.1},
		RetryIf: kafka.IsRetryableError,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			if attempt <= 3 {
				k.log.Warn("kafka fetch failed", logger.Fields(
					logger.FieldError, err.Error(),
					"failures", attempt,
					"retry_in", wait.String(),
				))
			}
		},
	}
	return k
}

func (k *Kafka) Name() string { return "KafkaReader" }

// Subscribe opens a fetcher and streams its messages until ctx is done.
func (k *Kafka) Subscribe(_ context.Context) (pipeline.Iterator[any], error) {
	f, err := k.open()
	if err != nil {
		return nil, err
	}
	return &kafkaIter{k: k, f: f}, nil
}

type kafkaIter struct {
	k       *Kafka
	f       Fetcher
	pending *kafkago.Message
}

func (it *kafkaIter) commit(ctx context.Context) error {
	if it.pending == nil {
		return nil
	}
	if err := it.f.CommitMessages(ctx, *it.pending); err != nil {
		return err
	}
	it.pending = nil
	return nil
}

func (it *kafkaIter) Next(ctx context.Context) (any, bool, error) {
	if err := it.commit(ctx); err != nil {
		return nil, false, err
	}
	msg, err := resilience.Retry(ctx, it.k.retry, it.f.FetchMessage)
	if err != nil {
		return nil, false, err
	}
	it.pending = &msg
	return message(msg), true, nil
}

func (it *kafkaIter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	if err := it.commit(ctx); err != nil {
		it.k.log.Warn("final commit failed", logger.Fields(logger.FieldError, err.Error()))
	}
	return it.f.Close()
}

func message(m kafkago.Message) KafkaMessage {
	headers := make(map[string]string, len(m.Headers))
	for _, h := range m.Headers {
		headers[h.Key] = string(h.Value)
	}
	return KafkaMessage{
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Key:       string(m.Key),
		Value:     m.Value,
		Headers:   headers,
		Time:      m.Time,
	}
}
