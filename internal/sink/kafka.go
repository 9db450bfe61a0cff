package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/axonhq/axon/internal/config"
	"github.com/axonhq/axon/internal/metrics"
	"github.com/axonhq/axon/internal/model"
)

// ErrKafkaClosed is returned by Write after Close.
var ErrKafkaClosed = errors.New("sink: kafka producer closed")

// Kafka publishes each verdict as JSON, keyed by source IP so one client's
// requests stay ordered within a partition. Write only enqueues; broker
// acknowledgements and retries happen in the background and delivery failures
// are logged and counted by drain.
type Kafka struct {
	producer sarama.AsyncProducer
	topic    string
	logger   zerolog.Logger
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewKafkaConfig returns the producer settings used for verdict publishing.
func NewKafkaConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = clientID
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	return cfg
}

// NewKafka dials the brokers.
func NewKafka(cfg config.KafkaConfig, logger zerolog.Logger, m *metrics.Metrics) (*Kafka, error) {
	producer, err := sarama.NewAsyncProducer(cfg.Brokers, NewKafkaConfig(cfg.ClientID))
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewKafkaWithProducer(producer, cfg.Topic, logger, m), nil
}

// NewKafkaWithProducer wraps an existing producer, which must have
// Return.Errors enabled and Return.Successes disabled.
func NewKafkaWithProducer(p sarama.AsyncProducer, topic string, logger zerolog.Logger, m *metrics.Metrics) *Kafka {
	k := &Kafka{
		producer: p,
		topic:    topic,
		logger:   logger.With().Str("component", "sink").Str("sink", "kafka").Logger(),
		metrics:  m,
		done:     make(chan struct{}),
	}
	go k.drain()
	return k
}

func (k *Kafka) Name() string { return "kafka" }

// Write enqueues the verdict. It gives up when ctx ends before the producer
// accepts the message.
func (k *Kafka) Write(ctx context.Context, ev model.TrafficEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal verdict: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.IP),
		Value: sarama.ByteEncoder(value),
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return ErrKafkaClosed
	}
	select {
	case k.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish verdict to %s: %w", k.topic, ctx.Err())
	}
}

func (k *Kafka) drain() {
	defer close(k.done)
	for perr := range k.producer.Errors() {
		k.metrics.SinkError(k.Name())
		ev := k.logger.Error().Err(perr.Err).Str("topic", k.topic)
		if perr.Msg != nil && perr.Msg.Key != nil {
			if key, err := perr.Msg.Key.Encode(); err == nil {
				ev = ev.Str("ip", string(key))
			}
		}
		ev.Msg("verdict delivery failed")
	}
}

// Close flushes buffered messages and waits until every delivery error has
// been reported. It is safe to call more than once.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	k.mu.Unlock()

	k.producer.AsyncClose()
	<-k.done
	return nil
}
