// Package kafka builds the fleet's broker clients: an idempotent acks=all
// producer for the ingress path and a consumer group whose offsets advance
// only after a record's side effects are durable.
package kafka

import (
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/webitel/im-chat-service/config"
)

// NewSyncProducer configures the ingress producer. Idempotence plus acks=all
// makes broker-side retries safe: a record lands exactly once per producer
// session.
func NewSyncProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	c := sarama.NewConfig()
	c.Version = sarama.V2_8_0_0

	c.Producer.RequiredAcks = sarama.WaitForAll
	c.Producer.Idempotent = true
	c.Net.MaxOpenRequests = 1
	c.Producer.Retry.Max = cfg.Producer.MaxRetry
	c.Producer.Timeout = cfg.Producer.Timeout
	c.Producer.Return.Successes = true
	c.Net.DialTimeout = cfg.ConnectTimeout

	p, err := sarama.NewSyncProducer(cfg.Hosts, c)
	if err != nil {
		return nil, fmt.Errorf("kafka: producer: %w", err)
	}
	return p, nil
}

// NewConsumerGroup configures the pipeline consumer. Offsets are marked by
// the handler only after persistence succeeds; the auto-committer then
// flushes marked offsets in the background, so an unprocessed record is
// redelivered after a crash or rebalance.
func NewConsumerGroup(cfg config.KafkaConfig) (sarama.ConsumerGroup, error) {
	c := sarama.NewConfig()
	c.Version = sarama.V2_8_0_0

	c.Consumer.Group.Session.Timeout = cfg.Consumer.SessionTimeout
	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.AutoCommit.Enable = true
	c.Net.DialTimeout = cfg.ConnectTimeout

	switch cfg.Consumer.InitialOffset {
	case "newest":
		c.Consumer.Offsets.Initial = sarama.OffsetNewest
	default:
		c.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	cg, err := sarama.NewConsumerGroup(cfg.Hosts, cfg.Group, c)
	if err != nil {
		return nil, fmt.Errorf("kafka: consumer group %s: %w", cfg.Group, err)
	}
	return cg, nil
}

// Publisher is the narrow produce surface the ingress service depends on.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type topicPublisher struct {
	producer sarama.SyncProducer
	logger   *slog.Logger
}

func NewPublisher(producer sarama.SyncProducer, logger *slog.Logger) Publisher {
	return &topicPublisher{
		producer: producer,
		logger:   logger.With(slog.String("component", "kafka-publisher")),
	}
}

// Publish sends one record with no key: partition choice is left to the
// broker, per-recipient ordering is restored downstream by the sequence
// engine.
func (t *topicPublisher) Publish(topic string, payload []byte) error {
	partition, offset, err := t.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		return fmt.Errorf("kafka: publish to %s: %w", topic, err)
	}

	t.logger.Debug("RECORD_PUBLISHED",
		slog.String("topic", topic),
		slog.Int64("partition", int64(partition)),
		slog.Int64("offset", offset),
	)
	return nil
}
