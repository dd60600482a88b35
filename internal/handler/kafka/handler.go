// Package kafka drives the consumer pipeline off the message topic: one
// consumer-group session per process, offsets marked only after a record's
// side effects are durable.
package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"

	"github.com/webitel/im-chat-service/internal/service/consumer"
)

// Processor is what a claimed record is handed to. A nil return marks the
// offset; an error leaves it unmarked for redelivery.
type Processor interface {
	Process(ctx context.Context, payload []byte) error
}

var _ Processor = (*consumer.Service)(nil)

// groupHandler implements sarama.ConsumerGroupHandler around the pipeline.
type groupHandler struct {
	processor Processor
	logger    *slog.Logger
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info("CONSUMER_SESSION_STARTED",
		slog.Any("claims", sess.Claims()))
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		case record, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if err := h.processor.Process(sess.Context(), record.Value); err != nil {
				// Leave the offset unmarked: the record redelivers after the
				// session ends. Stop claiming so we do not race ahead of it.
				h.logger.Warn("RECORD_PROCESSING_FAILED",
					slog.Int64("offset", record.Offset),
					slog.Int64("partition", int64(record.Partition)),
					slog.Any("err", err))
				return err
			}
			sess.MarkMessage(record, "")
		}
	}
}

// Runner keeps a consumer-group session alive, rejoining with backoff after
// rebalances and broker errors.
type Runner struct {
	group     sarama.ConsumerGroup
	topic     string
	processor Processor
	logger    *slog.Logger
}

func NewRunner(group sarama.ConsumerGroup, topic string, processor Processor, logger *slog.Logger) *Runner {
	return &Runner{
		group:     group,
		topic:     topic,
		processor: processor,
		logger:    logger.With(slog.String("component", "kafka-consumer")),
	}
}

// Run blocks until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	handler := &groupHandler{processor: r.processor, logger: r.logger}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0 // rejoin forever

	go func() {
		for err := range r.group.Errors() {
			r.logger.Warn("CONSUMER_GROUP_ERROR", slog.Any("err", err))
		}
	}()

	for {
		// Consume returns on every rebalance; rejoining immediately is the
		// normal path, the backoff only spaces out hard failures.
		err := r.group.Consume(ctx, []string{r.topic}, handler)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			wait := policy.NextBackOff()
			r.logger.Warn("CONSUMER_SESSION_FAILED",
				slog.Any("err", err), slog.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		policy.Reset()
	}
}
