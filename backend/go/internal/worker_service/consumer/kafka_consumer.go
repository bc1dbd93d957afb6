package consumer

import (
	"context"
	"time"

	"scale/backend/go/internal/models"
	"scale/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// TaskConsumer consumes task IDs from the dispatch topic, one message at
// a time. A message is committed only after the handler returns nil, so
// an unacknowledged message survives a crash and is redelivered
// (at-least-once delivery).
type TaskConsumer struct {
	reader         *kafka.Reader
	logger         *logger.Logger
	reconnectDelay time.Duration
}

// NewTaskConsumer creates a new TaskConsumer. reconnectDelay is the fixed
// pause between fetch attempts while the broker is unreachable.
func NewTaskConsumer(brokers []string, topic, groupID string, reconnectDelay time.Duration, logger *logger.Logger) *TaskConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1, // task envelopes are tiny, deliver immediately
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	return &TaskConsumer{
		reader:         reader,
		logger:         logger,
		reconnectDelay: reconnectDelay,
	}
}

// Run blocks consuming messages serially: fetch → handle → commit.
// The loop never gives up on broker errors; this is a long-lived service
// and it retries at a fixed delay until the broker is reachable again.
func (c *TaskConsumer) Run(ctx context.Context, handler func(context.Context, kafka.Message) error) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping Kafka task consumer...")
			return
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Info("Stopping Kafka task consumer...")
					return
				}
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).
					Error("Error fetching message from Kafka")
				time.Sleep(c.reconnectDelay)
				continue
			}

			if err := handler(ctx, msg); err != nil {
				// Leave the message uncommitted so it is redelivered.
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Error("Error handling Kafka message")
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).
					Error("Failed to commit Kafka message")
			}
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *TaskConsumer) Close() error {
	return c.reader.Close()
}
