package publisher

import (
	"context"
	"encoding/json"
	"strconv"

	"scale/backend/go/internal/models"
	"scale/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// TaskPublisher publishes task IDs to the dispatch topic. The payload
// stays in the task store; the queue only carries the envelope
// {"task_id": N}.
type TaskPublisher struct {
	writer *kafka.Writer
	logger *logger.Logger
}

// NewTaskPublisher creates a new TaskPublisher. RequiredAcks is set so
// that Publish returns only after the broker has persisted the message.
func NewTaskPublisher(brokers []string, topic string, logger *logger.Logger) *TaskPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
	}
	return &TaskPublisher{
		writer: writer,
		logger: logger,
	}
}

// Publish sends a task ID to the dispatch topic.
func (p *TaskPublisher) Publish(ctx context.Context, taskID uint) error {
	msgBytes, err := json.Marshal(models.TaskMessage{TaskID: taskID})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal task message")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(taskID), 10)),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
			"topic":   p.writer.Topic,
			"task_id": taskID,
		}).Error("Failed to write message to Kafka")
		return err
	}
	return nil
}

// Close closes the underlying Kafka writer.
func (p *TaskPublisher) Close() error {
	return p.writer.Close()
}
