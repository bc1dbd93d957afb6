package service

import (
	"context"
	"encoding/json"
	"fmt"

	"scale/backend/go/internal/models"
	"scale/backend/go/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// TaskStore is the worker's dependency on the task store.
type TaskStore interface {
	GetTask(ctx context.Context, id uint) (*models.Task, error)
	GetUser(ctx context.Context, id uint) (*models.User, error)
	SetTaskStatus(ctx context.Context, id uint, status models.TaskStatus) error
	CompleteTask(ctx context.Context, id uint, status models.TaskStatus, resultText string) error
}

// Summarizer is the worker's dependency on the summarization adapter.
type Summarizer interface {
	SummarizeYouTube(ctx context.Context, videoURL, apiKey string) (string, error)
	SummarizeFile(ctx context.Context, path, apiKey string) (string, error)
}

// ResultCache receives terminal results so the gateway's poll loop can
// read them without hitting the database.
type ResultCache interface {
	Set(ctx context.Context, taskID uint, status models.TaskStatus, resultText string) error
}

// Service drives a task through its state machine:
// pending → processing → done/error. Per-task failures are captured on
// the task row and never escape to the consumer loop; only store
// connectivity errors are returned (which keeps the message
// unacknowledged so it is redelivered).
type Service struct {
	store      TaskStore
	summarizer Summarizer
	cache      ResultCache
	logger     *logger.Logger
}

// NewService creates a new worker Service.
func NewService(store TaskStore, summarizer Summarizer, cache ResultCache, logger *logger.Logger) *Service {
	return &Service{
		store:      store,
		summarizer: summarizer,
		cache:      cache,
		logger:     logger,
	}
}

// HandleMessage is the queue consumer entry point. A malformed message is
// logged and dropped (returning nil acknowledges it) rather than being
// redelivered forever.
func (s *Service) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var tm models.TaskMessage
	if err := json.Unmarshal(msg.Value, &tm); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
			Warn("Dropping malformed task message")
		return nil
	}
	if tm.TaskID == 0 {
		s.logger.Warn("Dropping task message without task_id")
		return nil
	}
	return s.ProcessTask(ctx, tm.TaskID)
}

// ProcessTask executes the state machine for a single task ID.
//
// Delivery is at-least-once, so the same ID may arrive more than once:
// a task already in a terminal state is skipped (the stored result is
// retained), while a task found in "processing" belongs to a previous
// attempt that died before acknowledging and is reprocessed from scratch.
func (s *Service) ProcessTask(ctx context.Context, taskID uint) error {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("loading task %d: %w", taskID, err)
	}
	if task == nil {
		// Poison message: acknowledge instead of retrying forever.
		s.logger.WithPayload(map[string]interface{}{"task_id": taskID}).
			Error("Task not found in DB")
		return nil
	}

	if task.Status.Terminal() {
		s.logger.WithPayload(map[string]interface{}{"task_id": taskID, "status": task.Status}).
			Info("Skipping redelivered task already in terminal state")
		return nil
	}

	user, err := s.store.GetUser(ctx, task.UserID)
	if err != nil {
		return fmt.Errorf("loading user %d: %w", task.UserID, err)
	}
	if !user.HasAPIKey() {
		// No external call is attempted for users without a credential.
		return s.finish(ctx, task.ID, models.TaskStatusError, "User has no API Key")
	}

	// Commit the processing transition before any external call, so a
	// crash mid-call is observable as "stuck in processing".
	if err := s.store.SetTaskStatus(ctx, task.ID, models.TaskStatusProcessing); err != nil {
		return fmt.Errorf("marking task %d processing: %w", task.ID, err)
	}

	s.logger.WithPayload(map[string]interface{}{"task_id": task.ID, "type": task.Type}).
		Info("Processing task")

	var resultText string
	var sumErr error
	switch task.Type {
	case models.TaskTypeYouTube:
		resultText, sumErr = s.summarizer.SummarizeYouTube(ctx, task.SourceData, user.GeminiAPIKey)
	case models.TaskTypeFile:
		resultText, sumErr = s.summarizer.SummarizeFile(ctx, task.SourceData, user.GeminiAPIKey)
	default:
		sumErr = fmt.Errorf("unknown task type %q", task.Type)
	}

	if sumErr != nil {
		if ctx.Err() != nil {
			// Shutdown mid-flight: leave the task in processing so the
			// redelivered message picks it up after restart.
			return sumErr
		}
		s.logger.WithError(models.ErrorInfo{Message: sumErr.Error()}).
			Error(fmt.Sprintf("Failed processing task %d", task.ID))
		return s.finish(ctx, task.ID, models.TaskStatusError, sumErr.Error())
	}

	return s.finish(ctx, task.ID, models.TaskStatusDone, resultText)
}

// finish persists a terminal state and mirrors it into the result cache.
func (s *Service) finish(ctx context.Context, taskID uint, status models.TaskStatus, resultText string) error {
	if err := s.store.CompleteTask(ctx, taskID, status, resultText); err != nil {
		return fmt.Errorf("completing task %d: %w", taskID, err)
	}
	if s.cache != nil {
		// Best effort: the database row is the source of truth.
		if err := s.cache.Set(ctx, taskID, status, resultText); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).
				Warn("Failed to cache task result")
		}
	}
	s.logger.WithPayload(map[string]interface{}{"task_id": taskID, "status": status}).
		Info("Task finished")
	return nil
}
