package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scale/backend/go/internal/models"
	"scale/backend/go/internal/resultcache"
	"scale/backend/go/pkg/logger"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Stable failure signals surfaced to the API layer.
var (
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already registered")
	// ErrInvalidCredentials is returned on failed login.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrTaskNotFound is returned when polling an unknown task ID.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTimeout is returned when a task does not reach a terminal state
	// within the configured window. Distinguishable from ProcessingError.
	ErrTimeout = errors.New("processing timeout")
)

// ProcessingError is returned when a task ends in the error state; it
// carries the task's result text.
type ProcessingError struct {
	Detail string
}

func (e *ProcessingError) Error() string {
	return "processing failed: " + e.Detail
}

// UserStore is the gateway's dependency for user rows.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
}

// TaskStore is the gateway's dependency for task rows. The gateway
// creates tasks and reads them back while polling; it never mutates them.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id uint) (*models.Task, error)
}

// Publisher hands freshly created task IDs to the dispatch queue.
type Publisher interface {
	Publish(ctx context.Context, taskID uint) error
}

// ResultReader reads terminal results cached by the worker. May be nil.
type ResultReader interface {
	Get(ctx context.Context, taskID uint) (*resultcache.Entry, error)
}

// Service implements registration, login and the submit/await task flow.
type Service struct {
	users     UserStore
	tasks     TaskStore
	publisher Publisher
	cache     ResultReader
	logger    *logger.Logger
	jwtSecret []byte

	awaitTimeout time.Duration
	pollInterval time.Duration
}

// NewService creates a new gateway Service.
func NewService(users UserStore, tasks TaskStore, publisher Publisher, cache ResultReader,
	jwtSecret string, awaitTimeout, pollInterval time.Duration, logger *logger.Logger) *Service {
	return &Service{
		users:        users,
		tasks:        tasks,
		publisher:    publisher,
		cache:        cache,
		logger:       logger,
		jwtSecret:    []byte(jwtSecret),
		awaitTimeout: awaitTimeout,
		pollInterval: pollInterval,
	}
}

// Register creates a new user with a bcrypt-hashed password and the
// user's Gemini API key.
func (s *Service) Register(ctx context.Context, username, password, apiKey string) (*models.User, error) {
	existing, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Password:     string(hashed),
		GeminiAPIKey: apiKey,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies the credentials and returns a signed JWT.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.generateJWT(user.ID)
}

// SubmitTask creates a pending task row, publishes its ID to the
// dispatch queue and returns immediately.
func (s *Service) SubmitTask(ctx context.Context, userID uint, taskType models.TaskType, sourceData string) (*models.Task, error) {
	task := &models.Task{
		UserID:     userID,
		Type:       taskType,
		SourceData: sourceData,
		Status:     models.TaskStatusPending,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	if err := s.publisher.Publish(ctx, task.ID); err != nil {
		return nil, fmt.Errorf("publishing task %d: %w", task.ID, err)
	}

	s.logger.WithPayload(map[string]interface{}{"task_id": task.ID, "type": taskType}).
		Info("Queued task")
	return task, nil
}

// AwaitResult polls the task store at a fixed interval until the task
// reaches a terminal state or the timeout elapses. The worker is not
// cancelled on timeout; the task keeps running and its result simply
// goes unread.
func (s *Service) AwaitResult(ctx context.Context, taskID uint) (string, error) {
	deadline := time.Now().Add(s.awaitTimeout)
	for time.Now().Before(deadline) {
		// The cache only ever holds terminal results, so a hit is final.
		if s.cache != nil {
			if entry, err := s.cache.Get(ctx, taskID); err == nil && entry != nil {
				return s.foldTerminal(entry.Status, entry.ResultText)
			}
		}

		task, err := s.tasks.GetTask(ctx, taskID)
		if err != nil {
			return "", err
		}
		if task == nil {
			return "", ErrTaskNotFound
		}
		if task.Status.Terminal() {
			var text string
			if task.ResultText != nil {
				text = *task.ResultText
			}
			return s.foldTerminal(task.Status, text)
		}

		if err := sleepCtx(ctx, s.pollInterval); err != nil {
			return "", err
		}
	}
	return "", ErrTimeout
}

func (s *Service) foldTerminal(status models.TaskStatus, text string) (string, error) {
	if status == models.TaskStatusDone {
		return text, nil
	}
	return "", &ProcessingError{Detail: text}
}

// generateJWT 为指定用户 ID 生成一个新的 JWT。
func (s *Service) generateJWT(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": "scale_gateway",
		"aud": "scale_clients",
		"exp": time.Now().Add(time.Hour * 24 * 7).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
