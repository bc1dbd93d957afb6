package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"scale/backend/go/internal/models"
	"scale/backend/go/internal/resultcache"
	"scale/backend/go/pkg/logger"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users  map[string]*models.User
	nextID uint
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) error {
	if f.users == nil {
		f.users = map[string]*models.User{}
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.Username] = user
	return nil
}

func (f *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return f.users[username], nil
}

func (f *fakeUserStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

// fakeTaskStore returns a scripted sequence of task snapshots from
// GetTask, simulating the worker making progress between polls.
type fakeTaskStore struct {
	snapshots []*models.Task
	polls     int
	created   *models.Task
}

func (f *fakeTaskStore) CreateTask(ctx context.Context, task *models.Task) error {
	task.ID = 42
	f.created = task
	return nil
}

func (f *fakeTaskStore) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	i := f.polls
	if i >= len(f.snapshots) {
		i = len(f.snapshots) - 1
	}
	f.polls++
	if i < 0 {
		return nil, nil
	}
	return f.snapshots[i], nil
}

type fakePublisher struct {
	published []uint
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, taskID uint) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, taskID)
	return nil
}

type fakeResultReader struct {
	entry *resultcache.Entry
	calls int
}

func (f *fakeResultReader) Get(ctx context.Context, taskID uint) (*resultcache.Entry, error) {
	f.calls++
	return f.entry, nil
}

func newTestService(users *fakeUserStore, tasks *fakeTaskStore, pub *fakePublisher, cache ResultReader) *Service {
	return NewService(users, tasks, pub, cache, "test-secret",
		50*time.Millisecond, time.Millisecond, logger.New("gateway_test"))
}

func taskSnapshot(status models.TaskStatus, text string) *models.Task {
	t := &models.Task{ID: 42, UserID: 1, Type: models.TaskTypeYouTube, Status: status}
	if status.Terminal() {
		t.ResultText = &text
	}
	return t
}

func TestRegisterAndLogin(t *testing.T) {
	users := &fakeUserStore{}
	svc := newTestService(users, &fakeTaskStore{}, &fakePublisher{}, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "correct horse", "gemini-key")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Password == "correct horse" {
		t.Error("password stored in plaintext, want a bcrypt hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("correct horse")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}

	token, err := svc.Login(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	parsed, err := jwt.Parse(token, func(tok *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("returned token does not parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if sub, ok := claims["sub"].(float64); !ok || uint(sub) != user.ID {
		t.Errorf("token sub = %v, want %d", claims["sub"], user.ID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	users := &fakeUserStore{}
	svc := newTestService(users, &fakeTaskStore{}, &fakePublisher{}, nil)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "password-one", "key"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "password-two", "key"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Register() error = %v, want ErrUsernameTaken", err)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	users := &fakeUserStore{}
	svc := newTestService(users, &fakeTaskStore{}, &fakePublisher{}, nil)
	ctx := context.Background()

	if _, err := svc.Login(ctx, "nobody", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() unknown user error = %v, want ErrInvalidCredentials", err)
	}

	if _, err := svc.Register(ctx, "alice", "right password", "key"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Login(ctx, "alice", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login() wrong password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestSubmitTaskPublishes(t *testing.T) {
	tasks := &fakeTaskStore{}
	pub := &fakePublisher{}
	svc := newTestService(&fakeUserStore{}, tasks, pub, nil)

	task, err := svc.SubmitTask(context.Background(), 1, models.TaskTypeYouTube, "https://youtu.be/ABC123")
	if err != nil {
		t.Fatalf("SubmitTask() error = %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Errorf("status = %q, want %q", task.Status, models.TaskStatusPending)
	}
	if len(pub.published) != 1 || pub.published[0] != 42 {
		t.Errorf("published = %v, want [42]", pub.published)
	}
}

func TestSubmitTaskPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	svc := newTestService(&fakeUserStore{}, &fakeTaskStore{}, pub, nil)

	if _, err := svc.SubmitTask(context.Background(), 1, models.TaskTypeFile, "/data/doc.pdf"); err == nil {
		t.Fatal("SubmitTask() error = nil, want publish failure to surface")
	}
}

func TestAwaitResultDone(t *testing.T) {
	tasks := &fakeTaskStore{snapshots: []*models.Task{
		taskSnapshot(models.TaskStatusPending, ""),
		taskSnapshot(models.TaskStatusProcessing, ""),
		taskSnapshot(models.TaskStatusDone, "final summary"),
	}}
	svc := newTestService(&fakeUserStore{}, tasks, &fakePublisher{}, nil)

	text, err := svc.AwaitResult(context.Background(), 42)
	if err != nil {
		t.Fatalf("AwaitResult() error = %v", err)
	}
	if text != "final summary" {
		t.Errorf("AwaitResult() = %q, want %q", text, "final summary")
	}
	if tasks.polls < 3 {
		t.Errorf("polls = %d, want at least 3", tasks.polls)
	}
}

func TestAwaitResultProcessingError(t *testing.T) {
	tasks := &fakeTaskStore{snapshots: []*models.Task{
		taskSnapshot(models.TaskStatusError, "User has no API Key"),
	}}
	svc := newTestService(&fakeUserStore{}, tasks, &fakePublisher{}, nil)

	_, err := svc.AwaitResult(context.Background(), 42)
	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("AwaitResult() error = %v, want *ProcessingError", err)
	}
	if procErr.Detail != "User has no API Key" {
		t.Errorf("Detail = %q, want the task's result text", procErr.Detail)
	}
}

func TestAwaitResultTimeout(t *testing.T) {
	tasks := &fakeTaskStore{snapshots: []*models.Task{
		taskSnapshot(models.TaskStatusProcessing, ""),
	}}
	svc := newTestService(&fakeUserStore{}, tasks, &fakePublisher{}, nil)

	start := time.Now()
	_, err := svc.AwaitResult(context.Background(), 42)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("AwaitResult() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("returned after %v, before the await window elapsed", elapsed)
	}
}

func TestAwaitResultUnknownTask(t *testing.T) {
	svc := newTestService(&fakeUserStore{}, &fakeTaskStore{}, &fakePublisher{}, nil)

	if _, err := svc.AwaitResult(context.Background(), 99); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("AwaitResult() error = %v, want ErrTaskNotFound", err)
	}
}

func TestAwaitResultCacheHit(t *testing.T) {
	tasks := &fakeTaskStore{snapshots: []*models.Task{
		taskSnapshot(models.TaskStatusProcessing, ""),
	}}
	cache := &fakeResultReader{entry: &resultcache.Entry{Status: models.TaskStatusDone, ResultText: "cached summary"}}
	svc := newTestService(&fakeUserStore{}, tasks, &fakePublisher{}, cache)

	text, err := svc.AwaitResult(context.Background(), 42)
	if err != nil {
		t.Fatalf("AwaitResult() error = %v", err)
	}
	if text != "cached summary" {
		t.Errorf("AwaitResult() = %q, want the cached result", text)
	}
	if tasks.polls != 0 {
		t.Errorf("store polls = %d, want 0 on a cache hit", tasks.polls)
	}
}
