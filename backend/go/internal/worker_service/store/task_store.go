package store

import (
	"context"
	"errors"

	"scale/backend/go/internal/models"

	"gorm.io/gorm"
)

// Store provides the worker's view of the task store: load tasks and
// their owners, and drive status transitions. Only the worker mutates
// task rows; every update is an atomic per-row UPDATE.
type Store struct {
	DB *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// GetTask loads a task by ID. Returns (nil, nil) when the task does not exist.
func (s *Store) GetTask(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	err := s.DB.WithContext(ctx).First(&task, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetUser loads a user by ID. Returns (nil, nil) when the user does not exist.
func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// SetTaskStatus updates only the status column of a task.
func (s *Store) SetTaskStatus(ctx context.Context, id uint, status models.TaskStatus) error {
	return s.DB.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// CompleteTask writes a terminal status together with the result text
// in a single atomic update.
func (s *Store) CompleteTask(ctx context.Context, id uint, status models.TaskStatus, resultText string) error {
	return s.DB.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"result_text": resultText,
		}).Error
}
