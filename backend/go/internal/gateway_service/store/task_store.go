package store

import (
	"context"
	"errors"

	"scale/backend/go/internal/models"

	"gorm.io/gorm"
)

// CreateTask inserts a new task row. The generated ID is written back
// into the task.
func (s *Store) CreateTask(ctx context.Context, task *models.Task) error {
	return s.DB.WithContext(ctx).Create(task).Error
}

// GetTask loads a task by ID. Returns (nil, nil) when the task does not
// exist. The gateway only ever reads tasks; mutation belongs to the worker.
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
