package store

import (
	"context"
	"errors"

	"scale/backend/go/internal/models"

	"gorm.io/gorm"
)

// Store provides the gateway's view of the relational store: user
// management plus task creation and read-only task lookups for the
// polling loop.
type Store struct {
	DB *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// CreateUser inserts a new user row.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Create(user).Error
}

// GetUserByUsername looks a user up by username. Returns (nil, nil) when
// no such user exists.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID looks a user up by ID. Returns (nil, nil) when no such
// user exists.
func (s *Store) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
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
