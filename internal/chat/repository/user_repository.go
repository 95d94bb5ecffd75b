package repository

import (
	"context"
	"errors"

	"job_board_chat_service/internal/chat/domain"

	"gorm.io/gorm"
)

// UserRepository definition job-board user profile lookup
type UserRepository interface {
	AutoMigrate() error
	FindByID(ctx context.Context, userID string) (*domain.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewGormUserRepository create a UserRepository on postgres
func NewGormUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.User{})
}

// FindByID 查user,找不到回傳domain.ErrUserNotFound
func (r *userRepository) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
