package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/catalog/internal/cache"
	"github.com/charlesng35/catalog/internal/models"
)

// UserService exposes the administrative view of registered users.
type UserService struct {
	db          *gorm.DB
	collections *Collections
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, collections *Collections) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if collections == nil {
		return nil, errors.New("user service: collections are required")
	}
	return &UserService{db: db, collections: collections}, nil
}

// List returns every user summary ordered by id, served through the users cache.
func (s *UserService) List(ctx context.Context) ([]models.UserSummary, cache.Outcome, error) {
	ctx = ensureContext(ctx)
	users, outcome, err := s.collections.Users.GetOrPopulate(ctx, s.loadAll)
	if err != nil {
		return nil, outcome, fmt.Errorf("user service: list: %w", err)
	}
	return users, outcome, nil
}

func (s *UserService) loadAll(ctx context.Context) ([]models.UserSummary, error) {
	summaries := []models.UserSummary{}
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Select("id", "name", "email", "role", "created_at").
		Order("id ASC").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// GetByID returns the summary of a single user.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.UserSummary, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user service: get user: %w", err)
	}
	summary := user.Summary()
	return &summary, nil
}

// Delete removes a user account.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("user service: delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	s.collections.invalidateUsers(ctx)
	return nil
}
