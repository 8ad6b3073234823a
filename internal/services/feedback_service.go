package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/models"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
)

// FeedbackService stores product ratings and per-user UI preferences.
type FeedbackService struct {
	db *gorm.DB
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(db *gorm.DB) (*FeedbackService, error) {
	if db == nil {
		return nil, errors.New("feedback service: db is required")
	}
	return &FeedbackService{db: db}, nil
}

// AddFeedback records a rating on the given scale with an optional comment.
func (s *FeedbackService) AddFeedback(ctx context.Context, user string, rating, scale float64, comment string) (*models.Feedback, error) {
	user = normaliseEmail(user)
	if user == "" {
		return nil, apperrors.NewValidation("User is required")
	}
	if scale <= 0 {
		scale = 5
	}
	if rating < 0 || rating > scale {
		return nil, apperrors.NewValidation("Rating must be within the scale")
	}

	feedback := models.Feedback{
		Rating:  rating,
		Scale:   scale,
		Comment: comment,
		User:    user,
	}
	if err := s.db.WithContext(ctx).Create(&feedback).Error; err != nil {
		return nil, fmt.Errorf("feedback service: create feedback: %w", err)
	}

	return &feedback, nil
}

// SaveUIConfig upserts the user's interface preferences.
func (s *FeedbackService) SaveUIConfig(ctx context.Context, user string, config datatypes.JSON) error {
	user = normaliseEmail(user)
	if user == "" {
		return apperrors.NewValidation("User is required")
	}

	var existing models.UIConfig
	err := s.db.WithContext(ctx).Where(&models.UIConfig{User: user}).First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).
			Model(&models.UIConfig{}).
			Where("id = ?", existing.ID).
			Update("config", config).Error; err != nil {
			return fmt.Errorf("feedback service: update ui config: %w", err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		record := models.UIConfig{User: user, Config: config}
		if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
			return fmt.Errorf("feedback service: create ui config: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("feedback service: load ui config: %w", err)
	}
}

// GetUIConfig returns the stored preferences, or an empty object for new users.
func (s *FeedbackService) GetUIConfig(ctx context.Context, user string) (datatypes.JSON, error) {
	user = normaliseEmail(user)
	if user == "" {
		return nil, apperrors.NewValidation("User is required")
	}

	var record models.UIConfig
	if err := s.db.WithContext(ctx).Where(&models.UIConfig{User: user}).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return datatypes.JSON([]byte(`{}`)), nil
		}
		return nil, fmt.Errorf("feedback service: load ui config: %w", err)
	}

	return record.Config, nil
}
