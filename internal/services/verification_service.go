package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/internal/notify"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
)

// VerificationOption customises VerificationService behaviour.
type VerificationOption func(*VerificationService)

// WithVerificationClock injects a custom clock primarily for testing.
func WithVerificationClock(clock func() time.Time) VerificationOption {
	return func(s *VerificationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithVerificationBaseURL configures the base URL used in mailed links.
func WithVerificationBaseURL(url string) VerificationOption {
	return func(s *VerificationService) {
		s.baseURL = strings.TrimRight(url, "/")
	}
}

// WithVerificationEmail toggles the whole verification workflow.
func WithVerificationEmail(enabled bool) VerificationOption {
	return func(s *VerificationService) {
		s.emailEnabled = enabled
	}
}

// VerificationService owns the email confirmation and password reset flows.
type VerificationService struct {
	db           *gorm.DB
	users        *UserService
	tokens       *auth.JWTService
	dispatcher   *notify.Dispatcher
	baseURL      string
	emailEnabled bool
	now          func() time.Time
}

// NewVerificationService constructs a VerificationService with the provided dependencies.
func NewVerificationService(db *gorm.DB, users *UserService, tokens *auth.JWTService, dispatcher *notify.Dispatcher, opts ...VerificationOption) (*VerificationService, error) {
	if db == nil {
		return nil, errors.New("verification service: db is required")
	}
	if users == nil {
		return nil, errors.New("verification service: user service is required")
	}
	if tokens == nil {
		return nil, errors.New("verification service: token service is required")
	}

	service := &VerificationService{
		db:         db,
		users:      users,
		tokens:     tokens,
		dispatcher: dispatcher,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// ConfirmEmail decodes the verification token and records the confirmation.
// Confirming an already confirmed address fails with ErrAlreadyConfirmed.
func (s *VerificationService) ConfirmEmail(ctx context.Context, token string) (string, error) {
	email, err := s.tokens.DecodeEmailToken(token, auth.PurposeVerify)
	if err != nil {
		return "", apperrors.NewAuthToken("Invalid or expired verification token")
	}

	confirmed, err := s.users.IsEmailConfirmed(ctx, email)
	if err != nil {
		return "", err
	}
	if confirmed {
		return "", ErrAlreadyConfirmed
	}

	confirmation := models.EmailConfirmation{
		Email:       email,
		ConfirmedAt: s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&confirmation).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", ErrAlreadyConfirmed
		}
		return "", fmt.Errorf("verification service: record confirmation: %w", err)
	}

	return email, nil
}

// SendConfirmationLink mails a fresh verification link to an unconfirmed user.
func (s *VerificationService) SendConfirmationLink(ctx context.Context, email string) error {
	if !s.emailEnabled {
		return ErrEmailDisabled
	}

	user, err := s.users.GetUser(ctx, email)
	if err != nil {
		return err
	}

	confirmed, err := s.users.IsEmailConfirmed(ctx, user.Email)
	if err != nil {
		return err
	}
	if confirmed {
		return ErrAlreadyConfirmed
	}

	token, err := s.tokens.IssueEmailToken(user.Email, auth.PurposeVerify)
	if err != nil {
		return fmt.Errorf("verification service: issue token: %w", err)
	}

	s.dispatcher.Dispatch(notify.TemplateVerification, user.Email,
		user.FullName(), s.link("/api/auth/verify", token))
	return nil
}

// SendResetLink mails a password reset link. The address must belong to a
// verified user; unverified addresses fail the same way login does.
func (s *VerificationService) SendResetLink(ctx context.Context, email string) error {
	if !s.emailEnabled {
		return ErrEmailDisabled
	}

	user, err := s.users.GetUser(ctx, email)
	if err != nil {
		return err
	}

	confirmed, err := s.users.IsEmailConfirmed(ctx, user.Email)
	if err != nil {
		return err
	}
	if !confirmed {
		return ErrEmailNotVerified
	}

	token, err := s.tokens.IssueEmailToken(user.Email, auth.PurposeReset)
	if err != nil {
		return fmt.Errorf("verification service: issue token: %w", err)
	}

	s.dispatcher.Dispatch(notify.TemplatePasswordReset, user.Email,
		user.FullName(), s.link("/api/auth/password/reset", token))
	return nil
}

// OverwritePassword decodes the reset token and replaces the stored password.
func (s *VerificationService) OverwritePassword(ctx context.Context, token, password string) (string, error) {
	email, err := s.tokens.DecodeEmailToken(token, auth.PurposeReset)
	if err != nil {
		return "", apperrors.NewAuthToken("Invalid or expired reset token")
	}

	if err := s.users.UpdatePassword(ctx, email, password); err != nil {
		return "", err
	}

	if s.emailEnabled {
		user, err := s.users.GetUser(ctx, email)
		if err == nil {
			s.dispatcher.Dispatch(notify.TemplatePasswordChanged, user.Email, user.FullName())
		}
	}

	return email, nil
}

func (s *VerificationService) link(path, token string) string {
	if s.baseURL == "" {
		return token
	}
	return fmt.Sprintf("%s%s?token=%s", s.baseURL, path, token)
}
