package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/pkg/crypto"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
)

const integrationDomain = "@integration.local"

// UserOption customises UserService behaviour.
type UserOption func(*UserService)

// WithUserClock injects a custom clock primarily for testing.
func WithUserClock(clock func() time.Time) UserOption {
	return func(s *UserService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithEmailVerification toggles the verified-email login gate.
func WithEmailVerification(enabled bool) UserOption {
	return func(s *UserService) {
		s.emailEnabled = enabled
	}
}

// WithBotAccess attaches the access service used to record the admin grant
// integration users hold on their bot.
func WithBotAccess(access *AccessService) UserOption {
	return func(s *UserService) {
		s.access = access
	}
}

// UserService manages platform logins and the verification gate consumed by
// authentication.
type UserService struct {
	db           *gorm.DB
	access       *AccessService
	emailEnabled bool
	now          func() time.Time
}

// NewUserService constructs a UserService with the provided dependencies.
func NewUserService(db *gorm.DB, opts ...UserOption) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}

	service := &UserService{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// AddUserInput holds the parameters for registering a user.
type AddUserInput struct {
	Email         string
	Password      string
	FirstName     string
	LastName      string
	AccountID     string
	IsIntegration bool
}

// AddUser registers a login under an account. Email is unique among active
// users, compared case-insensitively.
func (s *UserService) AddUser(ctx context.Context, input AddUserInput) (*models.User, error) {
	email := normaliseEmail(input.Email)
	switch {
	case email == "":
		return nil, apperrors.NewValidation("Email cannot be empty or blank spaces")
	case isBlank(input.Password):
		return nil, apperrors.NewValidation("Password cannot be empty or blank spaces")
	case isBlank(input.FirstName) && !input.IsIntegration:
		return nil, apperrors.NewValidation("First name cannot be empty or blank spaces")
	case input.AccountID == "":
		return nil, apperrors.NewValidation("Account id is required")
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("lower(email) = ? AND status = ?", email, models.StatusActive).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("user service: check email: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateEmail
	}

	hash, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := models.User{
		Email:         email,
		Password:      hash,
		FirstName:     normaliseName(input.FirstName),
		LastName:      normaliseName(input.LastName),
		AccountID:     input.AccountID,
		IsIntegration: input.IsIntegration,
		Status:        models.StatusActive,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	return &user, nil
}

// GetUser returns the most recent user record for the email regardless of
// lifecycle state.
func (s *UserService) GetUser(ctx context.Context, email string) (*models.User, error) {
	email = normaliseEmail(email)
	if email == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	if err := s.db.WithContext(ctx).
		Where("lower(email) = ?", email).
		Order("created_at DESC").
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user service: find user: %w", err)
	}

	return &user, nil
}

// RequireVerifiedUser enforces the login gate: the email must be verified when
// verification is enabled, and both the user and owning account must be active.
// Integration users skip the verification check.
func (s *UserService) RequireVerifiedUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.emailEnabled && !user.IsIntegration {
		confirmed, err := s.IsEmailConfirmed(ctx, user.Email)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			return nil, ErrEmailNotVerified
		}
	}

	if user.Status != models.StatusActive {
		return nil, ErrInactiveUser
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", user.AccountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("user service: load account: %w", err)
	}
	if account.Status != models.StatusActive {
		return nil, ErrInactiveAccount
	}

	return user, nil
}

// IsEmailConfirmed reports whether a confirmation record exists for the email.
func (s *UserService) IsEmailConfirmed(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.EmailConfirmation{}).
		Where("lower(email) = ?", normaliseEmail(email)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("user service: check confirmation: %w", err)
	}
	return count > 0, nil
}

// GetIntegrationUser returns the bot's integration login, provisioning it with
// a random password and an admin grant on the bot on first use.
func (s *UserService) GetIntegrationUser(ctx context.Context, botID, accountID string) (*models.User, error) {
	if botID == "" || accountID == "" {
		return nil, apperrors.NewValidation("Bot and account are required")
	}

	email := botID + integrationDomain

	var user models.User
	err := s.db.WithContext(ctx).
		Where("lower(email) = ? AND status = ?", email, models.StatusActive).
		First(&user).Error
	if err == nil {
		if err := s.ensureIntegrationGrant(ctx, botID, accountID, email); err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user service: find integration user: %w", err)
	}

	password, err := crypto.GeneratePassword(24)
	if err != nil {
		return nil, fmt.Errorf("user service: generate password: %w", err)
	}

	created, err := s.AddUser(ctx, AddUserInput{
		Email:         email,
		Password:      password,
		FirstName:     botID,
		AccountID:     accountID,
		IsIntegration: true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.ensureIntegrationGrant(ctx, botID, accountID, email); err != nil {
		return nil, err
	}

	return created, nil
}

// ensureIntegrationGrant records the active admin grant integration tokens
// rely on to clear the bot role middleware. Idempotent.
func (s *UserService) ensureIntegrationGrant(ctx context.Context, botID, accountID, email string) error {
	if s.access == nil {
		return errors.New("user service: access service is required for integration users")
	}

	_, err := s.access.Grant(ctx, GrantInput{
		BotID:         botID,
		AccessorEmail: email,
		GrantedBy:     email,
		BotAccountID:  accountID,
		Role:          models.RoleAdmin,
		Status:        models.AccessActive,
	})
	if err != nil && !errors.Is(err, ErrDuplicateGrant) {
		return fmt.Errorf("user service: grant integration access: %w", err)
	}

	return nil
}

// Profile bundles the data shown on the logged-in user's home screen.
type Profile struct {
	User    models.User     `json:"user"`
	Account models.Account  `json:"account"`
	Bots    *AccessibleBots `json:"bots"`
}

// CompleteProfile assembles the user record, owning account, and accessible
// bots for the email.
func (s *UserService) CompleteProfile(ctx context.Context, email string, access *AccessService) (*Profile, error) {
	user, err := s.GetUser(ctx, email)
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", user.AccountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("user service: load account: %w", err)
	}

	bots, err := access.BotsForUser(ctx, user.AccountID, user.Email)
	if err != nil {
		return nil, err
	}

	return &Profile{User: *user, Account: account, Bots: bots}, nil
}

// UpdatePassword overwrites the stored hash and stamps the change time.
func (s *UserService) UpdatePassword(ctx context.Context, email, password string) error {
	if isBlank(password) {
		return apperrors.NewValidation("Password cannot be empty or blank spaces")
	}

	user, err := s.GetUser(ctx, email)
	if err != nil {
		return err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("user service: hash password: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{"password": hash, "password_changed_at": now}).Error; err != nil {
		return fmt.Errorf("user service: update password: %w", err)
	}

	return nil
}
