package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/models"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
)

// AccessOption customises AccessService behaviour.
type AccessOption func(*AccessService)

// WithAccessClock injects a custom clock primarily for testing.
func WithAccessClock(clock func() time.Time) AccessOption {
	return func(s *AccessService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithInviteAcceptanceGate toggles the pending-invite guard on grant updates.
// The guard only makes sense when invite mails go out, so it tracks the email
// verification flag.
func WithInviteAcceptanceGate(enabled bool) AccessOption {
	return func(s *AccessService) {
		s.inviteGate = enabled
	}
}

// AccessService owns the collaborator grant lifecycle on bots.
type AccessService struct {
	db         *gorm.DB
	tokens     *auth.JWTService
	inviteGate bool
	now        func() time.Time
}

// NewAccessService constructs an AccessService with the provided dependencies.
func NewAccessService(db *gorm.DB, tokens *auth.JWTService, opts ...AccessOption) (*AccessService, error) {
	if db == nil {
		return nil, errors.New("access service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("access service: token service is required")
	}

	service := &AccessService{
		db:     db,
		tokens: tokens,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// GrantInput holds the parameters for creating a collaborator grant.
type GrantInput struct {
	BotID         string
	AccessorEmail string
	GrantedBy     string
	BotAccountID  string
	Role          models.AccessRole
	Status        models.AccessStatus
}

// Grant records a new collaborator grant for (bot, email). At most one
// non-deleted row may exist per pair; a second grant fails with
// ErrDuplicateGrant until the first is revoked.
func (s *AccessService) Grant(ctx context.Context, input GrantInput) (*models.Bot, error) {
	email := normaliseEmail(input.AccessorEmail)
	if email == "" {
		return nil, apperrors.NewValidation("Accessor email is required")
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidation("Invalid collaborator role")
	}
	if input.Status != models.AccessInviteNotAccepted && input.Status != models.AccessActive {
		return nil, apperrors.NewValidation("New grants must be pending or active")
	}

	bot, err := s.activeBot(ctx, input.BotID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.BotAccess{}).
		Where("bot_id = ? AND accessor_email = ? AND status <> ?", bot.ID, email, models.AccessDeleted).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("access service: check existing grant: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateGrant
	}

	now := s.now()
	grant := models.BotAccess{
		BotID:         bot.ID,
		AccessorEmail: email,
		Role:          input.Role,
		GrantedBy:     normaliseEmail(input.GrantedBy),
		BotAccountID:  input.BotAccountID,
		Status:        input.Status,
		InvitedAt:     now,
	}
	if input.Status == models.AccessActive {
		grant.AcceptedAt = &now
	}

	if err := s.db.WithContext(ctx).Create(&grant).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateGrant
		}
		return nil, fmt.Errorf("access service: create grant: %w", err)
	}

	return bot, nil
}

// UpdateGrantInput holds the parameters for changing an existing grant.
type UpdateGrantInput struct {
	BotID         string
	AccessorEmail string
	GrantedBy     string
	Role          models.AccessRole
	Status        models.AccessStatus
}

// UpdateGrant changes the role and status of an existing grant. A pending
// invite can only leave that state through acceptance or revocation; while the
// invite-acceptance gate is on, any other move fails with
// ErrPendingInviteNotAccepted.
func (s *AccessService) UpdateGrant(ctx context.Context, input UpdateGrantInput) error {
	email := normaliseEmail(input.AccessorEmail)
	if email == "" {
		return apperrors.NewValidation("Accessor email is required")
	}
	if !input.Role.Valid() {
		return apperrors.NewValidation("Invalid collaborator role")
	}
	if !input.Status.Valid() {
		return apperrors.NewValidation("Invalid grant status")
	}

	grant, err := s.findGrant(ctx, input.BotID, email)
	if err != nil {
		return err
	}

	if grant.Status == models.AccessInviteNotAccepted && input.Status != models.AccessDeleted && s.inviteGate {
		return ErrPendingInviteNotAccepted
	}
	if grant.Status != input.Status && !grant.Status.CanTransition(input.Status) {
		// Same-status updates are role changes; anything else follows the table.
		if grant.Status != models.AccessInviteNotAccepted || input.Status != models.AccessInactive {
			return apperrors.NewInvalidState("INVALID_TRANSITION",
				fmt.Sprintf("Cannot move grant from %s to %s", grant.Status, input.Status))
		}
		return ErrPendingInviteNotAccepted
	}

	updates := map[string]any{
		"role":       input.Role,
		"status":     input.Status,
		"granted_by": normaliseEmail(input.GrantedBy),
		"updated_at": s.now(),
	}
	if grant.Status == models.AccessInviteNotAccepted && input.Status == models.AccessActive {
		updates["accepted_at"] = s.now()
	}

	if err := s.db.WithContext(ctx).
		Model(&models.BotAccess{}).
		Where("id = ?", grant.ID).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("access service: update grant: %w", err)
	}

	return nil
}

// InviteAcceptance describes an accepted invite for downstream notification.
type InviteAcceptance struct {
	GrantedBy     string            `json:"granted_by"`
	BotName       string            `json:"bot_name"`
	AccessorEmail string            `json:"accessor_email"`
	Role          models.AccessRole `json:"role"`
}

// AcceptInvite decodes the accessor email from the signed token and moves the
// pending grant for (bot, email) to active.
func (s *AccessService) AcceptInvite(ctx context.Context, token, botID string) (*InviteAcceptance, error) {
	email, err := s.tokens.DecodeEmailToken(token, auth.PurposeInvite)
	if err != nil {
		return nil, apperrors.NewAuthToken("Invalid or expired invite token")
	}

	var grant models.BotAccess
	if err := s.db.WithContext(ctx).
		Where("bot_id = ? AND accessor_email = ? AND status = ?", botID, email, models.AccessInviteNotAccepted).
		First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoPendingInvite
		}
		return nil, fmt.Errorf("access service: find pending invite: %w", err)
	}

	var bot models.Bot
	if err := s.db.WithContext(ctx).Where("id = ?", grant.BotID).First(&bot).Error; err != nil {
		return nil, fmt.Errorf("access service: load bot: %w", err)
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&models.BotAccess{}).
		Where("id = ?", grant.ID).
		Updates(map[string]any{"status": models.AccessActive, "accepted_at": now}).Error; err != nil {
		return nil, fmt.Errorf("access service: accept invite: %w", err)
	}

	return &InviteAcceptance{
		GrantedBy:     grant.GrantedBy,
		BotName:       bot.Name,
		AccessorEmail: email,
		Role:          grant.Role,
	}, nil
}

// RevokeInput filters the grants to revoke. AccessorEmail and AccountID are
// optional; when either is supplied and nothing matches, the call fails with
// ErrNotCollaborator.
type RevokeInput struct {
	BotID         string
	AccessorEmail string
	AccountID     string
}

// Revoke marks matching non-deleted grants on the bot as deleted.
func (s *AccessService) Revoke(ctx context.Context, input RevokeInput) error {
	query := s.db.WithContext(ctx).
		Model(&models.BotAccess{}).
		Where("bot_id = ? AND status <> ?", input.BotID, models.AccessDeleted)

	filtered := false
	if email := normaliseEmail(input.AccessorEmail); email != "" {
		query = query.Where("accessor_email = ?", email)
		filtered = true
	}
	if input.AccountID != "" {
		query = query.Where("bot_account_id = ?", input.AccountID)
		filtered = true
	}

	result := query.Updates(map[string]any{"status": models.AccessDeleted, "updated_at": s.now()})
	if result.Error != nil {
		return fmt.Errorf("access service: revoke grants: %w", result.Error)
	}
	if filtered && result.RowsAffected == 0 {
		return ErrNotCollaborator
	}

	return nil
}

// RoleOf returns the active grant held by the email on the bot.
func (s *AccessService) RoleOf(ctx context.Context, email, botID string) (*models.BotAccess, error) {
	email = normaliseEmail(email)
	if email == "" || botID == "" {
		return nil, ErrAccessDenied
	}

	var grant models.BotAccess
	if err := s.db.WithContext(ctx).
		Where("bot_id = ? AND accessor_email = ? AND status = ?", botID, email, models.AccessActive).
		First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("access service: find active grant: %w", err)
	}

	return &grant, nil
}

// SharedBot pairs a bot another account shared with the user with the grant
// details behind it.
type SharedBot struct {
	Bot    models.Bot          `json:"bot"`
	Role   models.AccessRole   `json:"role"`
	Status models.AccessStatus `json:"status"`
}

// AccessibleBots lists the bots a user can reach, partitioned into bots owned
// by their own account and bots shared from other accounts.
type AccessibleBots struct {
	Owned  []models.Bot `json:"account_owned"`
	Shared []SharedBot  `json:"shared"`
}

// BotsForUser computes the accessible-bot partition for (account, email).
func (s *AccessService) BotsForUser(ctx context.Context, accountID, email string) (*AccessibleBots, error) {
	email = normaliseEmail(email)

	var owned []models.Bot
	if err := s.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.StatusActive).
		Order("created_at").
		Find(&owned).Error; err != nil {
		return nil, fmt.Errorf("access service: list owned bots: %w", err)
	}

	var grants []models.BotAccess
	if err := s.db.WithContext(ctx).
		Where("accessor_email = ? AND status <> ? AND bot_account_id <> ?", email, models.AccessDeleted, accountID).
		Order("created_at").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("access service: list shared grants: %w", err)
	}

	shared := make([]SharedBot, 0, len(grants))
	for _, grant := range grants {
		var bot models.Bot
		if err := s.db.WithContext(ctx).
			Where("id = ? AND status = ?", grant.BotID, models.StatusActive).
			First(&bot).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, fmt.Errorf("access service: load shared bot: %w", err)
		}
		shared = append(shared, SharedBot{Bot: bot, Role: grant.Role, Status: grant.Status})
	}

	return &AccessibleBots{Owned: owned, Shared: shared}, nil
}

// ListCollaborators returns every non-deleted grant on the bot.
func (s *AccessService) ListCollaborators(ctx context.Context, botID string) ([]models.BotAccess, error) {
	var grants []models.BotAccess
	if err := s.db.WithContext(ctx).
		Where("bot_id = ? AND status <> ?", botID, models.AccessDeleted).
		Order("created_at").
		Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("access service: list collaborators: %w", err)
	}
	return grants, nil
}

func (s *AccessService) findGrant(ctx context.Context, botID, email string) (*models.BotAccess, error) {
	var grant models.BotAccess
	if err := s.db.WithContext(ctx).
		Where("bot_id = ? AND accessor_email = ? AND status <> ?", botID, email, models.AccessDeleted).
		First(&grant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotCollaborator
		}
		return nil, fmt.Errorf("access service: find grant: %w", err)
	}
	return &grant, nil
}

func (s *AccessService) activeBot(ctx context.Context, botID string) (*models.Bot, error) {
	var bot models.Bot
	if err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", botID, models.StatusActive).
		First(&bot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBotNotFound
		}
		return nil, fmt.Errorf("access service: load bot: %w", err)
	}
	return &bot, nil
}
