package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/pkg/logger"
)

const defaultStarterBotName = "Hi-Hello"

// AccountOption customises AccountService behaviour.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom clock primarily for testing.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithVerificationTokens enables verification-token issuance at signup.
func WithVerificationTokens(tokens *auth.JWTService) AccountOption {
	return func(s *AccountService) {
		s.tokens = tokens
	}
}

// WithStarterBotName overrides the name of the bot created during provisioning.
func WithStarterBotName(name string) AccountOption {
	return func(s *AccountService) {
		if name != "" {
			s.starterBot = name
		}
	}
}

// AccountService orchestrates account, bot, and provisioning lifecycles.
type AccountService struct {
	db         *gorm.DB
	access     *AccessService
	users      *UserService
	seeder     *Seeder
	tokens     *auth.JWTService
	starterBot string
	now        func() time.Time
	log        *zap.Logger
}

// NewAccountService constructs an AccountService with the provided dependencies.
func NewAccountService(db *gorm.DB, access *AccessService, users *UserService, seeder *Seeder, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if access == nil {
		return nil, errors.New("account service: access service is required")
	}
	if users == nil {
		return nil, errors.New("account service: user service is required")
	}
	if seeder == nil {
		return nil, errors.New("account service: seeder is required")
	}

	service := &AccountService{
		db:         db,
		access:     access,
		users:      users,
		seeder:     seeder,
		starterBot: defaultStarterBotName,
		now:        time.Now,
		log:        logger.WithModule("accounts"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// ProvisionInput holds the signup parameters.
type ProvisionInput struct {
	AccountName string
	Email       string
	FirstName   string
	LastName    string
	Password    string
}

// ProvisionResult reports the records created at signup. VerificationToken is
// set only when verification-token issuance is enabled; the caller turns it
// into a confirmation mail.
type ProvisionResult struct {
	Account           *models.Account
	Bot               *models.Bot
	User              *models.User
	VerificationToken string
}

// ProvisionAccount runs the multi-step signup workflow: account, starter bot,
// owner user, admin grant, seeded content. The store offers no multi-record
// transaction, so a failure after account creation triggers best-effort
// compensation that deletes the partially created account and bot. Compensation
// failures are logged and never mask the original error.
func (s *AccountService) ProvisionAccount(ctx context.Context, input ProvisionInput) (*ProvisionResult, error) {
	owner := normaliseEmail(input.Email)

	account, err := s.AddAccount(ctx, input.AccountName, owner)
	if err != nil {
		return nil, err
	}

	result, err := s.provisionUnder(ctx, account, owner, input)
	if err != nil {
		s.rollbackProvision(ctx, account, err)
		return nil, err
	}

	return result, nil
}

func (s *AccountService) provisionUnder(ctx context.Context, account *models.Account, owner string, input ProvisionInput) (*ProvisionResult, error) {
	bot, err := s.AddBot(ctx, s.starterBot, account.ID, owner)
	if err != nil {
		return nil, err
	}

	user, err := s.users.AddUser(ctx, AddUserInput{
		Email:     input.Email,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		AccountID: account.ID,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.access.Grant(ctx, GrantInput{
		BotID:         bot.ID,
		AccessorEmail: user.Email,
		GrantedBy:     user.Email,
		BotAccountID:  account.ID,
		Role:          models.RoleAdmin,
		Status:        models.AccessActive,
	}); err != nil {
		return nil, err
	}

	if err := s.seeder.SeedBot(ctx, bot.ID, user.Email); err != nil {
		return nil, err
	}

	result := &ProvisionResult{Account: account, Bot: bot, User: user}
	if s.tokens != nil {
		token, err := s.tokens.IssueEmailToken(user.Email, auth.PurposeVerify)
		if err != nil {
			return nil, fmt.Errorf("account service: issue verification token: %w", err)
		}
		result.VerificationToken = token
	}

	return result, nil
}

// rollbackProvision hard-deletes the account and everything created under it.
// Records from a failed signup never existed as far as uniqueness checks are
// concerned, so deletion is physical here rather than a status flip.
func (s *AccountService) rollbackProvision(ctx context.Context, account *models.Account, cause error) {
	db := s.db.WithContext(ctx)

	var compErr error
	var bots []models.Bot
	if err := db.Where("account_id = ?", account.ID).Find(&bots).Error; err != nil {
		compErr = multierr.Append(compErr, err)
	}
	for _, bot := range bots {
		compErr = multierr.Append(compErr, s.purgeBotContent(ctx, bot.ID))
		compErr = multierr.Append(compErr, db.Where("bot_id = ?", bot.ID).Delete(&models.BotAccess{}).Error)
		compErr = multierr.Append(compErr, db.Where("id = ?", bot.ID).Delete(&models.Bot{}).Error)
	}

	compErr = multierr.Append(compErr, db.Where("account_id = ?", account.ID).Delete(&models.User{}).Error)
	compErr = multierr.Append(compErr, db.Where("id = ?", account.ID).Delete(&models.Account{}).Error)

	if compErr != nil {
		s.log.Error("provisioning rollback incomplete",
			zap.String("account_id", account.ID),
			zap.NamedError("cause", cause),
			zap.Error(compErr))
		return
	}

	s.log.Warn("provisioning rolled back",
		zap.String("account_id", account.ID),
		zap.NamedError("cause", cause))
}

// AddAccount creates an active account. Name is unique among active accounts,
// compared case-insensitively.
func (s *AccountService) AddAccount(ctx context.Context, name, owner string) (*models.Account, error) {
	name = normaliseName(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("lower(name) = lower(?) AND status = ?", name, models.StatusActive).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("account service: check name: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateAccountName
	}

	account := models.Account{
		Name:    name,
		OwnerID: normaliseEmail(owner),
		License: datatypes.NewJSONType(models.DefaultLicense()),
		Status:  models.StatusActive,
	}

	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateAccountName
		}
		return nil, fmt.Errorf("account service: create account: %w", err)
	}

	return &account, nil
}

// AddBot creates an active bot under the account. Name is unique among the
// account's active bots, compared case-insensitively.
func (s *AccountService) AddBot(ctx context.Context, name, accountID, createdBy string) (*models.Bot, error) {
	name = normaliseName(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("account_id = ? AND lower(name) = lower(?) AND status = ?", accountID, name, models.StatusActive).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("account service: check bot name: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateBotName
	}

	bot := models.Bot{
		Name:      name,
		AccountID: accountID,
		Status:    models.StatusActive,
	}

	if err := s.db.WithContext(ctx).Create(&bot).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrDuplicateBotName
		}
		return nil, fmt.Errorf("account service: create bot: %w", err)
	}

	return &bot, nil
}

// RenameBot updates the bot's name after the usual blank and uniqueness checks.
func (s *AccountService) RenameBot(ctx context.Context, botID, accountID, name string) (*models.Bot, error) {
	name = normaliseName(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	bot, err := s.GetBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	if accountID != "" && bot.AccountID != accountID {
		return nil, ErrBotNotFound
	}

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("account_id = ? AND lower(name) = lower(?) AND status = ? AND id <> ?",
			bot.AccountID, name, models.StatusActive, bot.ID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("account service: check bot name: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateBotName
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("id = ?", bot.ID).
		Updates(map[string]any{"name": name, "updated_at": s.now()}).Error; err != nil {
		return nil, fmt.Errorf("account service: rename bot: %w", err)
	}

	bot.Name = name
	return bot, nil
}

// DeleteBot soft-deletes the bot, hard-deletes its dependent content, and
// revokes every collaborator grant on it.
func (s *AccountService) DeleteBot(ctx context.Context, botID string) error {
	bot, err := s.GetBot(ctx, botID)
	if err != nil {
		return err
	}
	if !bot.Status.CanTransition(models.StatusDeleted) {
		return ErrBotNotFound
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Bot{}).
		Where("id = ?", bot.ID).
		Updates(map[string]any{"status": models.StatusDeleted, "updated_at": s.now()}).Error; err != nil {
		return fmt.Errorf("account service: delete bot: %w", err)
	}

	if err := s.purgeBotContent(ctx, bot.ID); err != nil {
		return fmt.Errorf("account service: purge bot content: %w", err)
	}

	if err := s.access.Revoke(ctx, RevokeInput{BotID: bot.ID}); err != nil {
		return err
	}

	return nil
}

// purgeBotContent hard-deletes every bot-scoped configuration and training record.
func (s *AccountService) purgeBotContent(ctx context.Context, botID string) error {
	db := s.db.WithContext(ctx)

	var actionIDs []string
	if err := db.Model(&models.HTTPAction{}).Where("bot_id = ?", botID).Pluck("id", &actionIDs).Error; err != nil {
		return err
	}
	if len(actionIDs) > 0 {
		if err := db.Where("action_id IN ?", actionIDs).Delete(&models.HTTPParam{}).Error; err != nil {
			return err
		}
	}

	scoped := []any{
		&models.HTTPAction{},
		&models.SlotSetAction{},
		&models.FormValidationAction{},
		&models.EmailAction{},
		&models.BotSettings{},
		&models.ChatClientConfig{},
		&models.SessionConfig{},
		&models.Intent{},
		&models.TrainingExample{},
		&models.BotResponse{},
		&models.Story{},
		&models.Rule{},
	}
	for _, model := range scoped {
		if err := db.Where("bot_id = ?", botID).Delete(model).Error; err != nil {
			return err
		}
	}

	return nil
}

// DeleteAccount soft-deletes the account, its users, and cascades every bot.
func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	bots, err := s.ListBots(ctx, account.ID)
	if err != nil {
		return err
	}
	for _, bot := range bots {
		if err := s.DeleteBot(ctx, bot.ID); err != nil {
			return err
		}
	}

	now := s.now()
	if err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("account_id = ? AND status = ?", account.ID, models.StatusActive).
		Updates(map[string]any{"status": models.StatusDeleted, "updated_at": now}).Error; err != nil {
		return fmt.Errorf("account service: delete users: %w", err)
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{"status": models.StatusDeleted, "updated_at": now}).Error; err != nil {
		return fmt.Errorf("account service: delete account: %w", err)
	}

	return nil
}

// ListBots returns the account's active bots.
func (s *AccountService) ListBots(ctx context.Context, accountID string) ([]models.Bot, error) {
	var bots []models.Bot
	if err := s.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.StatusActive).
		Order("created_at").
		Find(&bots).Error; err != nil {
		return nil, fmt.Errorf("account service: list bots: %w", err)
	}
	return bots, nil
}

// GetAccount returns the active account or ErrAccountNotFound.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", accountID, models.StatusActive).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("account service: load account: %w", err)
	}
	return &account, nil
}

// GetBot returns the active bot or ErrBotNotFound.
func (s *AccountService) GetBot(ctx context.Context, botID string) (*models.Bot, error) {
	var bot models.Bot
	if err := s.db.WithContext(ctx).
		Where("id = ? AND status = ?", botID, models.StatusActive).
		First(&bot).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBotNotFound
		}
		return nil, fmt.Errorf("account service: load bot: %w", err)
	}
	return &bot, nil
}
