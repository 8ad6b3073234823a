package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botsmithhq/botsmith/internal/models"
)

func TestProvisionAccountCreatesFullStack(t *testing.T) {
	db := openServiceTestDB(t)
	access, _, accounts := newTestStack(t, db)

	result := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	require.Equal(t, "acme", result.Account.Name)
	require.Equal(t, "owner@acme.test", result.Account.OwnerID)
	require.Equal(t, models.DefaultLicense(), result.Account.License.Data())

	require.Equal(t, "Hi-Hello", result.Bot.Name)
	require.Equal(t, result.Account.ID, result.Bot.AccountID)

	require.Equal(t, "owner@acme.test", result.User.Email)
	require.NotEqual(t, "Secret123!", result.User.Password)

	// The owner holds an active admin grant without going through an invite.
	grant, err := access.RoleOf(context.Background(), "owner@acme.test", result.Bot.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, grant.Role)
	require.NotNil(t, grant.AcceptedAt)

	// Starter content was seeded.
	var intents int64
	require.NoError(t, db.Model(&models.Intent{}).Where("bot_id = ?", result.Bot.ID).Count(&intents).Error)
	require.Positive(t, intents)

	var settings models.BotSettings
	require.NoError(t, db.Where("bot_id = ?", result.Bot.ID).First(&settings).Error)
}

func TestProvisionAccountDuplicateName(t *testing.T) {
	db := openServiceTestDB(t)
	_, _, accounts := newTestStack(t, db)

	provisionTestAccount(t, accounts, "acme", "first@acme.test")

	_, err := accounts.ProvisionAccount(context.Background(), ProvisionInput{
		AccountName: "ACME",
		Email:       "second@acme.test",
		FirstName:   "Second",
		Password:    "Secret123!",
	})
	require.ErrorIs(t, err, ErrDuplicateAccountName)
}

func TestProvisionAccountRollbackLeavesNoOrphans(t *testing.T) {
	db := openServiceTestDB(t)
	_, _, accounts := newTestStack(t, db)

	provisionTestAccount(t, accounts, "first", "owner@acme.test")

	// Same email under a fresh account name fails at the user step; the
	// partially created account and bot must be gone afterwards.
	_, err := accounts.ProvisionAccount(context.Background(), ProvisionInput{
		AccountName: "second",
		Email:       "owner@acme.test",
		FirstName:   "Owner",
		Password:    "Secret123!",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	var orphanAccounts int64
	require.NoError(t, db.Model(&models.Account{}).Where("name = ?", "second").Count(&orphanAccounts).Error)
	require.Zero(t, orphanAccounts)

	var bots []models.Bot
	require.NoError(t, db.Find(&bots).Error)
	require.Len(t, bots, 1) // only the first account's starter bot survives

	var userCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.EqualValues(t, 1, userCount)
}

func TestAddBotDuplicateNameWithinAccount(t *testing.T) {
	db := openServiceTestDB(t)
	_, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	_, err := accounts.AddBot(context.Background(), "support", owner.Account.ID, "owner@acme.test")
	require.NoError(t, err)

	_, err = accounts.AddBot(context.Background(), "Support", owner.Account.ID, "owner@acme.test")
	require.ErrorIs(t, err, ErrDuplicateBotName)

	// The same name is fine under a different account.
	other := provisionTestAccount(t, accounts, "other", "other@y.com")
	_, err = accounts.AddBot(context.Background(), "support", other.Account.ID, "other@y.com")
	require.NoError(t, err)
}

func TestAddBotBlankName(t *testing.T) {
	db := openServiceTestDB(t)
	_, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	_, err := accounts.AddBot(context.Background(), "   ", owner.Account.ID, "owner@acme.test")
	require.ErrorIs(t, err, ErrEmptyName)
}

func TestRenameBot(t *testing.T) {
	db := openServiceTestDB(t)
	_, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	_, err := accounts.RenameBot(context.Background(), owner.Bot.ID, owner.Account.ID, " ")
	require.ErrorIs(t, err, ErrEmptyName)

	bot, err := accounts.RenameBot(context.Background(), owner.Bot.ID, owner.Account.ID, "frontdesk")
	require.NoError(t, err)
	require.Equal(t, "frontdesk", bot.Name)

	_, err = accounts.RenameBot(context.Background(), "missing", owner.Account.ID, "frontdesk")
	require.ErrorIs(t, err, ErrBotNotFound)
}

func TestDeleteBotCascades(t *testing.T) {
	db := openServiceTestDB(t)
	access, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	_, err := access.Grant(context.Background(), GrantInput{
		BotID:         owner.Bot.ID,
		AccessorEmail: "a@x.com",
		GrantedBy:     "owner@acme.test",
		BotAccountID:  owner.Account.ID,
		Role:          models.RoleTester,
		Status:        models.AccessActive,
	})
	require.NoError(t, err)

	require.NoError(t, accounts.DeleteBot(context.Background(), owner.Bot.ID))

	// Bot is soft-deleted, its content hard-deleted, its grants revoked.
	var bot models.Bot
	require.NoError(t, db.Where("id = ?", owner.Bot.ID).First(&bot).Error)
	require.Equal(t, models.StatusDeleted, bot.Status)

	var contentCount int64
	require.NoError(t, db.Model(&models.Intent{}).Where("bot_id = ?", owner.Bot.ID).Count(&contentCount).Error)
	require.Zero(t, contentCount)

	var liveGrants int64
	require.NoError(t, db.Model(&models.BotAccess{}).
		Where("bot_id = ? AND status <> ?", owner.Bot.ID, models.AccessDeleted).
		Count(&liveGrants).Error)
	require.Zero(t, liveGrants)

	// Deleting an already-deleted bot reports it as missing.
	require.ErrorIs(t, accounts.DeleteBot(context.Background(), owner.Bot.ID), ErrBotNotFound)
}

func TestDeleteAccountCascades(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	require.NoError(t, accounts.DeleteAccount(context.Background(), owner.Account.ID))

	_, err := accounts.GetAccount(context.Background(), owner.Account.ID)
	require.ErrorIs(t, err, ErrAccountNotFound)

	bots, err := accounts.ListBots(context.Background(), owner.Account.ID)
	require.NoError(t, err)
	require.Empty(t, bots)

	user, err := users.GetUser(context.Background(), "owner@acme.test")
	require.NoError(t, err)
	require.Equal(t, models.StatusDeleted, user.Status)

	// The freed name can be reused.
	provisionTestAccount(t, accounts, "acme", "owner2@acme.test")
}
