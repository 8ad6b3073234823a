package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/pkg/crypto"
)

func TestAddUserDuplicateEmail(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	_, err := users.AddUser(context.Background(), AddUserInput{
		Email:     "Owner@ACME.test",
		Password:  "Secret123!",
		FirstName: "Dup",
		AccountID: owner.Account.ID,
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestAddUserValidatesBlanks(t *testing.T) {
	db := openServiceTestDB(t)
	users, err := NewUserService(db)
	require.NoError(t, err)

	_, err = users.AddUser(context.Background(), AddUserInput{
		Email:     "  ",
		Password:  "Secret123!",
		FirstName: "A",
		AccountID: "acct",
	})
	require.Error(t, err)

	_, err = users.AddUser(context.Background(), AddUserInput{
		Email:     "a@x.com",
		Password:  " ",
		FirstName: "A",
		AccountID: "acct",
	})
	require.Error(t, err)
}

func TestRequireVerifiedUserGates(t *testing.T) {
	db := openServiceTestDB(t)
	_, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	gated, err := NewUserService(db, WithEmailVerification(true))
	require.NoError(t, err)

	// Unconfirmed email is rejected while verification is on.
	_, err = gated.RequireVerifiedUser(context.Background(), "owner@acme.test")
	require.ErrorIs(t, err, ErrEmailNotVerified)

	require.NoError(t, db.Create(&models.EmailConfirmation{
		Email:       "owner@acme.test",
		ConfirmedAt: time.Now(),
	}).Error)

	user, err := gated.RequireVerifiedUser(context.Background(), "owner@acme.test")
	require.NoError(t, err)
	require.Equal(t, "owner@acme.test", user.Email)

	// Deactivated user fails the gate.
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("status", models.StatusDeleted).Error)
	_, err = gated.RequireVerifiedUser(context.Background(), "owner@acme.test")
	require.ErrorIs(t, err, ErrInactiveUser)

	// Reactivate the user, deactivate the account.
	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("status", models.StatusActive).Error)
	require.NoError(t, db.Model(&models.Account{}).
		Where("id = ?", owner.Account.ID).
		Update("status", models.StatusDeleted).Error)
	_, err = gated.RequireVerifiedUser(context.Background(), "owner@acme.test")
	require.ErrorIs(t, err, ErrInactiveAccount)
}

func TestRequireVerifiedUserUnknownEmail(t *testing.T) {
	db := openServiceTestDB(t)
	users, err := NewUserService(db)
	require.NoError(t, err)

	_, err = users.RequireVerifiedUser(context.Background(), "ghost@x.com")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetIntegrationUserIsIdempotent(t *testing.T) {
	db := openServiceTestDB(t)
	access, users, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	first, err := users.GetIntegrationUser(context.Background(), owner.Bot.ID, owner.Account.ID)
	require.NoError(t, err)
	require.True(t, first.IsIntegration)
	require.Equal(t, owner.Bot.ID+integrationDomain, first.Email)

	second, err := users.GetIntegrationUser(context.Background(), owner.Bot.ID, owner.Account.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// The integration login clears the bot role guard with a single admin grant.
	grant, err := access.RoleOf(context.Background(), first.Email, owner.Bot.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleAdmin, grant.Role)
	require.Equal(t, models.AccessActive, grant.Status)

	var count int64
	require.NoError(t, db.Model(&models.BotAccess{}).
		Where("bot_id = ? AND accessor_email = ?", owner.Bot.ID, first.Email).
		Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestIntegrationUserSkipsVerificationGate(t *testing.T) {
	db := openServiceTestDB(t)
	access, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	gated, err := NewUserService(db, WithEmailVerification(true), WithBotAccess(access))
	require.NoError(t, err)

	integration, err := gated.GetIntegrationUser(context.Background(), owner.Bot.ID, owner.Account.ID)
	require.NoError(t, err)

	_, err = gated.RequireVerifiedUser(context.Background(), integration.Email)
	require.NoError(t, err)
}

func TestUpdatePassword(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	require.NoError(t, users.UpdatePassword(context.Background(), "owner@acme.test", "NewSecret456!"))

	user, err := users.GetUser(context.Background(), "owner@acme.test")
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(user.Password, "NewSecret456!"))
	require.NotNil(t, user.PasswordChangedAt)

	require.Error(t, users.UpdatePassword(context.Background(), "owner@acme.test", "  "))
}

func TestCompleteProfile(t *testing.T) {
	db := openServiceTestDB(t)
	access, users, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	profile, err := users.CompleteProfile(context.Background(), "owner@acme.test", access)
	require.NoError(t, err)
	require.Equal(t, owner.Account.ID, profile.Account.ID)
	require.Len(t, profile.Bots.Owned, 1)
	require.Empty(t, profile.Bots.Shared)
}
