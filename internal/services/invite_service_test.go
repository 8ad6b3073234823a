package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/internal/notify"
)

func TestInviteWithEmailEnabledReturnsAcceptLink(t *testing.T) {
	db := openServiceTestDB(t)
	access, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	invites, err := NewInviteService(access, newTestTokens(t), notify.NewDispatcher(nil),
		WithInviteBaseURL("https://bots.example.com/"),
		WithInviteEmail(true))
	require.NoError(t, err)

	link, err := invites.Invite(context.Background(), InviteInput{
		BotID:         owner.Bot.ID,
		AccessorEmail: "a@x.com",
		InvitedBy:     "owner@acme.test",
		BotAccountID:  owner.Account.ID,
		Role:          models.RoleTester,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link, "https://bots.example.com/api/bots/"+owner.Bot.ID+"/access/accept?token="))

	// The grant is recorded as pending.
	var grant models.BotAccess
	require.NoError(t, db.Where("bot_id = ? AND accessor_email = ?", owner.Bot.ID, "a@x.com").First(&grant).Error)
	require.Equal(t, models.AccessInviteNotAccepted, grant.Status)
	require.Nil(t, grant.AcceptedAt)

	// The embedded token accepts the invite end to end.
	token := link[strings.Index(link, "token=")+len("token="):]
	acceptance, err := access.AcceptInvite(context.Background(), token, owner.Bot.ID)
	require.NoError(t, err)
	require.Equal(t, "a@x.com", acceptance.AccessorEmail)
}

func TestInviteWithEmailDisabledRecordsGrantWithoutLink(t *testing.T) {
	db := openServiceTestDB(t)
	access, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	invites, err := NewInviteService(access, newTestTokens(t), notify.NewDispatcher(nil))
	require.NoError(t, err)

	link, err := invites.Invite(context.Background(), InviteInput{
		BotID:         owner.Bot.ID,
		AccessorEmail: "a@x.com",
		InvitedBy:     "owner@acme.test",
		BotAccountID:  owner.Account.ID,
		Role:          models.RoleDesigner,
	})
	require.NoError(t, err)
	require.Empty(t, link)

	var grant models.BotAccess
	require.NoError(t, db.Where("bot_id = ? AND accessor_email = ?", owner.Bot.ID, "a@x.com").First(&grant).Error)
	require.Equal(t, models.AccessInviteNotAccepted, grant.Status)
}

func TestInviteDuplicatePending(t *testing.T) {
	db := openServiceTestDB(t)
	access, _, accounts := newTestStack(t, db)
	owner := provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	invites, err := NewInviteService(access, newTestTokens(t), notify.NewDispatcher(nil))
	require.NoError(t, err)

	input := InviteInput{
		BotID:         owner.Bot.ID,
		AccessorEmail: "a@x.com",
		InvitedBy:     "owner@acme.test",
		BotAccountID:  owner.Account.ID,
		Role:          models.RoleTester,
	}

	_, err = invites.Invite(context.Background(), input)
	require.NoError(t, err)

	_, err = invites.Invite(context.Background(), input)
	require.ErrorIs(t, err, ErrDuplicateGrant)
}
