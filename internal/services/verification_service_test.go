package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/notify"
	"github.com/botsmithhq/botsmith/pkg/crypto"
)

func TestConfirmEmailFlow(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	tokens := newTestTokens(t)
	verification, err := NewVerificationService(db, users, tokens, notify.NewDispatcher(nil),
		WithVerificationEmail(true))
	require.NoError(t, err)

	token, err := tokens.IssueEmailToken("owner@acme.test", auth.PurposeVerify)
	require.NoError(t, err)

	email, err := verification.ConfirmEmail(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "owner@acme.test", email)

	confirmed, err := users.IsEmailConfirmed(context.Background(), "owner@acme.test")
	require.NoError(t, err)
	require.True(t, confirmed)

	// Confirming twice is rejected.
	_, err = verification.ConfirmEmail(context.Background(), token)
	require.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirmEmailRejectsWrongPurpose(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	tokens := newTestTokens(t)
	verification, err := NewVerificationService(db, users, tokens, notify.NewDispatcher(nil))
	require.NoError(t, err)

	resetToken, err := tokens.IssueEmailToken("owner@acme.test", auth.PurposeReset)
	require.NoError(t, err)

	_, err = verification.ConfirmEmail(context.Background(), resetToken)
	require.Error(t, err)
}

func TestSendConfirmationLinkGates(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	tokens := newTestTokens(t)

	disabled, err := NewVerificationService(db, users, tokens, notify.NewDispatcher(nil))
	require.NoError(t, err)
	require.ErrorIs(t, disabled.SendConfirmationLink(context.Background(), "owner@acme.test"), ErrEmailDisabled)

	enabled, err := NewVerificationService(db, users, tokens, notify.NewDispatcher(nil),
		WithVerificationEmail(true))
	require.NoError(t, err)

	require.NoError(t, enabled.SendConfirmationLink(context.Background(), "owner@acme.test"))
	require.ErrorIs(t, enabled.SendConfirmationLink(context.Background(), "ghost@x.com"), ErrUserNotFound)

	// Once confirmed, resending is rejected.
	token, err := tokens.IssueEmailToken("owner@acme.test", auth.PurposeVerify)
	require.NoError(t, err)
	_, err = enabled.ConfirmEmail(context.Background(), token)
	require.NoError(t, err)
	require.ErrorIs(t, enabled.SendConfirmationLink(context.Background(), "owner@acme.test"), ErrAlreadyConfirmed)
}

func TestSendResetLinkRequiresVerifiedEmail(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	tokens := newTestTokens(t)
	verification, err := NewVerificationService(db, users, tokens, notify.NewDispatcher(nil),
		WithVerificationEmail(true))
	require.NoError(t, err)

	require.ErrorIs(t, verification.SendResetLink(context.Background(), "owner@acme.test"), ErrEmailNotVerified)

	token, err := tokens.IssueEmailToken("owner@acme.test", auth.PurposeVerify)
	require.NoError(t, err)
	_, err = verification.ConfirmEmail(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, verification.SendResetLink(context.Background(), "owner@acme.test"))
}

func TestOverwritePassword(t *testing.T) {
	db := openServiceTestDB(t)
	_, users, accounts := newTestStack(t, db)
	provisionTestAccount(t, accounts, "acme", "owner@acme.test")

	tokens := newTestTokens(t)
	verification, err := NewVerificationService(db, users, tokens, notify.NewDispatcher(nil))
	require.NoError(t, err)

	resetToken, err := tokens.IssueEmailToken("owner@acme.test", auth.PurposeReset)
	require.NoError(t, err)

	email, err := verification.OverwritePassword(context.Background(), resetToken, "Fresh789!")
	require.NoError(t, err)
	require.Equal(t, "owner@acme.test", email)

	user, err := users.GetUser(context.Background(), "owner@acme.test")
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(user.Password, "Fresh789!"))

	// An invite token cannot reset passwords.
	inviteToken, err := tokens.IssueEmailToken("owner@acme.test", auth.PurposeInvite)
	require.NoError(t, err)
	_, err = verification.OverwritePassword(context.Background(), inviteToken, "Another1!")
	require.Error(t, err)
}
