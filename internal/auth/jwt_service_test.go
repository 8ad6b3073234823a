package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, clock func() time.Time) *JWTService {
	t.Helper()

	svc, err := NewJWTService(JWTConfig{
		Secret: "unit-test-secret",
		Issuer: "botsmith-test",
		Clock:  clock,
	})
	require.NoError(t, err)
	return svc
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		Email:     "user@x.com",
		AccountID: "acct-1",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "user@x.com", claims.Email)
	require.Equal(t, "acct-1", claims.AccountID)
	require.False(t, claims.Integration)
}

func TestAccessTokenRejectsTampering(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.GenerateAccessToken(AccessTokenInput{Email: "user@x.com"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token + "x")
	require.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewJWTService(JWTConfig{Secret: "different-secret"})
	require.NoError(t, err)
	_, err = other.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAccessTokenExpiry(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return current })

	token, err := svc.GenerateAccessToken(AccessTokenInput{Email: "user@x.com"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	require.NoError(t, err)

	current = current.Add(DefaultAccessTokenTTL + time.Minute)
	_, err = svc.ValidateAccessToken(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmailTokenPurposeBinding(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.IssueEmailToken("user@x.com", PurposeVerify)
	require.NoError(t, err)

	email, err := svc.DecodeEmailToken(token, PurposeVerify)
	require.NoError(t, err)
	require.Equal(t, "user@x.com", email)

	// The same token is useless for other purposes.
	_, err = svc.DecodeEmailToken(token, PurposeReset)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.DecodeEmailToken(token, PurposeInvite)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestEmailTokenExpiry(t *testing.T) {
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, func() time.Time { return current })

	token, err := svc.IssueEmailToken("user@x.com", PurposeInvite)
	require.NoError(t, err)

	current = current.Add(DefaultEmailTokenTTL + time.Minute)
	_, err = svc.DecodeEmailToken(token, PurposeInvite)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIntegrationClaims(t *testing.T) {
	svc := newTestService(t, nil)

	token, err := svc.GenerateAccessToken(AccessTokenInput{
		Email:       "bot-1@integration.local",
		AccountID:   "acct-1",
		BotID:       "bot-1",
		Integration: true,
	})
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	require.True(t, claims.Integration)
	require.Equal(t, "bot-1", claims.BotID)
}
