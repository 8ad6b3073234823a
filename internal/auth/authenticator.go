package auth

import (
	"context"
	"errors"

	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/pkg/crypto"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
	"github.com/botsmithhq/botsmith/pkg/metrics"
)

// UserGate is the credential/verification gate consumed by login. It is
// satisfied by services.UserService.
type UserGate interface {
	RequireVerifiedUser(ctx context.Context, email string) (*models.User, error)
	GetIntegrationUser(ctx context.Context, botID, accountID string) (*models.User, error)
}

// Authenticator performs password login and integration-token issuance.
type Authenticator struct {
	gate   UserGate
	tokens *JWTService
}

// NewAuthenticator constructs an Authenticator with the provided dependencies.
func NewAuthenticator(gate UserGate, tokens *JWTService) (*Authenticator, error) {
	if gate == nil {
		return nil, errors.New("authenticator: user gate is required")
	}
	if tokens == nil {
		return nil, errors.New("authenticator: token service is required")
	}
	return &Authenticator{gate: gate, tokens: tokens}, nil
}

// Login verifies the password behind the verification gate and issues an
// access token. Gate failures (unverified mail, inactive user or account)
// surface unchanged; a bad password maps to ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := a.gate.RequireVerifiedUser(ctx, email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return "", nil, err
	}

	if !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return "", nil, apperrors.ErrInvalidCredentials
	}

	token, err := a.tokens.GenerateAccessToken(AccessTokenInput{
		Email:     user.Email,
		AccountID: user.AccountID,
	})
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return "", nil, err
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return token, user, nil
}

// IssueIntegrationToken provisions (or reuses) the bot's integration user and
// issues a bot-scoped access token for machine callers.
func (a *Authenticator) IssueIntegrationToken(ctx context.Context, botID, accountID string) (string, error) {
	user, err := a.gate.GetIntegrationUser(ctx, botID, accountID)
	if err != nil {
		return "", err
	}

	return a.tokens.GenerateAccessToken(AccessTokenInput{
		Email:       user.Email,
		AccountID:   user.AccountID,
		BotID:       botID,
		Integration: true,
	})
}
