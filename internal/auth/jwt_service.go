package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL defines the fallback validity period for access tokens.
const DefaultAccessTokenTTL = 24 * time.Hour

// DefaultEmailTokenTTL defines the fallback validity period for single-purpose
// email tokens (verification, password reset, invite links).
const DefaultEmailTokenTTL = 72 * time.Hour

// Email token purposes. Decoding checks the purpose so that a verification
// token cannot be replayed as a password-reset token.
const (
	PurposeVerify = "verify"
	PurposeReset  = "reset"
	PurposeInvite = "invite"
)

// ErrInvalidToken reports an undecodable, forged, or mismatched token.
var ErrInvalidToken = errors.New("auth: invalid token")

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	EmailTokenTTL  time.Duration
	Clock          func() time.Time
}

// Claims represents the custom claims embedded in issued access tokens.
type Claims struct {
	Email       string `json:"email"`
	AccountID   string `json:"account"`
	BotID       string `json:"bot,omitempty"`
	Integration bool   `json:"integration,omitempty"`
	jwt.RegisteredClaims
}

// emailClaims carries the payload of a single-purpose email token.
type emailClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// AccessTokenInput holds the parameters used when generating a new access token.
type AccessTokenInput struct {
	Email       string
	AccountID   string
	BotID       string
	Integration bool
}

// JWTService issues and validates the signed tokens used across the platform:
// login access tokens, bot integration tokens, and email tokens.
type JWTService struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	emailTTL time.Duration
	now      func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	emailTTL := cfg.EmailTokenTTL
	if emailTTL <= 0 {
		emailTTL = DefaultEmailTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		ttl:      ttl,
		emailTTL: emailTTL,
		now:      now,
	}, nil
}

// GenerateAccessToken issues a signed JWT containing the supplied claims.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, error) {
	if input.Email == "" {
		return "", errors.New("jwt: email is required")
	}

	now := s.now()
	claims := &Claims{
		Email:       input.Email,
		AccountID:   input.AccountID,
		BotID:       input.BotID,
		Integration: input.Integration,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.Email,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates a signed JWT, returning the application claims.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := s.parse(tokenString, &claims); err != nil {
		return nil, err
	}

	if claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

// IssueEmailToken signs a single-purpose token embedding the email address.
func (s *JWTService) IssueEmailToken(email, purpose string) (string, error) {
	if email == "" {
		return "", errors.New("jwt: email is required")
	}
	if purpose == "" {
		return "", errors.New("jwt: purpose is required")
	}

	now := s.now()
	claims := &emailClaims{
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.emailTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign email token: %w", err)
	}

	return signed, nil
}

// DecodeEmailToken verifies the token signature and purpose and returns the
// embedded email address.
func (s *JWTService) DecodeEmailToken(tokenString, purpose string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}

	var claims emailClaims
	if err := s.parse(tokenString, &claims); err != nil {
		return "", err
	}

	if claims.Email == "" || claims.Purpose != purpose {
		return "", ErrInvalidToken
	}

	return claims.Email, nil
}

func (s *JWTService) parse(tokenString string, claims jwt.Claims) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	_, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return ErrInvalidToken
	}

	if s.issuer != "" {
		issuer, err := claims.GetIssuer()
		if err != nil || issuer != s.issuer {
			return ErrInvalidToken
		}
	}

	return nil
}
