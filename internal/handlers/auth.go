package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/auth/sso"
	"github.com/botsmithhq/botsmith/internal/services"
	"github.com/botsmithhq/botsmith/pkg/crypto"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
	"github.com/botsmithhq/botsmith/pkg/response"
)

// AuthHandler serves login, SSO discovery, and the email token flows.
type AuthHandler struct {
	authn        *auth.Authenticator
	verification *services.VerificationService
	providers    *sso.Registry
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authn *auth.Authenticator, verification *services.VerificationService, providers *sso.Registry) *AuthHandler {
	return &AuthHandler{authn: authn, verification: verification, providers: providers}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates with email and password and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	token, user, err := h.authn.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

// IntegrationToken issues a bot-scoped token for machine callers. The route is
// guarded by the admin role middleware.
func (h *AuthHandler) IntegrationToken(c *gin.Context) {
	botID := c.Param("bot")

	token, err := h.authn.IssueIntegrationToken(requestContext(c), botID, currentAccountID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK,
		"Keep this token secret; it grants API access to this bot until it expires",
		gin.H{"access_token": token, "token_type": "bearer"})
}

// ListSSOProviders returns the providers a client may offer on its login page.
func (h *AuthHandler) ListSSOProviders(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"providers": h.providers.EnabledProviders()})
}

// SSORedirect answers with the provider's authorization URL.
func (h *AuthHandler) SSORedirect(c *gin.Context) {
	provider := c.Param("provider")

	state := c.Query("state")
	if state == "" {
		generated, err := crypto.GenerateToken(16)
		if err != nil {
			response.Error(c, err)
			return
		}
		state = generated
	}

	url, err := h.providers.RedirectURL(provider, state)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"redirect_url": url, "state": state})
}

// ConfirmEmail consumes a verification token from the mailed link.
func (h *AuthHandler) ConfirmEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, apperrors.NewBadRequest("token is required"))
		return
	}

	email, err := h.verification.ConfirmEmail(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Email verified", gin.H{"email": email})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResendConfirmation mails a fresh verification link.
func (h *AuthHandler) ResendConfirmation(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.verification.SendConfirmationLink(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Confirmation link sent", nil)
}

// SendResetLink mails a password reset link.
func (h *AuthHandler) SendResetLink(c *gin.Context) {
	var req emailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.verification.SendResetLink(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Reset link sent", nil)
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword consumes a reset token and overwrites the password.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	email, err := h.verification.OverwritePassword(requestContext(c), req.Token, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Password updated", gin.H{"email": email})
}
