package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botsmithhq/botsmith/internal/services"
	"github.com/botsmithhq/botsmith/pkg/metrics"
	"github.com/botsmithhq/botsmith/pkg/response"
)

// AccountHandler serves signup and account-level operations.
type AccountHandler struct {
	accounts     *services.AccountService
	users        *services.UserService
	access       *services.AccessService
	verification *services.VerificationService
	emailEnabled bool
}

// NewAccountHandler constructs the handler.
func NewAccountHandler(accounts *services.AccountService, users *services.UserService, access *services.AccessService, verification *services.VerificationService, emailEnabled bool) *AccountHandler {
	return &AccountHandler{
		accounts:     accounts,
		users:        users,
		access:       access,
		verification: verification,
		emailEnabled: emailEnabled,
	}
}

type registrationRequest struct {
	AccountName string `json:"account" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name"`
	Password    string `json:"password" validate:"required,min=8"`
}

// Register provisions a new account with its starter bot and owner user.
func (h *AccountHandler) Register(c *gin.Context) {
	var req registrationRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.ProvisionAccount(requestContext(c), services.ProvisionInput{
		AccountName: req.AccountName,
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Password:    req.Password,
	})
	if err != nil {
		metrics.AccountsProvisioned.WithLabelValues("rollback").Inc()
		response.Error(c, err)
		return
	}
	metrics.AccountsProvisioned.WithLabelValues("success").Inc()

	message := "Account registered"
	if h.emailEnabled {
		if err := h.verification.SendConfirmationLink(requestContext(c), result.User.Email); err == nil {
			message = "Account registered; a confirmation link is on its way"
		}
	}

	response.SuccessWithMessage(c, http.StatusCreated, message, gin.H{
		"account": result.Account,
		"bot":     result.Bot,
		"user":    result.User,
	})
}

// Profile returns the logged-in user, their account, and accessible bots.
func (h *AccountHandler) Profile(c *gin.Context) {
	profile, err := h.users.CompleteProfile(requestContext(c), currentEmail(c), h.access)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, profile)
}

// Delete soft-deletes the caller's account and cascades its bots.
func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.accounts.DeleteAccount(requestContext(c), currentAccountID(c)); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Account deleted", nil)
}
