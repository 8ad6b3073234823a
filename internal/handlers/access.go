package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/internal/services"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
	"github.com/botsmithhq/botsmith/pkg/metrics"
	"github.com/botsmithhq/botsmith/pkg/response"
)

// AccessHandler serves the collaborator lifecycle on a bot.
type AccessHandler struct {
	access  *services.AccessService
	invites *services.InviteService
}

// NewAccessHandler constructs the handler.
func NewAccessHandler(access *services.AccessService, invites *services.InviteService) *AccessHandler {
	return &AccessHandler{access: access, invites: invites}
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin designer tester"`
}

// Invite records a pending grant and, when email is enabled, mails the accept link.
func (h *AccessHandler) Invite(c *gin.Context) {
	var req inviteRequest
	if !bindAndValidate(c, &req) {
		return
	}

	link, err := h.invites.Invite(requestContext(c), services.InviteInput{
		BotID:         c.Param("bot"),
		AccessorEmail: req.Email,
		InvitedBy:     currentEmail(c),
		BotAccountID:  currentAccountID(c),
		Role:          models.AccessRole(req.Role),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	metrics.InvitesIssued.WithLabelValues(req.Role).Inc()

	data := gin.H{}
	if link != "" {
		data["accept_link"] = link
	}
	response.SuccessWithMessage(c, http.StatusCreated, "Invite recorded", data)
}

// Accept consumes an invite token and activates the pending grant.
func (h *AccessHandler) Accept(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, apperrors.NewBadRequest("token is required"))
		return
	}

	acceptance, err := h.access.AcceptInvite(requestContext(c), token, c.Param("bot"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invites.NotifyAccepted(acceptance)

	response.SuccessWithMessage(c, http.StatusOK, "Invite accepted", acceptance)
}

type updateAccessRequest struct {
	Email  string `json:"email" validate:"required,email"`
	Role   string `json:"role" validate:"required,oneof=admin designer tester"`
	Status string `json:"status" validate:"required,oneof=invite_not_accepted active inactive deleted"`
}

// Update changes an existing collaborator's role or status.
func (h *AccessHandler) Update(c *gin.Context) {
	var req updateAccessRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.access.UpdateGrant(requestContext(c), services.UpdateGrantInput{
		BotID:         c.Param("bot"),
		AccessorEmail: req.Email,
		GrantedBy:     currentEmail(c),
		Role:          models.AccessRole(req.Role),
		Status:        models.AccessStatus(req.Status),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Access updated", nil)
}

type revokeAccessRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Revoke marks the collaborator's grant deleted.
func (h *AccessHandler) Revoke(c *gin.Context) {
	var req revokeAccessRequest
	if !bindAndValidate(c, &req) {
		return
	}

	err := h.access.Revoke(requestContext(c), services.RevokeInput{
		BotID:         c.Param("bot"),
		AccessorEmail: req.Email,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Access revoked", nil)
}

// List returns every non-deleted grant on the bot.
func (h *AccessHandler) List(c *gin.Context) {
	grants, err := h.access.ListCollaborators(requestContext(c), c.Param("bot"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"collaborators": grants})
}
