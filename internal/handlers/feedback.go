package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/botsmithhq/botsmith/internal/services"
	apperrors "github.com/botsmithhq/botsmith/pkg/errors"
	"github.com/botsmithhq/botsmith/pkg/response"
)

// FeedbackHandler serves product feedback and per-user UI preferences.
type FeedbackHandler struct {
	feedback *services.FeedbackService
}

// NewFeedbackHandler constructs the handler.
func NewFeedbackHandler(feedback *services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

type feedbackRequest struct {
	Rating  float64 `json:"rating" validate:"required"`
	Scale   float64 `json:"scale"`
	Comment string  `json:"feedback"`
}

// Submit records a rating for the logged-in user.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req feedbackRequest
	if !bindAndValidate(c, &req) {
		return
	}

	feedback, err := h.feedback.AddFeedback(requestContext(c), currentEmail(c), req.Rating, req.Scale, req.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Thanks for the feedback!", feedback)
}

// SaveUIConfig stores the caller's interface preferences verbatim.
func (h *FeedbackHandler) SaveUIConfig(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		response.Error(c, apperrors.NewBadRequest("invalid JSON payload"))
		return
	}

	if err := h.feedback.SaveUIConfig(requestContext(c), currentEmail(c), datatypes.JSON(raw)); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Config saved", nil)
}

// GetUIConfig returns the caller's stored interface preferences.
func (h *FeedbackHandler) GetUIConfig(c *gin.Context) {
	config, err := h.feedback.GetUIConfig(requestContext(c), currentEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "application/json", config)
}
