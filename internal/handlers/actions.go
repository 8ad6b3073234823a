package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botsmithhq/botsmith/internal/actions"
	"github.com/botsmithhq/botsmith/pkg/response"
)

// ActionHandler serves the webhook action server surface.
type ActionHandler struct {
	executor *actions.Executor
}

// NewActionHandler constructs the handler.
func NewActionHandler(executor *actions.Executor) *ActionHandler {
	return &ActionHandler{executor: executor}
}

// Webhook executes the named action for the bot and returns slot events plus
// the utterance to show the user.
func (h *ActionHandler) Webhook(c *gin.Context) {
	var req actions.WebhookRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.executor.Execute(requestContext(c), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
