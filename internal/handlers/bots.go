package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/internal/services"
	"github.com/botsmithhq/botsmith/pkg/response"
)

// BotHandler serves bot CRUD under the caller's account.
type BotHandler struct {
	accounts *services.AccountService
	access   *services.AccessService
}

// NewBotHandler constructs the handler.
func NewBotHandler(accounts *services.AccountService, access *services.AccessService) *BotHandler {
	return &BotHandler{accounts: accounts, access: access}
}

type botRequest struct {
	Name string `json:"name" validate:"required"`
}

// Create adds a bot to the caller's account and grants them admin on it.
func (h *BotHandler) Create(c *gin.Context) {
	var req botRequest
	if !bindAndValidate(c, &req) {
		return
	}

	ctx := requestContext(c)
	bot, err := h.accounts.AddBot(ctx, req.Name, currentAccountID(c), currentEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if _, err := h.access.Grant(ctx, services.GrantInput{
		BotID:         bot.ID,
		AccessorEmail: currentEmail(c),
		GrantedBy:     currentEmail(c),
		BotAccountID:  bot.AccountID,
		Role:          models.RoleAdmin,
		Status:        models.AccessActive,
	}); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Bot created", bot)
}

// List returns the caller's accessible bots partitioned into owned and shared.
func (h *BotHandler) List(c *gin.Context) {
	bots, err := h.access.BotsForUser(requestContext(c), currentAccountID(c), currentEmail(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, bots)
}

// Get returns a single bot the caller collaborates on.
func (h *BotHandler) Get(c *gin.Context) {
	bot, err := h.accounts.GetBot(requestContext(c), c.Param("bot"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, bot)
}

// Rename updates the bot's name.
func (h *BotHandler) Rename(c *gin.Context) {
	var req botRequest
	if !bindAndValidate(c, &req) {
		return
	}

	bot, err := h.accounts.RenameBot(requestContext(c), c.Param("bot"), "", req.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Bot renamed", bot)
}

// Delete removes the bot, its content, and every collaborator grant.
func (h *BotHandler) Delete(c *gin.Context) {
	if err := h.accounts.DeleteBot(requestContext(c), c.Param("bot")); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Bot deleted", nil)
}
