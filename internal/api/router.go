package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	iauth "github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/auth/sso"
	"github.com/botsmithhq/botsmith/internal/handlers"
	"github.com/botsmithhq/botsmith/internal/middleware"
	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/internal/services"
)

// Dependencies bundles everything the router needs. All fields are required
// except SSO, which may be an empty registry.
type Dependencies struct {
	JWT          *iauth.JWTService
	Authn        *iauth.Authenticator
	SSO          *sso.Registry
	Access       *services.AccessService
	Accounts     *services.AccountService
	Users        *services.UserService
	Invites      *services.InviteService
	Verification *services.VerificationService
	Feedback     *services.FeedbackService
	EmailEnabled bool
}

// NewRouter builds the Gin engine, wires middleware, and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	switch {
	case deps.JWT == nil:
		return nil, fmt.Errorf("router: jwt service must be provided")
	case deps.Authn == nil:
		return nil, fmt.Errorf("router: authenticator must be provided")
	case deps.Access == nil, deps.Accounts == nil, deps.Users == nil:
		return nil, fmt.Errorf("router: core services must be provided")
	case deps.Invites == nil, deps.Verification == nil, deps.Feedback == nil:
		return nil, fmt.Errorf("router: workflow services must be provided")
	}
	if deps.SSO == nil {
		deps.SSO = sso.NewRegistry(sso.Credentials{}, sso.Credentials{}, sso.Credentials{})
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.NoRoute(middleware.NotFoundHandler)

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(deps.Authn, deps.Verification, deps.SSO)
	accountHandler := handlers.NewAccountHandler(deps.Accounts, deps.Users, deps.Access, deps.Verification, deps.EmailEnabled)
	botHandler := handlers.NewBotHandler(deps.Accounts, deps.Access)
	accessHandler := handlers.NewAccessHandler(deps.Access, deps.Invites)
	feedbackHandler := handlers.NewFeedbackHandler(deps.Feedback)

	// Public surface: login, SSO discovery, token-bearing email links, signup.
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/sso/providers", authHandler.ListSSOProviders)
		auth.GET("/sso/redirect/:provider", authHandler.SSORedirect)
		auth.GET("/verify", authHandler.ConfirmEmail)
		auth.POST("/verify/resend", authHandler.ResendConfirmation)
		auth.POST("/password/reset-link", authHandler.SendResetLink)
		auth.POST("/password/reset", authHandler.ResetPassword)
	}
	r.POST("/api/account/registration", accountHandler.Register)
	// The token inside the link authenticates invite acceptance.
	r.GET("/api/bots/:bot/access/accept", accessHandler.Accept)

	requireAuth := middleware.Auth(deps.JWT)
	requireAdmin := middleware.RequireBotRole(deps.Access, models.RoleAdmin)
	requireTester := middleware.RequireBotRole(deps.Access, models.RoleTester)

	api := r.Group("/api")
	api.Use(requireAuth)

	account := api.Group("/account")
	{
		account.GET("", accountHandler.Profile)
		account.DELETE("", accountHandler.Delete)

		account.POST("/bot", botHandler.Create)
		account.GET("/bot", botHandler.List)
		account.PUT("/bot/:bot", requireAdmin, botHandler.Rename)
		account.DELETE("/bot/:bot", requireAdmin, botHandler.Delete)

		account.POST("/feedback", feedbackHandler.Submit)
		account.GET("/config/ui", feedbackHandler.GetUIConfig)
		account.PUT("/config/ui", feedbackHandler.SaveUIConfig)
	}

	bots := api.Group("/bots/:bot")
	{
		bots.POST("/access/invite", requireAdmin, accessHandler.Invite)
		bots.GET("/access", requireAdmin, accessHandler.List)
		bots.PUT("/access", requireAdmin, accessHandler.Update)
		bots.DELETE("/access", requireAdmin, accessHandler.Revoke)

		bots.POST("/token/integration", requireAdmin, authHandler.IntegrationToken)

		// Read-only bot details for any collaborator.
		bots.GET("", requireTester, botHandler.Get)
	}

	return r, nil
}
