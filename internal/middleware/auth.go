package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/botsmithhq/botsmith/internal/auth"
	"github.com/botsmithhq/botsmith/internal/models"
	"github.com/botsmithhq/botsmith/internal/services"
	"github.com/botsmithhq/botsmith/pkg/errors"
	"github.com/botsmithhq/botsmith/pkg/response"
)

const (
	CtxClaimsKey  = "authClaims"
	CtxEmailKey   = "userEmail"
	CtxAccountKey = "accountID"
	CtxRoleKey    = "botRole"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxEmailKey, claims.Email)
		c.Set(CtxAccountKey, claims.AccountID)

		c.Next()
	}
}

// RequireBotRole guards bot-scoped routes: the caller must hold an active
// grant on the :bot path parameter clearing the required role. Integration
// tokens are confined to the bot they were issued for.
func RequireBotRole(access *services.AccessService, required models.AccessRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		botID := c.Param("bot")
		if botID == "" {
			response.Error(c, errors.NewBadRequest("bot id is required"))
			c.Abort()
			return
		}

		if claims.Integration && claims.BotID != botID {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		grant, err := access.RoleOf(c.Request.Context(), claims.Email, botID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		if !grant.Role.Allows(required) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		c.Set(CtxRoleKey, grant.Role)
		c.Next()
	}
}

// ClaimsFrom extracts the authenticated claims stored by Auth.
func ClaimsFrom(c *gin.Context) (*iauth.Claims, bool) {
	value, exists := c.Get(CtxClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*iauth.Claims)
	return claims, ok && claims != nil
}
