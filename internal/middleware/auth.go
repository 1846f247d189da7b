package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/aldidev/snipurl/internal/auth"
	"github.com/aldidev/snipurl/pkg/errors"
	"github.com/aldidev/snipurl/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// Auth enforces access-token authentication on protected routes.
func Auth(tokens *iauth.TokenService) gin.HandlerFunc {
	return bearerAuth(tokens.ValidateAccessToken)
}

// RefreshAuth accepts only refresh tokens. It guards the token refresh
// endpoint, where an access token must not be usable.
func RefreshAuth(tokens *iauth.TokenService) gin.HandlerFunc {
	return bearerAuth(tokens.ValidateRefreshToken)
}

func bearerAuth(validate func(string) (*iauth.Claims, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		claims, err := validate(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(authz[7:]), true
}

// UserID extracts the authenticated user id set by Auth.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(CtxUserIDKey)
	return id, id != ""
}
