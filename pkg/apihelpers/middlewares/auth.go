package middlewares

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/tokens"
	usermanagement "github.com/ident-framework/ident-backend/pkg/user-management"
)

const (
	HeaderAuthorization = "Authorization"

	// Context keys set by RequireAuth.
	ContextKeyToken  = "token"
	ContextKeyClaims = "validatedClaims"
)

// RequireAuth extracts the bearer token, validates it against the session
// registry and puts the claims into the request context. A token whose
// session was revoked fails here even when its signature is still valid.
func RequireAuth(authService *usermanagement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractToken(c)
		if err != nil {
			slog.Warn("no Authorization token found")
			apihelpers.SendError(c, apperrors.Unauthorized(apperrors.CodeInvalidToken, err.Error()))
			c.Abort()
			return
		}

		claims, err := authService.ValidateAccessToken(token)
		if err != nil {
			slog.Warn("token validation failed", slog.String("error", err.Error()))
			apihelpers.SendError(c, err)
			c.Abort()
			return
		}
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyClaims, claims)
	}
}

func GetValidatedClaims(c *gin.Context) (*tokens.Claims, bool) {
	value, ok := c.Get(ContextKeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*tokens.Claims)
	return claims, ok
}

func extractToken(c *gin.Context) (string, error) {
	req := c.Request

	var token string
	tokenHeaders, ok := req.Header[HeaderAuthorization]
	if ok && len(tokenHeaders) > 0 {
		token = tokenHeaders[0]
		token = strings.TrimPrefix(token, "Bearer ")
		if len(token) == 0 {
			return token, errors.New("no token found in Authorization header")
		}
	} else {
		return token, errors.New("no Authorization header found")
	}
	return token, nil
}
