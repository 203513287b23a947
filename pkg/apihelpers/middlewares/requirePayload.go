package middlewares

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
	"github.com/ident-framework/ident-backend/pkg/apperrors"
)

// RequirePayload blocks post requests that have no payload attached
func RequirePayload() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength == 0 {
			slog.Debug("RequirePayload Middleware: payload missing")
			apihelpers.SendError(c, apperrors.BadRequest(apperrors.CodeValidationFailed, "payload missing"))
			c.Abort()
			return
		}
		c.Next()
	}
}
