package apihandlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
	"github.com/ident-framework/ident-backend/pkg/apperrors"
)

func (h *HttpEndpoints) listSessions(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	sessions, err := h.userService.ListSessions(claims.Subject)
	if err != nil {
		slog.Warn("failed to list sessions", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{
		"sessions":         sessions,
		"currentSessionID": claims.SessionID,
	})
}

func (h *HttpEndpoints) deleteSession(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	sessionID := c.Param("sessionID")
	if sessionID == "" {
		apihelpers.SendError(c, apperrors.BadRequest(apperrors.CodeValidationFailed, "sessionID missing"))
		return
	}

	if err := h.userService.CancelSession(claims.Subject, sessionID); err != nil {
		slog.Warn("failed to delete session",
			slog.String("userID", claims.Subject),
			slog.String("sessionID", sessionID),
			slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("session deleted", slog.String("userID", claims.Subject), slog.String("sessionID", sessionID))
	sendOK(c, gin.H{"message": "session deleted"})
}

// deleteAllSessions logs the user out everywhere, including the session that
// made this request.
func (h *HttpEndpoints) deleteAllSessions(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	if err := h.userService.RevokeAllSessions(claims.Subject); err != nil {
		slog.Warn("failed to revoke sessions", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("all sessions revoked", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "all sessions revoked"})
}
