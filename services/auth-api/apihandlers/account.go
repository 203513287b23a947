package apihandlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
)

func (h *HttpEndpoints) getAccount(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	user, err := h.userService.GetAccount(claims.Subject)
	if err != nil {
		slog.Warn("failed to fetch account", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, user)
}

// deactivateAccount puts the account to sleep, revokes every session and
// mails the activation token needed to wake it up again.
func (h *HttpEndpoints) deactivateAccount(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	if err := h.userService.DeactivateAccount(claims.Subject); err != nil {
		slog.Warn("account deactivation failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("account deactivated", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "Please check your mailbox for the account activation link"})
}

type ActivateAccountReq struct {
	Token string `json:"token"`
}

func (h *HttpEndpoints) activateAccount(c *gin.Context) {
	var req ActivateAccountReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ActivateAccount(req.Token); err != nil {
		slog.Warn("account activation failed", slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{"message": "account activated"})
}

type DeleteAccountReq struct {
	Password string `json:"password"`
}

func (h *HttpEndpoints) deleteAccount(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req DeleteAccountReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.DeleteAccount(claims.Subject, req.Password); err != nil {
		slog.Warn("account deletion failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("account deleted", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "account deleted"})
}
