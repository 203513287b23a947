package apihandlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
)

type ForgotPasswordReq struct {
	Email string `json:"email"`
}

// forgotPassword never tells the caller whether the address exists. The
// response is identical either way, the random wait masks the timing.
func (h *HttpEndpoints) forgotPassword(c *gin.Context) {
	var req ForgotPasswordReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.InitiatePasswordReset(req.Email); err != nil {
		slog.Warn("password reset initiation failed", slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	randomWait(1, 3)
	sendOK(c, gin.H{"message": "If the address is known, a password reset email was sent"})
}

type ResetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (h *HttpEndpoints) resetPassword(c *gin.Context) {
	var req ResetPasswordReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ResetPassword(req.Token, req.NewPassword); err != nil {
		slog.Warn("password reset failed", slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{"message": "password changed"})
}

type ChangePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// changePassword keeps the calling session alive and revokes every other one.
func (h *HttpEndpoints) changePassword(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req ChangePasswordReq
	if !bindJSON(c, &req) {
		return
	}

	err := h.userService.ChangePassword(claims.Subject, req.CurrentPassword, req.NewPassword, claims.SessionID)
	if err != nil {
		slog.Warn("password change failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("password changed", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "password changed"})
}

type RecoverWithBackupCodeReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// recoverWithBackupCode trades one unused backup code for a password reset
// email, for accounts whose second factor device is gone.
func (h *HttpEndpoints) recoverWithBackupCode(c *gin.Context) {
	var req RecoverWithBackupCodeReq
	if !bindJSON(c, &req) {
		return
	}

	blurredEmail, err := h.userService.RecoverWithBackupCode(req.Email, req.Code)
	if err != nil {
		slog.Warn("backup code recovery failed", slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{"message": "A password reset email was sent to " + blurredEmail})
}
