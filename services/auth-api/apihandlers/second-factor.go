package apihandlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
)

type ConfirmCodeReq struct {
	Code string `json:"code"`
}

func (h *HttpEndpoints) initiateOTP(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	if err := h.userService.InitiateOTP(claims.Subject); err != nil {
		slog.Warn("OTP enrollment failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{"message": "Please check your mailbox for the OTP code"})
}

func (h *HttpEndpoints) confirmOTP(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req ConfirmCodeReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ConfirmOTP(claims.Subject, req.Code); err != nil {
		slog.Warn("OTP confirmation failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("OTP second factor enabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "OTP second factor enabled"})
}

func (h *HttpEndpoints) disableOTP(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	if err := h.userService.DisableOTP(claims.Subject); err != nil {
		slog.Warn("OTP disabling failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("OTP second factor disabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "OTP second factor disabled"})
}

type InitiateSMSReq struct {
	Phone string `json:"phone"`
}

// initiateSMS accepts an optional phone number. When given it replaces the
// number on the account before the code is sent.
func (h *HttpEndpoints) initiateSMS(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req InitiateSMSReq
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	if err := h.userService.InitiateSMS(claims.Subject, req.Phone); err != nil {
		slog.Warn("SMS enrollment failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{"message": "Please check your phone for the OTP code"})
}

func (h *HttpEndpoints) confirmSMS(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req ConfirmCodeReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ConfirmSMS(claims.Subject, req.Code); err != nil {
		slog.Warn("SMS confirmation failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("SMS second factor enabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "SMS second factor enabled"})
}

func (h *HttpEndpoints) disableSMS(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	if err := h.userService.DisableSMS(claims.Subject); err != nil {
		slog.Warn("SMS disabling failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("SMS second factor disabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "SMS second factor disabled"})
}

// initiateTOTP hands out the shared secret and the provisioning URL exactly
// once. The secret is only stored encrypted.
func (h *HttpEndpoints) initiateTOTP(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	enrollment, err := h.userService.InitiateTOTP(claims.Subject)
	if err != nil {
		slog.Warn("TOTP enrollment failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, enrollment)
}

func (h *HttpEndpoints) confirmTOTP(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req ConfirmCodeReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ConfirmTOTP(claims.Subject, req.Code); err != nil {
		slog.Warn("TOTP confirmation failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("TOTP second factor enabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "authenticator app second factor enabled"})
}

// disableTOTP requires a currently valid code from the authenticator app.
func (h *HttpEndpoints) disableTOTP(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req ConfirmCodeReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.DisableTOTP(claims.Subject, req.Code); err != nil {
		slog.Warn("TOTP disabling failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("TOTP second factor disabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "authenticator app second factor disabled"})
}

// generateBackupCodes returns the plain codes exactly once; only their
// hashes are kept. The batch stays pending until one code is confirmed.
func (h *HttpEndpoints) initiateBackupCodes(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	codes, err := h.userService.InitiateBackupCodes(claims.Subject)
	if err != nil {
		slog.Warn("backup code generation failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{"codes": codes})
}

func (h *HttpEndpoints) confirmBackupCodes(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	var req ConfirmCodeReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ConfirmBackupCodes(claims.Subject, req.Code); err != nil {
		slog.Warn("backup code confirmation failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("backup codes enabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "backup codes enabled"})
}

func (h *HttpEndpoints) regenerateBackupCodes(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	codes, err := h.userService.RegenerateBackupCodes(claims.Subject)
	if err != nil {
		slog.Warn("backup code regeneration failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("backup codes regenerated", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"codes": codes})
}

func (h *HttpEndpoints) disableBackupCodes(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	if err := h.userService.DisableBackupCodes(claims.Subject); err != nil {
		slog.Warn("backup code disabling failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("backup codes disabled", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "backup codes disabled"})
}
