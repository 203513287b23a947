package apihandlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
	usermanagement "github.com/ident-framework/ident-backend/pkg/user-management"
	userTypes "github.com/ident-framework/ident-backend/pkg/user-management/types"
)

type SignupReq struct {
	Email             string `json:"email"`
	UserName          string `json:"userName"`
	Password          string `json:"password"`
	PreferredLanguage string `json:"preferredLanguage"`
}

func (h *HttpEndpoints) signup(c *gin.Context) {
	var req SignupReq
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Signup(usermanagement.SignupRequest{
		Email:             req.Email,
		UserName:          req.UserName,
		Password:          req.Password,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		slog.Warn("signup failed", slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("new account created", slog.String("userID", user.ID.Hex()))
	sendOK(c, gin.H{
		"user":    user,
		"message": "Please check your mailbox to verify your email address",
	})
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *HttpEndpoints) login(c *gin.Context) {
	var req LoginReq
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.userService.Login(req.Email, req.Password)
	if err != nil {
		slog.Warn("login failed", slog.String("email", req.Email), slog.String("error", err.Error()))
		randomWait(5, 10)
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, result)
}

type VerifySecondFactorReq struct {
	AccountID string `json:"accountId"`
	Code      string `json:"code"`
}

// verifySecondFactor finishes a pending two-step login with the method the
// route is mounted for.
func (h *HttpEndpoints) verifySecondFactor(method userTypes.ChallengeType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req VerifySecondFactorReq
		if !bindJSON(c, &req) {
			return
		}

		result, err := h.userService.VerifySecondFactor(req.AccountID, method, req.Code)
		if err != nil {
			slog.Warn("second factor verification failed",
				slog.String("accountID", req.AccountID),
				slog.String("method", string(method)),
				slog.String("error", err.Error()))
			randomWait(5, 10)
			apihelpers.SendError(c, err)
			return
		}

		sendOK(c, result)
	}
}

type SendLoginChallengeReq struct {
	AccountID string `json:"accountId"`
}

// sendLoginChallenge re-issues the login code for an account mid-login, e.g.
// when the first delivery never arrived.
func (h *HttpEndpoints) sendLoginChallenge(method userTypes.ChallengeType) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SendLoginChallengeReq
		if !bindJSON(c, &req) {
			return
		}

		message, err := h.userService.SendLoginChallenge(req.AccountID, method)
		if err != nil {
			slog.Warn("sending login challenge failed",
				slog.String("accountID", req.AccountID),
				slog.String("method", string(method)),
				slog.String("error", err.Error()))
			randomWait(5, 10)
			apihelpers.SendError(c, err)
			return
		}

		sendOK(c, gin.H{"message": message})
	}
}

type RenewTokenReq struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *HttpEndpoints) renewToken(c *gin.Context) {
	var req RenewTokenReq
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.userService.RenewSession(req.RefreshToken)
	if err != nil {
		slog.Warn("token renewal failed", slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, pair)
}

// validateToken reports whether the presented access token still belongs to
// a live session. RequireAuth already did the check, reaching the handler is
// the answer.
func (h *HttpEndpoints) validateToken(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	sendOK(c, gin.H{
		"accountId": claims.Subject,
		"sessionID": claims.SessionID,
		"expiresAt": claims.ExpiresAt.Unix(),
	})
}

func (h *HttpEndpoints) logout(c *gin.Context) {
	claims, ok := mustGetClaims(c)
	if !ok {
		return
	}

	if err := h.userService.CancelSession(claims.Subject, claims.SessionID); err != nil {
		slog.Warn("logout failed", slog.String("userID", claims.Subject), slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	slog.Info("user logged out", slog.String("userID", claims.Subject))
	sendOK(c, gin.H{"message": "logged out"})
}

type VerifyEmailReq struct {
	Token string `json:"token"`
}

func (h *HttpEndpoints) verifyEmail(c *gin.Context) {
	var req VerifyEmailReq
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.VerifyEmail(req.Token); err != nil {
		slog.Warn("email verification failed", slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	sendOK(c, gin.H{"message": "email verified"})
}

type ResendVerificationReq struct {
	Email string `json:"email"`
}

func (h *HttpEndpoints) resendVerificationEmail(c *gin.Context) {
	var req ResendVerificationReq
	if !bindJSON(c, &req) {
		return
	}

	// Unknown addresses are answered the same way as known ones.
	if err := h.userService.SendVerificationEmail(req.Email); err != nil {
		slog.Warn("resend verification failed", slog.String("error", err.Error()))
		apihelpers.SendError(c, err)
		return
	}

	randomWait(1, 3)
	sendOK(c, gin.H{"message": "Please check your mailbox to verify your email address"})
}
