package apihandlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	mw "github.com/ident-framework/ident-backend/pkg/apihelpers/middlewares"
	usermanagement "github.com/ident-framework/ident-backend/pkg/user-management"
	userTypes "github.com/ident-framework/ident-backend/pkg/user-management/types"
)

func HealthCheckHandle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type HttpEndpoints struct {
	userService *usermanagement.Service
}

func NewHTTPHandler(
	userService *usermanagement.Service,
) *HttpEndpoints {
	return &HttpEndpoints{
		userService: userService,
	}
}

// AddAuthAPI mounts signup, login, token and password endpoints. Routes
// without RequireAuth are public by design; the login verify and send
// endpoints identify the account by the ID the login response handed out.
func (h *HttpEndpoints) AddAuthAPI(rg *gin.RouterGroup) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/signup", mw.RequirePayload(), h.signup)
		authGroup.POST("/login", mw.RequirePayload(), h.login)
		authGroup.POST("/verify-email", mw.RequirePayload(), h.verifyEmail)
		authGroup.POST("/resend-verification", mw.RequirePayload(), h.resendVerificationEmail)

		authGroup.POST("/token/renew", mw.RequirePayload(), h.renewToken)
		authGroup.GET("/token/validate", mw.RequireAuth(h.userService), h.validateToken)
		authGroup.POST("/logout", mw.RequireAuth(h.userService), h.logout)

		authGroup.POST("/password/forgot", mw.RequirePayload(), h.forgotPassword)
		authGroup.POST("/password/reset", mw.RequirePayload(), h.resetPassword)
		authGroup.POST("/password/change", mw.RequireAuth(h.userService), mw.RequirePayload(), h.changePassword)
	}
}

// AddAccountAPI mounts the account state endpoints. Activation is public,
// the account proves itself with the mailed activation token.
func (h *HttpEndpoints) AddAccountAPI(rg *gin.RouterGroup) {
	accountGroup := rg.Group("/account")
	{
		accountGroup.GET("", mw.RequireAuth(h.userService), h.getAccount)
		accountGroup.POST("/deactivate", mw.RequireAuth(h.userService), h.deactivateAccount)
		accountGroup.POST("/activate", mw.RequirePayload(), h.activateAccount)
		accountGroup.DELETE("", mw.RequireAuth(h.userService), mw.RequirePayload(), h.deleteAccount)
	}
}

// AddSecondFactorAPI mounts one route group per second-factor method.
// Enrollment management requires a session; the verify and send endpoints run
// mid-login, before any session exists.
func (h *HttpEndpoints) AddSecondFactorAPI(rg *gin.RouterGroup) {
	tfaGroup := rg.Group("/2fa")

	otpGroup := tfaGroup.Group("/otp")
	{
		otpGroup.POST("/initiate", mw.RequireAuth(h.userService), h.initiateOTP)
		otpGroup.POST("/confirm", mw.RequireAuth(h.userService), mw.RequirePayload(), h.confirmOTP)
		otpGroup.POST("/disable", mw.RequireAuth(h.userService), h.disableOTP)
		otpGroup.POST("/send", mw.RequirePayload(), h.sendLoginChallenge(userTypes.ChallengeTypeOTP))
		otpGroup.POST("/verify", mw.RequirePayload(), h.verifySecondFactor(userTypes.ChallengeTypeOTP))
	}

	smsGroup := tfaGroup.Group("/sms")
	{
		smsGroup.POST("/initiate", mw.RequireAuth(h.userService), h.initiateSMS)
		smsGroup.POST("/confirm", mw.RequireAuth(h.userService), mw.RequirePayload(), h.confirmSMS)
		smsGroup.POST("/disable", mw.RequireAuth(h.userService), h.disableSMS)
		smsGroup.POST("/send", mw.RequirePayload(), h.sendLoginChallenge(userTypes.ChallengeTypeSMS))
		smsGroup.POST("/verify", mw.RequirePayload(), h.verifySecondFactor(userTypes.ChallengeTypeSMS))
	}

	totpGroup := tfaGroup.Group("/totp")
	{
		totpGroup.POST("/initiate", mw.RequireAuth(h.userService), h.initiateTOTP)
		totpGroup.POST("/confirm", mw.RequireAuth(h.userService), mw.RequirePayload(), h.confirmTOTP)
		totpGroup.POST("/disable", mw.RequireAuth(h.userService), mw.RequirePayload(), h.disableTOTP)
		totpGroup.POST("/verify", mw.RequirePayload(), h.verifySecondFactor(userTypes.ChallengeTypeTOTP))
	}

	backupGroup := tfaGroup.Group("/backup")
	{
		backupGroup.POST("/initiate", mw.RequireAuth(h.userService), h.initiateBackupCodes)
		backupGroup.POST("/confirm", mw.RequireAuth(h.userService), mw.RequirePayload(), h.confirmBackupCodes)
		backupGroup.POST("/regenerate", mw.RequireAuth(h.userService), h.regenerateBackupCodes)
		backupGroup.POST("/disable", mw.RequireAuth(h.userService), h.disableBackupCodes)
		backupGroup.POST("/verify", mw.RequirePayload(), h.verifySecondFactor(userTypes.ChallengeTypeBackup))
		backupGroup.POST("/recover", mw.RequirePayload(), h.recoverWithBackupCode)
	}
}

// AddSessionsAPI mounts the session management endpoints.
func (h *HttpEndpoints) AddSessionsAPI(rg *gin.RouterGroup) {
	sessionsGroup := rg.Group("/sessions")
	sessionsGroup.Use(mw.RequireAuth(h.userService))
	{
		sessionsGroup.GET("", h.listSessions)
		sessionsGroup.DELETE("/:sessionID", h.deleteSession)
		sessionsGroup.DELETE("", h.deleteAllSessions)
	}
}
