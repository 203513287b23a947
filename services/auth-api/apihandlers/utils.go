package apihandlers

import (
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apihelpers"
	mw "github.com/ident-framework/ident-backend/pkg/apihelpers/middlewares"
	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/tokens"
)

func randomWait(minTimeSec int, maxTimeSec int) {
	time.Sleep(time.Duration(rand.Intn(maxTimeSec-minTimeSec)+minTimeSec) * time.Second)
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		slog.Error("failed to bind request", slog.String("error", err.Error()))
		apihelpers.SendError(c, apperrors.BadRequest(apperrors.CodeValidationFailed, "invalid request payload"))
		return false
	}
	return true
}

// mustGetClaims fetches the claims RequireAuth put into the context. Routes
// calling this are always mounted behind RequireAuth, a miss here is a
// programming error.
func mustGetClaims(c *gin.Context) (*tokens.Claims, bool) {
	claims, ok := mw.GetValidatedClaims(c)
	if !ok {
		slog.Error("validatedClaims not found in context")
		apihelpers.SendError(c, apperrors.Unauthorized(apperrors.CodeInvalidToken, "no validated token in context"))
		return nil, false
	}
	return claims, true
}

func sendOK(c *gin.Context, result interface{}) {
	apihelpers.SendSuccess(c, http.StatusOK, result)
}
