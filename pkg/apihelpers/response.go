package apihelpers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
)

// Envelope is the uniform response body of the API. Success responses carry
// result, error responses carry code and message.
type Envelope struct {
	Success bool        `json:"success"`
	Status  int         `json:"status"`
	Code    string      `json:"code,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Message string      `json:"message,omitempty"`
}

// SendSuccess writes a success envelope with the given result payload.
func SendSuccess(c *gin.Context, status int, result interface{}) {
	c.JSON(status, Envelope{
		Success: true,
		Status:  status,
		Result:  result,
	})
}

// SendError maps an error to the envelope. Domain errors keep their code and
// message, everything else is reported as an internal error without leaking
// the cause to the client.
func SendError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.Internal(err)
	}
	status := appErr.HTTPStatus()
	if status == http.StatusInternalServerError {
		slog.Error("internal error", slog.String("error", err.Error()))
	}
	c.JSON(status, Envelope{
		Success: false,
		Status:  status,
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}
