package apperrors

import (
	"fmt"
	"net/http"
)

// Kind is the closed set of failure categories the API surfaces. The HTTP
// boundary maps kinds to status codes; domain services never pick statuses
// themselves.
type Kind int

const (
	KindValidation Kind = iota // malformed or missing input
	KindUnauthorized           // missing, invalid or expired credentials
	KindForbidden              // authenticated but a precondition failed
	KindNotFound
	KindBadRequest // state conflict, e.g. duplicate activation
	KindInternal
)

// Stable error codes shared with API clients.
const (
	CodeWrongEmailOrPassword      = "WRONG_EMAIL_OR_PASSWORD"
	CodeAccountNeedsVerification  = "ACCOUNT_NEEDS_VERIFICATION"
	CodeAccountNeedsActivation    = "ACCOUNT_NEEDS_ACTIVATION"
	CodeAccountDeleted            = "ACCOUNT_DELETED"
	CodeEmailAlreadyTaken         = "EMAIL_ALREADY_TAKEN"
	CodeUserNameAlreadyTaken      = "USERNAME_ALREADY_TAKEN"
	CodeAlreadyVerified           = "ACCOUNT_ALREADY_VERIFIED"
	CodeAlreadyActivated          = "ACCOUNT_ALREADY_ACTIVATED"
	CodeAlreadyDeactivated        = "ACCOUNT_ALREADY_DEACTIVATED"
	CodeWrongPassword             = "WRONG_PASSWORD"
	CodeInvalidToken              = "INVALID_TOKEN"
	CodeExpiredToken              = "EXPIRED_TOKEN"
	CodeSessionRevoked            = "SESSION_REVOKED"
	CodeSessionNotFound           = "SESSION_NOT_FOUND"
	CodeAlreadyEnabled            = "ALREADY_ENABLED"
	CodeAlreadyDisabled           = "ALREADY_DISABLED"
	CodeAlreadyHaveValidChallenge = "ALREADY_HAVE_VALID_CODE"
	CodeExpiredOTP                = "EXPIRED_OTP"
	CodeInvalidOTP                = "INVALID_OTP"
	CodeMaxAttemptsReached        = "REACHED_MAXIMUM_WRONG_TRIES"
	CodeBackupCannotEnabled       = "BACKUP_CANNOT_ENABLED"
	CodeBackupNotGenerated        = "NEED_TO_HAVE_GENERATED_FIRST"
	CodePhoneNumberMissing        = "PHONE_NUMBER_MISSING"
	CodeAccountNotFound           = "ACCOUNT_NOT_FOUND"
	CodeSignupRateLimit           = "SIGNUP_RATE_LIMIT"
	CodeValidationFailed          = "VALIDATION_FAILED"
	CodeInternalError             = "INTERNAL_SERVER_ERROR"
)

// AppError is the only error type domain services return across the API
// boundary. Internal causes are kept for logging and never serialized.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// HTTPStatus returns the status code the boundary handler responds with.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, code string, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code string, message string, cause error) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message, cause: cause}
}

func Validation(code string, message string) *AppError {
	return New(KindValidation, code, message)
}

func Unauthorized(code string, message string) *AppError {
	return New(KindUnauthorized, code, message)
}

func Forbidden(code string, message string) *AppError {
	return New(KindForbidden, code, message)
}

func NotFound(code string, message string) *AppError {
	return New(KindNotFound, code, message)
}

func BadRequest(code string, message string) *AppError {
	return New(KindBadRequest, code, message)
}

// Internal hides the cause behind a generic message.
func Internal(cause error) *AppError {
	return Wrap(KindInternal, CodeInternalError, "internal server error", cause)
}
