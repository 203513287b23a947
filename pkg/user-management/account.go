package usermanagement

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/tokens"
	"github.com/ident-framework/ident-backend/pkg/user-management/pwhash"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
	"github.com/ident-framework/ident-backend/pkg/user-management/utils"
)

type SignupRequest struct {
	Email             string `json:"email"`
	UserName          string `json:"userName"`
	Password          string `json:"password"`
	PreferredLanguage string `json:"preferredLanguage"`
}

// Signup registers a new account and dispatches the verification mail. The
// account starts unverified; login is blocked until VerifyEmail ran.
func (s *Service) Signup(req SignupRequest) (types.User, error) {
	req.Email = utils.SanitizeEmail(req.Email)

	if !utils.CheckEmailFormat(req.Email) {
		return types.User{}, apperrors.Validation(apperrors.CodeValidationFailed, "email address is invalid")
	}
	if !utils.CheckUserNameFormat(req.UserName) {
		return types.User{}, apperrors.Validation(apperrors.CodeValidationFailed, "user name is invalid")
	}
	if !utils.CheckPasswordFormat(req.Password) {
		return types.User{}, apperrors.Validation(apperrors.CodeValidationFailed, "password does not meet the requirements")
	}
	if req.PreferredLanguage != "" && !utils.CheckLanguageCode(req.PreferredLanguage) {
		return types.User{}, apperrors.Validation(apperrors.CodeValidationFailed, "preferred language is invalid")
	}

	if s.cfg.MaxSignupsPerWindow > 0 {
		count, err := s.store.CountRecentlyCreatedUsers(s.cfg.SignupRateWindow)
		if err != nil {
			return types.User{}, apperrors.Internal(err)
		}
		if count >= s.cfg.MaxSignupsPerWindow {
			slog.Warn("signup rate limit reached", slog.Int64("count", count))
			return types.User{}, apperrors.BadRequest(apperrors.CodeSignupRateLimit, "signups are temporarily paused, please try again later")
		}
	}

	passwordHash, err := pwhash.HashPassword(req.Password)
	if err != nil {
		return types.User{}, apperrors.Internal(err)
	}

	user := utils.InitNewUser(req.Email, req.UserName, passwordHash, req.PreferredLanguage)
	userID, err := s.store.CreateUser(user)
	if err != nil {
		var dupErr *db.DuplicateKeyError
		if errors.As(err, &dupErr) {
			switch dupErr.Field {
			case "account.email":
				return types.User{}, apperrors.BadRequest(apperrors.CodeEmailAlreadyTaken, "email address is already taken")
			case "account.userName":
				return types.User{}, apperrors.BadRequest(apperrors.CodeUserNameAlreadyTaken, "user name is already taken")
			}
			return types.User{}, apperrors.BadRequest(apperrors.CodeValidationFailed, "account already exists")
		}
		return types.User{}, apperrors.Internal(err)
	}

	created, err := s.store.GetUserByID(userID)
	if err != nil {
		return types.User{}, apperrors.Internal(err)
	}

	if err := s.dispatchVerificationEmail(created); err != nil {
		slog.Error("failed to send verification email", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	return created, nil
}

// SendVerificationEmail re-sends the verification mail for an account that
// has not confirmed its address yet.
func (s *Service) SendVerificationEmail(email string) error {
	email = utils.SanitizeEmail(email)
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Do not leak which addresses exist.
			return nil
		}
		return apperrors.Internal(err)
	}
	if user.Status.IsVerified {
		return apperrors.BadRequest(apperrors.CodeAlreadyVerified, "account is already verified")
	}
	return s.dispatchVerificationEmail(user)
}

func (s *Service) dispatchVerificationEmail(user types.User) error {
	token, err := s.tokens.Issue(tokens.KindVerification, user.ID.Hex(), user.Account.Role, "")
	if err != nil {
		return err
	}
	return s.sendEmail(user.Account.Email, MESSAGE_TYPE_VERIFY_EMAIL, user.Account.PreferredLanguage, map[string]string{
		"token":    token,
		"userName": user.Account.UserName,
	})
}

// VerifyEmail confirms the account's address with the token from the
// verification mail.
func (s *Service) VerifyEmail(token string) error {
	claims, err := s.tokens.Verify(tokens.KindVerification, token)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return apperrors.Unauthorized(apperrors.CodeExpiredToken, "verification token expired")
		}
		return apperrors.Unauthorized(apperrors.CodeInvalidToken, "verification token invalid")
	}

	user, err := s.store.GetUserByID(claims.Subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.Unauthorized(apperrors.CodeInvalidToken, "verification token invalid")
		}
		return apperrors.Internal(err)
	}
	if user.Status.IsVerified {
		return apperrors.BadRequest(apperrors.CodeAlreadyVerified, "account is already verified")
	}

	err = s.store.UpdateUser(user.ID.Hex(), map[string]interface{}{
		"status.isVerified": true,
		"status.verifiedAt": time.Now().Unix(),
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// InitiatePasswordReset mails a reset link. The token is stored on the
// account so it can only be used once; requesting a new one supersedes any
// earlier token. Unknown addresses are not distinguishable from known ones.
func (s *Service) InitiatePasswordReset(email string) error {
	email = utils.SanitizeEmail(email)
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return apperrors.Internal(err)
	}
	if user.Status.IsDeleted {
		return nil
	}

	token, err := s.tokens.Issue(tokens.KindReset, user.ID.Hex(), user.Account.Role, "")
	if err != nil {
		return apperrors.Internal(err)
	}
	err = s.store.UpdateUser(user.ID.Hex(), map[string]interface{}{
		"account.resetToken": token,
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	err = s.sendEmail(user.Account.Email, MESSAGE_TYPE_PASSWORD_RESET, user.Account.PreferredLanguage, map[string]string{
		"token":    token,
		"userName": user.Account.UserName,
	})
	if err != nil {
		slog.Error("failed to send password reset email", slog.String("userID", user.ID.Hex()), slog.String("error", err.Error()))
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password. All
// sessions are revoked so stolen tokens die with the old password.
func (s *Service) ResetPassword(token string, newPassword string) error {
	claims, err := s.tokens.Verify(tokens.KindReset, token)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return apperrors.Unauthorized(apperrors.CodeExpiredToken, "reset token expired")
		}
		return apperrors.Unauthorized(apperrors.CodeInvalidToken, "reset token invalid")
	}
	if !utils.CheckPasswordFormat(newPassword) {
		return apperrors.Validation(apperrors.CodeValidationFailed, "password does not meet the requirements")
	}

	user, err := s.store.GetUserByID(claims.Subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.Unauthorized(apperrors.CodeInvalidToken, "reset token invalid")
		}
		return apperrors.Internal(err)
	}
	if user.Account.ResetToken != token {
		// Superseded by a newer request or already used.
		return apperrors.Unauthorized(apperrors.CodeInvalidToken, "reset token invalid")
	}

	passwordHash, err := pwhash.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal(err)
	}
	err = s.store.UpdateUser(user.ID.Hex(), map[string]interface{}{
		"account.password":              passwordHash,
		"account.resetToken":            "",
		"timestamps.lastPasswordChange": time.Now().Unix(),
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.RevokeAllSessions(user.ID.Hex()); err != nil {
		slog.Error("failed to revoke sessions after password reset", slog.String("userID", user.ID.Hex()), slog.String("error", err.Error()))
	}
	s.notifyPasswordChanged(user)
	return nil
}

// ChangePassword sets a new password for a logged-in user who can present
// the current one. Other sessions are revoked; the current session stays.
func (s *Service) ChangePassword(userID string, currentPassword string, newPassword string, keepSessionID string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound(apperrors.CodeAccountNotFound, "account not found")
		}
		return apperrors.Internal(err)
	}

	match, err := s.comparePassword(user.Account.Password, currentPassword)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !match {
		return apperrors.Unauthorized(apperrors.CodeWrongPassword, "current password is wrong")
	}
	if !utils.CheckPasswordFormat(newPassword) {
		return apperrors.Validation(apperrors.CodeValidationFailed, "password does not meet the requirements")
	}

	passwordHash, err := pwhash.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal(err)
	}
	err = s.store.UpdateUser(userID, map[string]interface{}{
		"account.password":              passwordHash,
		"timestamps.lastPasswordChange": time.Now().Unix(),
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	sessions, err := s.store.ListSessionsForUser(userID)
	if err != nil {
		slog.Error("failed to list sessions after password change", slog.String("userID", userID), slog.String("error", err.Error()))
	} else {
		for _, session := range sessions {
			if session.SessionID == keepSessionID {
				continue
			}
			if _, err := s.store.DeleteSession(userID, session.SessionID); err != nil {
				slog.Error("failed to delete session", slog.String("sessionID", session.SessionID), slog.String("error", err.Error()))
			}
		}
	}
	s.notifyPasswordChanged(user)
	return nil
}

func (s *Service) notifyPasswordChanged(user types.User) {
	err := s.sendEmail(user.Account.Email, MESSAGE_TYPE_PASSWORD_CHANGED, user.Account.PreferredLanguage, map[string]string{
		"userName": user.Account.UserName,
	})
	if err != nil {
		slog.Error("failed to send password changed notification", slog.String("userID", user.ID.Hex()), slog.String("error", err.Error()))
	}
}

// DeactivateAccount parks the account: all sessions are revoked and login
// refuses until the mailed activation token is redeemed.
func (s *Service) DeactivateAccount(userID string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound(apperrors.CodeAccountNotFound, "account not found")
		}
		return apperrors.Internal(err)
	}
	if !user.Status.IsActive {
		return apperrors.BadRequest(apperrors.CodeAlreadyDeactivated, "account is already deactivated")
	}

	token, err := s.tokens.Issue(tokens.KindActivation, userID, user.Account.Role, "")
	if err != nil {
		return apperrors.Internal(err)
	}
	err = s.store.UpdateUser(userID, map[string]interface{}{
		"status.isActive":              false,
		"status.activeStatusChangedAt": time.Now().Unix(),
		"account.activationToken":      token,
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.RevokeAllSessions(userID); err != nil {
		slog.Error("failed to revoke sessions on deactivation", slog.String("userID", userID), slog.String("error", err.Error()))
	}

	err = s.sendEmail(user.Account.Email, MESSAGE_TYPE_ACCOUNT_ACTIVATE, user.Account.PreferredLanguage, map[string]string{
		"token":    token,
		"userName": user.Account.UserName,
	})
	if err != nil {
		slog.Error("failed to send activation email", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	return nil
}

// ActivateAccount redeems the activation token mailed on deactivation.
func (s *Service) ActivateAccount(token string) error {
	claims, err := s.tokens.Verify(tokens.KindActivation, token)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return apperrors.Unauthorized(apperrors.CodeExpiredToken, "activation token expired")
		}
		return apperrors.Unauthorized(apperrors.CodeInvalidToken, "activation token invalid")
	}

	user, err := s.store.GetUserByID(claims.Subject)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.Unauthorized(apperrors.CodeInvalidToken, "activation token invalid")
		}
		return apperrors.Internal(err)
	}
	if user.Status.IsActive {
		return apperrors.BadRequest(apperrors.CodeAlreadyActivated, "account is already activated")
	}
	if user.Account.ActivationToken != token {
		return apperrors.Unauthorized(apperrors.CodeInvalidToken, "activation token invalid")
	}

	err = s.store.UpdateUser(user.ID.Hex(), map[string]interface{}{
		"status.isActive":              true,
		"status.activeStatusChangedAt": time.Now().Unix(),
		"account.activationToken":      "",
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// DeleteAccount soft-deletes the account after a password check. Sessions
// and all second-factor material are removed immediately.
func (s *Service) DeleteAccount(userID string, password string) error {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.NotFound(apperrors.CodeAccountNotFound, "account not found")
		}
		return apperrors.Internal(err)
	}

	match, err := s.comparePassword(user.Account.Password, password)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !match {
		return apperrors.Unauthorized(apperrors.CodeWrongPassword, "password is wrong")
	}

	err = s.store.UpdateUser(userID, map[string]interface{}{
		"status.isDeleted": true,
		"status.deletedAt": time.Now().Unix(),
	})
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.RevokeAllSessions(userID); err != nil {
		slog.Error("failed to revoke sessions on account deletion", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	if _, err := s.store.DeleteChallengesForUser(userID); err != nil {
		slog.Error("failed to delete challenges on account deletion", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	return nil
}

// GetAccount returns the user document for the profile endpoint.
func (s *Service) GetAccount(userID string) (types.User, error) {
	user, err := s.store.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return types.User{}, apperrors.NotFound(apperrors.CodeAccountNotFound, "account not found")
		}
		return types.User{}, apperrors.Internal(err)
	}
	return user, nil
}

func (s *Service) comparePassword(encodedHash string, password string) (bool, error) {
	if encodedHash == "" {
		return false, nil
	}
	return pwhash.ComparePasswordWithHash(encodedHash, password)
}
