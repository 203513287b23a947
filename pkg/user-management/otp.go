package usermanagement

import (
	"log/slog"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

// InitiateOTP starts email-OTP enrollment: a code is mailed and must be
// confirmed before the factor gates login.
func (s *Service) InitiateOTP(userID string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if user.SecondFactors.OtpEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "otp is already enabled")
	}

	code, err := s.createCodeChallenge(userID, types.ChallengeTypeOTP, true)
	if err != nil {
		return err
	}
	return s.dispatchOTPEmail(user, code)
}

// ConfirmOTP finishes enrollment with the mailed code.
func (s *Service) ConfirmOTP(userID string, code string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if user.SecondFactors.OtpEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "otp is already enabled")
	}

	if _, err := s.checkCodeChallenge(userID, types.ChallengeTypeOTP, code); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeOTP); err != nil {
		slog.Error("failed to delete confirmed otp challenge", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	return s.setSecondFactorFlag(userID, types.ChallengeTypeOTP, true)
}

// DisableOTP turns the factor off. Any pending code is discarded.
func (s *Service) DisableOTP(userID string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if !user.SecondFactors.OtpEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "otp is not enabled")
	}

	if err := s.setSecondFactorFlag(userID, types.ChallengeTypeOTP, false); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeOTP); err != nil {
		slog.Debug("no pending otp challenge to delete", slog.String("userID", userID))
	}
	return nil
}

// SendLoginOTP mails a login code for an account with email-OTP enabled. An
// unexpired earlier code is left in place and not re-sent.
func (s *Service) SendLoginOTP(user types.User) error {
	code, err := s.createCodeChallenge(user.ID.Hex(), types.ChallengeTypeOTP, false)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.CodeAlreadyHaveValidChallenge {
			return nil
		}
		return err
	}
	return s.dispatchOTPEmail(user, code)
}

// VerifyLoginOTP checks a login code. The challenge is consumed on success.
func (s *Service) VerifyLoginOTP(user types.User, code string) error {
	userID := user.ID.Hex()
	if _, err := s.checkCodeChallenge(userID, types.ChallengeTypeOTP, code); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeOTP); err != nil {
		slog.Error("failed to delete used otp challenge", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	return nil
}

func (s *Service) dispatchOTPEmail(user types.User, code string) error {
	err := s.sendEmail(user.Account.Email, MESSAGE_TYPE_OTP_CODE, user.Account.PreferredLanguage, map[string]string{
		"code":     code,
		"userName": user.Account.UserName,
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}
