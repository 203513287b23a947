package usermanagement

import (
	"log/slog"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
	"github.com/ident-framework/ident-backend/pkg/user-management/utils"
)

// InitiateSMS starts SMS-OTP enrollment. A phone number can be supplied
// here; otherwise the one on the account is used.
func (s *Service) InitiateSMS(userID string, phone string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if user.SecondFactors.SmsEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "sms is already enabled")
	}

	if phone != "" {
		phone = utils.SanitizePhoneNumber(phone)
		if !utils.CheckPhoneNumberFormat(phone) {
			return apperrors.Validation(apperrors.CodeValidationFailed, "phone number is invalid")
		}
		if err := s.store.UpdateUser(userID, map[string]interface{}{
			"account.phone": phone,
		}); err != nil {
			return apperrors.Internal(err)
		}
		user.Account.Phone = phone
	}
	if user.Account.Phone == "" {
		return apperrors.BadRequest(apperrors.CodePhoneNumberMissing, "no phone number on the account")
	}

	code, err := s.createCodeChallenge(userID, types.ChallengeTypeSMS, true)
	if err != nil {
		return err
	}
	return s.dispatchOTPSMS(user, code)
}

// ConfirmSMS finishes enrollment with the texted code.
func (s *Service) ConfirmSMS(userID string, code string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if user.SecondFactors.SmsEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "sms is already enabled")
	}

	if _, err := s.checkCodeChallenge(userID, types.ChallengeTypeSMS, code); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeSMS); err != nil {
		slog.Error("failed to delete confirmed sms challenge", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	return s.setSecondFactorFlag(userID, types.ChallengeTypeSMS, true)
}

func (s *Service) DisableSMS(userID string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if !user.SecondFactors.SmsEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "sms is not enabled")
	}

	if err := s.setSecondFactorFlag(userID, types.ChallengeTypeSMS, false); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeSMS); err != nil {
		slog.Debug("no pending sms challenge to delete", slog.String("userID", userID))
	}
	return nil
}

// SendLoginSMS texts a login code for an account with SMS-OTP enabled.
func (s *Service) SendLoginSMS(user types.User) error {
	if user.Account.Phone == "" {
		return apperrors.BadRequest(apperrors.CodePhoneNumberMissing, "no phone number on the account")
	}
	code, err := s.createCodeChallenge(user.ID.Hex(), types.ChallengeTypeSMS, false)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.CodeAlreadyHaveValidChallenge {
			return nil
		}
		return err
	}
	return s.dispatchOTPSMS(user, code)
}

// VerifyLoginSMS checks a texted login code. The challenge is consumed on
// success.
func (s *Service) VerifyLoginSMS(user types.User, code string) error {
	userID := user.ID.Hex()
	if _, err := s.checkCodeChallenge(userID, types.ChallengeTypeSMS, code); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeSMS); err != nil {
		slog.Error("failed to delete used sms challenge", slog.String("userID", userID), slog.String("error", err.Error()))
	}
	return nil
}

func (s *Service) dispatchOTPSMS(user types.User, code string) error {
	err := s.sendSMS(user.Account.Phone, MESSAGE_TYPE_OTP_CODE, user.Account.PreferredLanguage, map[string]string{
		"code": code,
	})
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}
