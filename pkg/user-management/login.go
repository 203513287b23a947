package usermanagement

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
	"github.com/ident-framework/ident-backend/pkg/user-management/utils"
)

// LoginResult is what a successful password check produces. With no second
// factor enabled Token carries the session pair; otherwise Methods lists the
// outstanding factors and, when an OTP or SMS code was dispatched, Message
// tells the caller where to look.
type LoginResult struct {
	Token     *types.TokenPair      `json:"token,omitempty"`
	User      *types.User           `json:"user,omitempty"`
	AccountID string                `json:"accountId,omitempty"`
	Methods   []types.ChallengeType `json:"secondFactorMethods,omitempty"`
	Message   string                `json:"message,omitempty"`
}

// Login checks the credentials and either mints a session or hands back the
// second-factor methods the account requires. Wrong email and wrong password
// are indistinguishable to the caller.
func (s *Service) Login(email string, password string) (LoginResult, error) {
	email = utils.SanitizeEmail(email)

	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return LoginResult{}, apperrors.Unauthorized(apperrors.CodeWrongEmailOrPassword, "wrong email or password")
		}
		return LoginResult{}, apperrors.Internal(err)
	}

	match, err := s.comparePassword(user.Account.Password, password)
	if err != nil {
		return LoginResult{}, apperrors.Internal(err)
	}
	if !match {
		return LoginResult{}, apperrors.Unauthorized(apperrors.CodeWrongEmailOrPassword, "wrong email or password")
	}

	if err := checkAccountUsable(user); err != nil {
		return LoginResult{}, err
	}

	methods := user.EnabledLoginMethods()
	if len(methods) == 0 {
		pair, err := s.MintSession(user.ID.Hex(), user.Account.Role)
		if err != nil {
			return LoginResult{}, err
		}
		s.touchLastLogin(user.ID.Hex())
		return LoginResult{
			Token: &pair,
			User:  &user,
		}, nil
	}

	result := LoginResult{
		AccountID: user.ID.Hex(),
		Methods:   methods,
	}

	// The highest-priority method gets its code dispatched right away.
	switch methods[0] {
	case types.ChallengeTypeOTP:
		if err := s.SendLoginOTP(user); err != nil {
			return LoginResult{}, err
		}
		result.Message = "Please check your mailbox for the OTP code"
	case types.ChallengeTypeSMS:
		if err := s.SendLoginSMS(user); err != nil {
			return LoginResult{}, err
		}
		result.Message = "Please check your phone for the OTP code"
	case types.ChallengeTypeTOTP:
		// Nothing to dispatch, the authenticator app has the code.
	}
	return result, nil
}

// SendLoginChallenge (re)dispatches the login code for OTP or SMS, e.g. when
// the first mail never arrived. A still-valid pending challenge is reused
// silently, so this cannot be used to churn codes.
func (s *Service) SendLoginChallenge(accountID string, method types.ChallengeType) (string, error) {
	user, err := s.store.GetUserByID(accountID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperrors.Unauthorized(apperrors.CodeWrongEmailOrPassword, "unknown account")
		}
		return "", apperrors.Internal(err)
	}
	if err := checkAccountUsable(user); err != nil {
		return "", err
	}

	switch method {
	case types.ChallengeTypeOTP:
		if !user.SecondFactors.OtpEnabled {
			return "", apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "otp is not enabled")
		}
		if err := s.SendLoginOTP(user); err != nil {
			return "", err
		}
		return "Please check your mailbox for the OTP code", nil
	case types.ChallengeTypeSMS:
		if !user.SecondFactors.SmsEnabled {
			return "", apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "sms is not enabled")
		}
		if err := s.SendLoginSMS(user); err != nil {
			return "", err
		}
		return "Please check your phone for the OTP code", nil
	default:
		return "", apperrors.Validation(apperrors.CodeValidationFailed, "method has no code to send")
	}
}

// VerifySecondFactor finishes a two-step login. The method must be one of
// the enabled login methods or the backup-code recovery path; only then is
// the submitted code checked at all.
func (s *Service) VerifySecondFactor(accountID string, method types.ChallengeType, code string) (LoginResult, error) {
	user, err := s.store.GetUserByID(accountID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return LoginResult{}, apperrors.Unauthorized(apperrors.CodeWrongEmailOrPassword, "unknown account")
		}
		return LoginResult{}, apperrors.Internal(err)
	}
	if err := checkAccountUsable(user); err != nil {
		return LoginResult{}, err
	}

	switch method {
	case types.ChallengeTypeOTP:
		if !user.SecondFactors.OtpEnabled {
			return LoginResult{}, apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "otp is not enabled")
		}
		err = s.VerifyLoginOTP(user, code)
	case types.ChallengeTypeSMS:
		if !user.SecondFactors.SmsEnabled {
			return LoginResult{}, apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "sms is not enabled")
		}
		err = s.VerifyLoginSMS(user, code)
	case types.ChallengeTypeTOTP:
		if !user.SecondFactors.TotpEnabled {
			return LoginResult{}, apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "totp is not enabled")
		}
		err = s.VerifyLoginTOTP(user, code)
	case types.ChallengeTypeBackup:
		if !user.SecondFactors.BackupEnabled {
			return LoginResult{}, apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "backup codes are not enabled")
		}
		err = s.VerifyLoginBackupCode(user, code)
	default:
		return LoginResult{}, apperrors.Validation(apperrors.CodeValidationFailed, "unknown second-factor method")
	}
	if err != nil {
		return LoginResult{}, err
	}

	pair, err := s.MintSession(user.ID.Hex(), user.Account.Role)
	if err != nil {
		return LoginResult{}, err
	}
	s.touchLastLogin(user.ID.Hex())
	return LoginResult{
		Token: &pair,
		User:  &user,
	}, nil
}

// checkAccountUsable gates login on account state, most specific first.
// checkAccountUsable gates login on the account state. Checked in order:
// an unverified account always reports verification first, deletion last.
func checkAccountUsable(user types.User) error {
	if !user.Status.IsVerified {
		return apperrors.Forbidden(apperrors.CodeAccountNeedsVerification, "account email is not verified")
	}
	if !user.Status.IsActive {
		return apperrors.Forbidden(apperrors.CodeAccountNeedsActivation, "account is deactivated")
	}
	if user.Status.IsDeleted {
		return apperrors.Forbidden(apperrors.CodeAccountDeleted, "account is deleted")
	}
	return nil
}

func (s *Service) touchLastLogin(userID string) {
	err := s.store.UpdateUser(userID, map[string]interface{}{
		"timestamps.lastLogin": time.Now().Unix(),
	})
	if err != nil {
		slog.Error("failed to update last login timestamp", slog.String("userID", userID), slog.String("error", err.Error()))
	}
}
