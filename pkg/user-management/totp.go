package usermanagement

import (
	"errors"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/user-management/crypt"
	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

// TOTPEnrollment is handed to the client once, on initiation. The secret
// never leaves the store again after that.
type TOTPEnrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// InitiateTOTP generates an authenticator secret and stores it encrypted as
// a temporary challenge. The account must confirm with a generated code
// before the factor gates login.
func (s *Service) InitiateTOTP(userID string) (TOTPEnrollment, error) {
	user, err := s.GetAccount(userID)
	if err != nil {
		return TOTPEnrollment{}, err
	}
	if user.SecondFactors.TotpEnabled {
		return TOTPEnrollment{}, apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "totp is already enabled")
	}

	// A stale unconfirmed secret is replaced.
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeTOTP); err != nil && !errors.Is(err, db.ErrNotFound) {
		return TOTPEnrollment{}, apperrors.Internal(err)
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.cfg.TOTPIssuer,
		AccountName: user.Account.Email,
	})
	if err != nil {
		return TOTPEnrollment{}, apperrors.Internal(err)
	}

	encrypted, err := crypt.EncryptString(key.Secret(), s.cfg.TOTPEncryptionKey)
	if err != nil {
		return TOTPEnrollment{}, apperrors.Internal(err)
	}

	expiresAt := time.Now().Add(s.cfg.ChallengeTTL)
	challenge := types.Challenge{
		UserID:    userID,
		Type:      types.ChallengeTypeTOTP,
		Secret:    encrypted,
		IsTemp:    true,
		CreatedAt: time.Now(),
		ExpiresAt: &expiresAt,
	}
	if err := s.store.CreateChallenge(challenge); err != nil {
		return TOTPEnrollment{}, apperrors.Internal(err)
	}

	return TOTPEnrollment{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, nil
}

// ConfirmTOTP proves the authenticator was set up and promotes the secret
// to permanent material.
func (s *Service) ConfirmTOTP(userID string, code string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if user.SecondFactors.TotpEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "totp is already enabled")
	}

	if err := s.checkTOTPCode(userID, code, false); err != nil {
		return err
	}
	if err := s.store.ConfirmChallenge(userID, types.ChallengeTypeTOTP); err != nil {
		return apperrors.Internal(err)
	}
	return s.setSecondFactorFlag(userID, types.ChallengeTypeTOTP, true)
}

// DisableTOTP turns the factor off and discards the secret. The current
// authenticator code is required.
func (s *Service) DisableTOTP(userID string, code string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if !user.SecondFactors.TotpEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "totp is not enabled")
	}

	if err := s.checkTOTPCode(userID, code, true); err != nil {
		return err
	}
	if err := s.setSecondFactorFlag(userID, types.ChallengeTypeTOTP, false); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeTOTP); err != nil && !errors.Is(err, db.ErrNotFound) {
		return apperrors.Internal(err)
	}
	return nil
}

// VerifyLoginTOTP checks an authenticator code during login.
func (s *Service) VerifyLoginTOTP(user types.User, code string) error {
	return s.checkTOTPCode(user.ID.Hex(), code, true)
}

// checkTOTPCode validates a code against the stored secret. For the
// confirmed secret a wrong-code streak resets the counter at the cap
// instead of deleting the material.
func (s *Service) checkTOTPCode(userID string, code string, longLived bool) error {
	challenge, err := s.store.GetChallenge(userID, types.ChallengeTypeTOTP)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.Forbidden(apperrors.CodeExpiredOTP, "no authenticator is set up, please start over")
		}
		return apperrors.Internal(err)
	}
	if challenge.IsExpired() {
		if err := s.store.DeleteChallenge(userID, types.ChallengeTypeTOTP); err != nil && !errors.Is(err, db.ErrNotFound) {
			return apperrors.Internal(err)
		}
		return apperrors.Forbidden(apperrors.CodeExpiredOTP, "the enrollment expired, please start over")
	}

	if err := s.enforceAttemptCap(userID, types.ChallengeTypeTOTP, challenge, longLived); err != nil {
		return err
	}

	secret, err := crypt.DecryptString(challenge.Secret, s.cfg.TOTPEncryptionKey)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !totp.Validate(code, secret) {
		return s.registerFailedAttempt(userID, types.ChallengeTypeTOTP)
	}
	if challenge.FailedAttempts > 0 {
		if err := s.store.ResetChallengeAttempts(userID, types.ChallengeTypeTOTP); err != nil && !errors.Is(err, db.ErrNotFound) {
			return apperrors.Internal(err)
		}
	}
	return nil
}
