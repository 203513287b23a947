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

// createCodeChallenge generates a fresh OTP code, stores its hash as a
// pending challenge and returns the plain code for dispatch. An unexpired
// pending code of the same type blocks a new one.
func (s *Service) createCodeChallenge(userID string, t types.ChallengeType, isTemp bool) (string, error) {
	existing, err := s.store.GetChallenge(userID, t)
	if err == nil {
		if !existing.IsExpired() {
			return "", apperrors.BadRequest(apperrors.CodeAlreadyHaveValidChallenge, "a valid code was already sent")
		}
		// TTL eviction has not caught up yet.
		if err := s.store.DeleteChallenge(userID, t); err != nil && !errors.Is(err, db.ErrNotFound) {
			return "", apperrors.Internal(err)
		}
	} else if !errors.Is(err, db.ErrNotFound) {
		return "", apperrors.Internal(err)
	}

	code, err := utils.GenerateOTPCode()
	if err != nil {
		return "", apperrors.Internal(err)
	}

	expiresAt := time.Now().Add(s.cfg.ChallengeTTL)
	challenge := types.Challenge{
		UserID:    userID,
		Type:      t,
		Secret:    utils.HashChallengeCode(userID, code),
		IsTemp:    isTemp,
		CreatedAt: time.Now(),
		ExpiresAt: &expiresAt,
	}
	if err := s.store.CreateChallenge(challenge); err != nil {
		return "", apperrors.Internal(err)
	}
	return code, nil
}

// checkCodeChallenge verifies a submitted code against the stored pending
// challenge. A missing or expired challenge reads as an expired code. The
// attempt cap is checked before the code is compared, so once the cap is
// hit even the right code no longer passes.
func (s *Service) checkCodeChallenge(userID string, t types.ChallengeType, code string) (types.Challenge, error) {
	challenge, err := s.store.GetChallenge(userID, t)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return types.Challenge{}, apperrors.Forbidden(apperrors.CodeExpiredOTP, "the code is expired, please request a new one")
		}
		return types.Challenge{}, apperrors.Internal(err)
	}
	if challenge.IsExpired() {
		if err := s.store.DeleteChallenge(userID, t); err != nil && !errors.Is(err, db.ErrNotFound) {
			slog.Error("failed to delete expired challenge", slog.String("userID", userID), slog.String("error", err.Error()))
		}
		return types.Challenge{}, apperrors.Forbidden(apperrors.CodeExpiredOTP, "the code is expired, please request a new one")
	}
	if err := s.enforceAttemptCap(userID, t, challenge, false); err != nil {
		return types.Challenge{}, err
	}

	if challenge.Secret != utils.HashChallengeCode(userID, code) {
		return types.Challenge{}, s.registerFailedAttempt(userID, t)
	}
	return challenge, nil
}

// enforceAttemptCap rejects a verification attempt once the wrong-code
// counter has reached the cap, before the submitted code is even looked at.
// Hitting the cap removes short-lived challenges; long-lived material (an
// enabled authenticator secret, a backup batch) only has its counter reset,
// deleting it would lock the account out of its own second factor.
func (s *Service) enforceAttemptCap(userID string, t types.ChallengeType, challenge types.Challenge, longLived bool) error {
	if challenge.FailedAttempts < MAX_CHALLENGE_ATTEMPTS {
		return nil
	}
	if longLived {
		if err := s.store.ResetChallengeAttempts(userID, t); err != nil && !errors.Is(err, db.ErrNotFound) {
			slog.Error("failed to reset challenge attempts", slog.String("userID", userID), slog.String("error", err.Error()))
		}
	} else {
		if err := s.store.DeleteChallenge(userID, t); err != nil && !errors.Is(err, db.ErrNotFound) {
			slog.Error("failed to delete challenge after max attempts", slog.String("userID", userID), slog.String("error", err.Error()))
		}
	}
	return apperrors.Forbidden(apperrors.CodeMaxAttemptsReached, "maximum number of wrong tries reached")
}

// registerFailedAttempt counts a wrong code. The cap itself fires on the
// next attempt, in enforceAttemptCap.
func (s *Service) registerFailedAttempt(userID string, t types.ChallengeType) error {
	if _, err := s.store.IncrementChallengeAttempts(userID, t); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.Forbidden(apperrors.CodeExpiredOTP, "the code is expired, please request a new one")
		}
		return apperrors.Internal(err)
	}
	return apperrors.Forbidden(apperrors.CodeInvalidOTP, "the code is wrong")
}

// setSecondFactorFlag flips one of the enabled flags on the user document.
func (s *Service) setSecondFactorFlag(userID string, t types.ChallengeType, enabled bool) error {
	var flagField, atField string
	switch t {
	case types.ChallengeTypeOTP:
		flagField, atField = "secondFactors.otpEnabled", "secondFactors.otpEnabledAt"
	case types.ChallengeTypeSMS:
		flagField, atField = "secondFactors.smsEnabled", "secondFactors.smsEnabledAt"
	case types.ChallengeTypeTOTP:
		flagField, atField = "secondFactors.totpEnabled", "secondFactors.totpEnabledAt"
	case types.ChallengeTypeBackup:
		flagField, atField = "secondFactors.backupEnabled", "secondFactors.backupEnabledAt"
	default:
		return apperrors.Internal(errors.New("unknown challenge type"))
	}

	set := map[string]interface{}{flagField: enabled}
	if enabled {
		set[atField] = time.Now().Unix()
	}
	if err := s.store.UpdateUser(userID, set); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}
