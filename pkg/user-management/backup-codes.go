package usermanagement

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/tokens"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
	"github.com/ident-framework/ident-backend/pkg/user-management/utils"
)

// InitiateBackupCodes generates a batch of single-use recovery codes. The
// plain codes are returned exactly once; only their hashes are stored.
// Backup codes require at least one real second factor, they are a recovery
// path, not a factor of their own.
func (s *Service) InitiateBackupCodes(userID string) ([]string, error) {
	user, err := s.GetAccount(userID)
	if err != nil {
		return nil, err
	}
	if user.SecondFactors.BackupEnabled {
		return nil, apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "backup codes are already enabled")
	}
	if !user.HasAnySecondFactor() {
		return nil, apperrors.Forbidden(apperrors.CodeBackupCannotEnabled, "enable another second factor first")
	}

	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeBackup); err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	return s.storeBackupBatch(userID)
}

// ConfirmBackupCodes proves the codes were saved by consuming one of them,
// then enables the recovery path.
func (s *Service) ConfirmBackupCodes(userID string, code string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if user.SecondFactors.BackupEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyEnabled, "backup codes are already enabled")
	}

	if err := s.consumeBackupCode(userID, code); err != nil {
		return err
	}
	if err := s.store.ConfirmChallenge(userID, types.ChallengeTypeBackup); err != nil {
		return apperrors.Internal(err)
	}
	return s.setSecondFactorFlag(userID, types.ChallengeTypeBackup, true)
}

// RegenerateBackupCodes replaces the batch. The old codes die immediately;
// the returned fresh codes need no re-confirmation, the enabled flag is
// left untouched. Any previously generated batch qualifies, confirmed or
// not, even one whose codes are already spent.
func (s *Service) RegenerateBackupCodes(userID string) ([]string, error) {
	if _, err := s.GetAccount(userID); err != nil {
		return nil, err
	}
	if _, err := s.store.GetChallenge(userID, types.ChallengeTypeBackup); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperrors.Forbidden(apperrors.CodeBackupNotGenerated, "generate backup codes first")
		}
		return nil, apperrors.Internal(err)
	}

	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeBackup); err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	codes, err := s.storeBackupBatch(userID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ConfirmChallenge(userID, types.ChallengeTypeBackup); err != nil {
		return nil, apperrors.Internal(err)
	}
	return codes, nil
}

func (s *Service) DisableBackupCodes(userID string) error {
	user, err := s.GetAccount(userID)
	if err != nil {
		return err
	}
	if !user.SecondFactors.BackupEnabled {
		return apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "backup codes are not enabled")
	}

	if err := s.setSecondFactorFlag(userID, types.ChallengeTypeBackup, false); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(userID, types.ChallengeTypeBackup); err != nil && !errors.Is(err, db.ErrNotFound) {
		return apperrors.Internal(err)
	}
	return nil
}

// VerifyLoginBackupCode burns one recovery code to finish a login.
func (s *Service) VerifyLoginBackupCode(user types.User, code string) error {
	return s.consumeBackupCode(user.ID.Hex(), code)
}

// RecoverWithBackupCode is the lost-authenticator path: a valid recovery
// code triggers a password reset email so the account can be reclaimed
// without any live session. The token never appears in the response, only
// the blurred address the mail went to.
func (s *Service) RecoverWithBackupCode(email string, code string) (string, error) {
	email = utils.SanitizeEmail(email)
	user, err := s.store.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperrors.Unauthorized(apperrors.CodeWrongEmailOrPassword, "wrong email or code")
		}
		return "", apperrors.Internal(err)
	}
	if !user.SecondFactors.BackupEnabled {
		return "", apperrors.Forbidden(apperrors.CodeAlreadyDisabled, "backup codes are not enabled")
	}
	if err := s.consumeBackupCode(user.ID.Hex(), code); err != nil {
		return "", err
	}

	token, err := s.tokens.Issue(tokens.KindReset, user.ID.Hex(), user.Account.Role, "")
	if err != nil {
		return "", apperrors.Internal(err)
	}
	if err := s.store.UpdateUser(user.ID.Hex(), map[string]interface{}{
		"account.resetToken": token,
	}); err != nil {
		return "", apperrors.Internal(err)
	}

	err = s.sendEmail(user.Account.Email, MESSAGE_TYPE_PASSWORD_RESET, user.Account.PreferredLanguage, map[string]string{
		"token":    token,
		"userName": user.Account.UserName,
	})
	if err != nil {
		slog.Error("failed to send recovery reset email", slog.String("userID", user.ID.Hex()), slog.String("error", err.Error()))
	}
	return utils.BlurEmailAddress(user.Account.Email), nil
}

func (s *Service) storeBackupBatch(userID string) ([]string, error) {
	codes, err := utils.GenerateBackupCodeBatch()
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	hashed := make([]types.BackupCode, 0, len(codes))
	for _, code := range codes {
		hashed = append(hashed, types.BackupCode{
			CodeHash: utils.HashChallengeCode(userID, code),
		})
	}
	challenge := types.Challenge{
		UserID:    userID,
		Type:      types.ChallengeTypeBackup,
		Codes:     hashed,
		IsTemp:    true,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateChallenge(challenge); err != nil {
		return nil, apperrors.Internal(err)
	}
	return codes, nil
}

// consumeBackupCode marks one matching unused code as used. A wrong code
// counts against the attempt cap; the batch itself survives the cap, only
// the counter is reset.
func (s *Service) consumeBackupCode(userID string, code string) error {
	challenge, err := s.store.GetChallenge(userID, types.ChallengeTypeBackup)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return apperrors.Forbidden(apperrors.CodeBackupNotGenerated, "no backup codes were generated")
		}
		return apperrors.Internal(err)
	}
	if err := s.enforceAttemptCap(userID, types.ChallengeTypeBackup, challenge, true); err != nil {
		return err
	}

	used, err := s.store.UseBackupCode(userID, utils.HashChallengeCode(userID, code))
	if err != nil {
		return apperrors.Internal(err)
	}
	if !used {
		return s.registerFailedAttempt(userID, types.ChallengeTypeBackup)
	}
	if err := s.store.ResetChallengeAttempts(userID, types.ChallengeTypeBackup); err != nil && !errors.Is(err, db.ErrNotFound) {
		slog.Error("failed to reset backup attempts", slog.String("userID", userID), slog.String("error", err.Error()))
	}

	if remaining := challenge.UnusedCodeCount() - 1; remaining <= 2 {
		slog.Warn("backup codes running low", slog.String("userID", userID), slog.Int("remaining", remaining))
	}
	return nil
}
