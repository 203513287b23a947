package usermanagement

import (
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

func TestOTPEnrollment(t *testing.T) {
	service, store, recorder := newTestService()
	user := mustCreateUser(t, store, "nina@example.com", "nina")
	userID := user.ID.Hex()

	t.Run("initiate mails a code", func(t *testing.T) {
		if err := service.InitiateOTP(userID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		mail := recorder.lastEmail(t)
		if mail.MessageType != MESSAGE_TYPE_OTP_CODE || mail.Payload["code"] == "" {
			t.Errorf("expected an OTP mail, got %+v", mail)
		}
	})

	t.Run("a second initiate is blocked while a code is pending", func(t *testing.T) {
		err := service.InitiateOTP(userID)
		wantAppError(t, err, apperrors.CodeAlreadyHaveValidChallenge)
	})

	t.Run("confirm flips the flag", func(t *testing.T) {
		code := recorder.lastEmail(t).Payload["code"]
		if err := service.ConfirmOTP(userID, code); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		updated, err := store.GetUserByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		if !updated.SecondFactors.OtpEnabled {
			t.Error("expected otp to be enabled")
		}
	})

	t.Run("initiate refuses when already enabled", func(t *testing.T) {
		err := service.InitiateOTP(userID)
		wantAppError(t, err, apperrors.CodeAlreadyEnabled)
	})

	t.Run("disable", func(t *testing.T) {
		if err := service.DisableOTP(userID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err := service.DisableOTP(userID)
		wantAppError(t, err, apperrors.CodeAlreadyDisabled)
	})
}

func TestSMSEnrollment(t *testing.T) {
	service, store, recorder := newTestService()
	user := mustCreateUser(t, store, "oscar@example.com", "oscar")
	userID := user.ID.Hex()

	t.Run("initiate without a phone number", func(t *testing.T) {
		err := service.InitiateSMS(userID, "")
		wantAppError(t, err, apperrors.CodePhoneNumberMissing)
	})

	t.Run("initiate rejects malformed numbers", func(t *testing.T) {
		err := service.InitiateSMS(userID, "not a number")
		wantAppError(t, err, apperrors.CodeValidationFailed)
	})

	t.Run("initiate stores the number and texts a code", func(t *testing.T) {
		if err := service.InitiateSMS(userID, "+49151123456789"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sms := recorder.lastSMS(t)
		if sms.To != "+49151123456789" || sms.Payload["code"] == "" {
			t.Errorf("expected a code texted to the new number, got %+v", sms)
		}
		updated, err := store.GetUserByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		if updated.Account.Phone != "+49151123456789" {
			t.Errorf("phone number should be stored, got %q", updated.Account.Phone)
		}
	})

	t.Run("confirm flips the flag and login challenges via sms", func(t *testing.T) {
		code := recorder.lastSMS(t).Payload["code"]
		if err := service.ConfirmSMS(userID, code); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		result, err := service.Login("oscar@example.com", testPassword)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Methods) != 1 || result.Methods[0] != types.ChallengeTypeSMS {
			t.Fatalf("expected [sms], got %v", result.Methods)
		}

		loginCode := recorder.lastSMS(t).Payload["code"]
		finished, err := service.VerifySecondFactor(userID, types.ChallengeTypeSMS, loginCode)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if finished.Token == nil {
			t.Error("expected a token pair")
		}
	})
}

func TestTOTPEnrollment(t *testing.T) {
	service, store, _ := newTestService()
	user := mustCreateUser(t, store, "peggy@example.com", "peggy")
	userID := user.ID.Hex()

	currentCode := func(t *testing.T, secret string) string {
		t.Helper()
		code, err := totp.GenerateCode(secret, time.Now())
		if err != nil {
			t.Fatalf("generating code: %v", err)
		}
		return code
	}

	t.Run("initiate hands out the secret once", func(t *testing.T) {
		enrollment, err := service.InitiateTOTP(userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if enrollment.Secret == "" || enrollment.URL == "" {
			t.Fatal("expected a secret and a provisioning URL")
		}

		// The stored copy is encrypted, not the raw secret.
		challenge, err := store.GetChallenge(userID, types.ChallengeTypeTOTP)
		if err != nil {
			t.Fatal(err)
		}
		if challenge.Secret == enrollment.Secret {
			t.Error("the secret must not be stored in the clear")
		}
		if !challenge.IsTemp || challenge.ExpiresAt == nil {
			t.Error("an unconfirmed secret must be temporary with an expiry")
		}
	})

	t.Run("confirm with a generated code enables the factor", func(t *testing.T) {
		// Re-initiate to have the plain secret in hand.
		enrollment, err := service.InitiateTOTP(userID)
		if err != nil {
			t.Fatal(err)
		}
		if err := service.ConfirmTOTP(userID, currentCode(t, enrollment.Secret)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		updated, err := store.GetUserByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		if !updated.SecondFactors.TotpEnabled {
			t.Error("expected totp to be enabled")
		}
		challenge, err := store.GetChallenge(userID, types.ChallengeTypeTOTP)
		if err != nil {
			t.Fatal(err)
		}
		if challenge.IsTemp || challenge.ExpiresAt != nil {
			t.Error("a confirmed secret must be permanent")
		}

		t.Run("login verifies against the secret", func(t *testing.T) {
			if err := service.VerifyLoginTOTP(updated, currentCode(t, enrollment.Secret)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})

		t.Run("the cap resets the counter but keeps the secret", func(t *testing.T) {
			// Every wrong code up to the cap reads as a wrong code.
			for i := 0; i < MAX_CHALLENGE_ATTEMPTS; i++ {
				err := service.VerifyLoginTOTP(updated, "000000")
				wantAppError(t, err, apperrors.CodeInvalidOTP)
			}
			// The attempt after the cap is rejected before the code is
			// even looked at, a correct one included.
			err := service.VerifyLoginTOTP(updated, currentCode(t, enrollment.Secret))
			wantAppError(t, err, apperrors.CodeMaxAttemptsReached)

			// The confirmed secret survives and a correct code works again.
			if err := service.VerifyLoginTOTP(updated, currentCode(t, enrollment.Secret)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})

		t.Run("disable requires the current code", func(t *testing.T) {
			err := service.DisableTOTP(userID, "000000")
			wantAppError(t, err, apperrors.CodeInvalidOTP)

			if err := service.DisableTOTP(userID, currentCode(t, enrollment.Secret)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if _, err := store.GetChallenge(userID, types.ChallengeTypeTOTP); err == nil {
				t.Error("the secret should be gone after disabling")
			}
		})
	})
}

func TestBackupCodes(t *testing.T) {
	service, store, recorder := newTestService()
	user := mustCreateUser(t, store, "quinn@example.com", "quinn")
	userID := user.ID.Hex()

	t.Run("requires another second factor first", func(t *testing.T) {
		_, err := service.InitiateBackupCodes(userID)
		wantAppError(t, err, apperrors.CodeBackupCannotEnabled)
	})

	t.Run("regenerate requires a generated batch", func(t *testing.T) {
		_, err := service.RegenerateBackupCodes(userID)
		wantAppError(t, err, apperrors.CodeBackupNotGenerated)
	})

	// Enable email OTP so backup codes become available.
	if err := store.UpdateUser(userID, map[string]interface{}{
		"secondFactors.otpEnabled": true,
	}); err != nil {
		t.Fatal(err)
	}

	var codes []string
	t.Run("initiate returns the plain codes once", func(t *testing.T) {
		var err error
		codes, err = service.InitiateBackupCodes(userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(codes) != 10 {
			t.Fatalf("expected 10 codes, got %d", len(codes))
		}

		challenge, err := store.GetChallenge(userID, types.ChallengeTypeBackup)
		if err != nil {
			t.Fatal(err)
		}
		for _, code := range codes {
			for _, stored := range challenge.Codes {
				if stored.CodeHash == code {
					t.Fatal("codes must be stored hashed")
				}
			}
		}
	})

	t.Run("regenerate does not require confirmation", func(t *testing.T) {
		// The batch exists but was never confirmed; replacing it is fine.
		fresh, err := service.RegenerateBackupCodes(userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fresh) != 10 {
			t.Fatalf("expected 10 codes, got %d", len(fresh))
		}
		codes = fresh
	})

	t.Run("confirm consumes one code and enables the path", func(t *testing.T) {
		if err := service.ConfirmBackupCodes(userID, codes[0]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		updated, err := store.GetUserByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		if !updated.SecondFactors.BackupEnabled {
			t.Error("expected backup codes to be enabled")
		}

		// The burned code cannot be used again.
		err = service.VerifyLoginBackupCode(updated, codes[0])
		wantAppError(t, err, apperrors.CodeInvalidOTP)
	})

	t.Run("each code works exactly once at login", func(t *testing.T) {
		current, err := store.GetUserByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		if err := service.VerifyLoginBackupCode(current, codes[1]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		err = service.VerifyLoginBackupCode(current, codes[1])
		wantAppError(t, err, apperrors.CodeInvalidOTP)
	})

	t.Run("backup codes never gate login on their own", func(t *testing.T) {
		if err := store.UpdateUser(userID, map[string]interface{}{
			"secondFactors.otpEnabled": false,
		}); err != nil {
			t.Fatal(err)
		}
		result, err := service.Login("quinn@example.com", testPassword)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Token == nil {
			t.Error("with only backup codes enabled, login must complete directly")
		}
		if err := store.UpdateUser(userID, map[string]interface{}{
			"secondFactors.otpEnabled": true,
		}); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("regenerate kills the old batch", func(t *testing.T) {
		fresh, err := service.RegenerateBackupCodes(userID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fresh) != 10 {
			t.Fatalf("expected 10 codes, got %d", len(fresh))
		}

		current, err := store.GetUserByID(userID)
		if err != nil {
			t.Fatal(err)
		}
		// An old unused code is dead.
		err = service.VerifyLoginBackupCode(current, codes[2])
		wantAppError(t, err, apperrors.CodeInvalidOTP)
		// A fresh code works without re-confirmation.
		if err := service.VerifyLoginBackupCode(current, fresh[0]); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("recovery emails a password reset token", func(t *testing.T) {
		fresh, err := service.RegenerateBackupCodes(userID)
		if err != nil {
			t.Fatal(err)
		}
		blurred, err := service.RecoverWithBackupCode("quinn@example.com", fresh[0])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if blurred != "q****@example.com" {
			t.Errorf("expected the blurred address, got %q", blurred)
		}

		// The token travels by mail only, never in the response.
		mail := recorder.lastEmail(t)
		if mail.MessageType != MESSAGE_TYPE_PASSWORD_RESET || mail.Payload["token"] == "" {
			t.Fatalf("expected a reset mail with a token, got %+v", mail)
		}
		if err := service.ResetPassword(mail.Payload["token"], "a-recovered-password-1"); err != nil {
			t.Errorf("the mailed token should reset the password: %v", err)
		}
	})
}
