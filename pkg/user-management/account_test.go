package usermanagement

import (
	"testing"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
)

const validPassword = "A-long-enough-password1"

func TestSignup(t *testing.T) {
	service, _, recorder := newTestService()

	t.Run("creates an unverified account and mails a token", func(t *testing.T) {
		user, err := service.Signup(SignupRequest{
			Email:    "Grace@Example.com",
			UserName: "grace",
			Password: validPassword,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Account.Email != "grace@example.com" {
			t.Errorf("email should be sanitized, got %q", user.Account.Email)
		}
		if user.Status.IsVerified {
			t.Error("a new account must start unverified")
		}
		if !user.Status.IsActive {
			t.Error("a new account must start active")
		}
		mail := recorder.lastEmail(t)
		if mail.MessageType != MESSAGE_TYPE_VERIFY_EMAIL || mail.Payload["token"] == "" {
			t.Errorf("expected a verification mail with a token, got %+v", mail)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := service.Signup(SignupRequest{
			Email:    "grace@example.com",
			UserName: "grace2",
			Password: validPassword,
		})
		wantAppError(t, err, apperrors.CodeEmailAlreadyTaken)
	})

	t.Run("duplicate user name", func(t *testing.T) {
		_, err := service.Signup(SignupRequest{
			Email:    "grace2@example.com",
			UserName: "grace",
			Password: validPassword,
		})
		wantAppError(t, err, apperrors.CodeUserNameAlreadyTaken)
	})

	t.Run("rejects weak passwords", func(t *testing.T) {
		_, err := service.Signup(SignupRequest{
			Email:    "heidi@example.com",
			UserName: "heidi",
			Password: "short",
		})
		wantAppError(t, err, apperrors.CodeValidationFailed)
	})
}

func TestEmailVerification(t *testing.T) {
	service, _, recorder := newTestService()
	if _, err := service.Signup(SignupRequest{
		Email:    "ivan@example.com",
		UserName: "ivan",
		Password: validPassword,
	}); err != nil {
		t.Fatal(err)
	}
	token := recorder.lastEmail(t).Payload["token"]

	t.Run("valid token verifies the account", func(t *testing.T) {
		if err := service.VerifyEmail(token); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		result, err := service.Login("ivan@example.com", validPassword)
		if err != nil {
			t.Fatalf("login after verification should work: %v", err)
		}
		if result.Token == nil {
			t.Error("expected a token pair")
		}
	})

	t.Run("second redemption is refused", func(t *testing.T) {
		err := service.VerifyEmail(token)
		wantAppError(t, err, apperrors.CodeAlreadyVerified)
	})

	t.Run("garbage token", func(t *testing.T) {
		err := service.VerifyEmail("not-a-token")
		wantAppError(t, err, apperrors.CodeInvalidToken)
	})

	t.Run("resend refuses verified accounts", func(t *testing.T) {
		err := service.SendVerificationEmail("ivan@example.com")
		wantAppError(t, err, apperrors.CodeAlreadyVerified)
	})

	t.Run("resend does not leak unknown addresses", func(t *testing.T) {
		if err := service.SendVerificationEmail("unknown@example.com"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestPasswordReset(t *testing.T) {
	service, store, recorder := newTestService()
	user := mustCreateUser(t, store, "judy@example.com", "judy")
	const newPassword = "An-even-longer-password2"

	t.Run("unknown address is indistinguishable", func(t *testing.T) {
		if err := service.InitiatePasswordReset("unknown@example.com"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("reset with the mailed token", func(t *testing.T) {
		pair, err := service.MintSession(user.ID.Hex(), user.Account.Role)
		if err != nil {
			t.Fatal(err)
		}

		if err := service.InitiatePasswordReset("judy@example.com"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		mail := recorder.lastEmail(t)
		if mail.MessageType != MESSAGE_TYPE_PASSWORD_RESET {
			t.Fatalf("expected a reset mail, got %s", mail.MessageType)
		}
		token := mail.Payload["token"]

		if err := service.ResetPassword(token, newPassword); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := service.Login("judy@example.com", testPassword); err == nil {
			t.Error("old password should no longer work")
		}
		if _, err := service.Login("judy@example.com", newPassword); err != nil {
			t.Errorf("new password should work: %v", err)
		}

		// All sessions died with the old password.
		_, err = service.ValidateAccessToken(pair.AccessToken)
		wantAppError(t, err, apperrors.CodeSessionRevoked)

		// The token is single use.
		err = service.ResetPassword(token, "yet-another-password-1")
		wantAppError(t, err, apperrors.CodeInvalidToken)
	})

	t.Run("a newer request supersedes the older token", func(t *testing.T) {
		if err := service.InitiatePasswordReset("judy@example.com"); err != nil {
			t.Fatal(err)
		}
		oldToken := recorder.lastEmail(t).Payload["token"]
		if err := service.InitiatePasswordReset("judy@example.com"); err != nil {
			t.Fatal(err)
		}
		err := service.ResetPassword(oldToken, "Completely-new-password3")
		wantAppError(t, err, apperrors.CodeInvalidToken)
	})
}

func TestChangePassword(t *testing.T) {
	service, store, _ := newTestService()
	user := mustCreateUser(t, store, "kate@example.com", "kate")
	userID := user.ID.Hex()
	const newPassword = "replacement-password-1"

	t.Run("wrong current password", func(t *testing.T) {
		err := service.ChangePassword(userID, "wrong", newPassword, "")
		wantAppError(t, err, apperrors.CodeWrongPassword)
	})

	t.Run("changes the password and keeps the current session", func(t *testing.T) {
		current, err := service.MintSession(userID, user.Account.Role)
		if err != nil {
			t.Fatal(err)
		}
		claims, err := service.ValidateAccessToken(current.AccessToken)
		if err != nil {
			t.Fatal(err)
		}
		other, err := service.MintSession(userID, user.Account.Role)
		if err != nil {
			t.Fatal(err)
		}

		if err := service.ChangePassword(userID, testPassword, newPassword, claims.SessionID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := service.ValidateAccessToken(current.AccessToken); err != nil {
			t.Errorf("current session should survive: %v", err)
		}
		_, err = service.ValidateAccessToken(other.AccessToken)
		wantAppError(t, err, apperrors.CodeSessionRevoked)

		if _, err := service.Login("kate@example.com", newPassword); err != nil {
			t.Errorf("new password should work: %v", err)
		}
	})
}

func TestDeactivateAndActivate(t *testing.T) {
	service, store, recorder := newTestService()
	user := mustCreateUser(t, store, "leo@example.com", "leo")
	userID := user.ID.Hex()

	pair, err := service.MintSession(userID, user.Account.Role)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("deactivation revokes sessions and mails a token", func(t *testing.T) {
		if err := service.DeactivateAccount(userID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := service.ValidateAccessToken(pair.AccessToken)
		wantAppError(t, err, apperrors.CodeSessionRevoked)

		_, err = service.Login("leo@example.com", testPassword)
		wantAppError(t, err, apperrors.CodeAccountNeedsActivation)

		mail := recorder.lastEmail(t)
		if mail.MessageType != MESSAGE_TYPE_ACCOUNT_ACTIVATE || mail.Payload["token"] == "" {
			t.Errorf("expected an activation mail with a token, got %+v", mail)
		}
	})

	t.Run("deactivating twice", func(t *testing.T) {
		err := service.DeactivateAccount(userID)
		wantAppError(t, err, apperrors.CodeAlreadyDeactivated)
	})

	t.Run("activation restores login", func(t *testing.T) {
		token := recorder.lastEmail(t).Payload["token"]
		if err := service.ActivateAccount(token); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := service.Login("leo@example.com", testPassword); err != nil {
			t.Errorf("login after activation should work: %v", err)
		}

		// The token died with the activation.
		err = service.ActivateAccount(token)
		wantAppError(t, err, apperrors.CodeAlreadyActivated)
	})
}

func TestDeleteAccount(t *testing.T) {
	service, store, _ := newTestService()
	user := mustCreateUser(t, store, "mallory@example.com", "mallory")
	userID := user.ID.Hex()

	pair, err := service.MintSession(userID, user.Account.Role)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("requires the password", func(t *testing.T) {
		err := service.DeleteAccount(userID, "wrong")
		wantAppError(t, err, apperrors.CodeWrongPassword)
	})

	t.Run("soft-deletes and revokes everything", func(t *testing.T) {
		if err := service.DeleteAccount(userID, testPassword); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := service.ValidateAccessToken(pair.AccessToken)
		wantAppError(t, err, apperrors.CodeSessionRevoked)

		_, err = service.Login("mallory@example.com", testPassword)
		wantAppError(t, err, apperrors.CodeAccountDeleted)

		deleted, err := store.GetUserByID(userID)
		if err != nil {
			t.Fatalf("the document should still exist: %v", err)
		}
		if !deleted.Status.IsDeleted || deleted.Status.DeletedAt == 0 {
			t.Error("expected the deleted flag and timestamp to be set")
		}
	})
}
