package utils

import (
	"strconv"
	"testing"
)

func TestSanitizeEmail(t *testing.T) {
	t.Run("with different formats", func(t *testing.T) {
		email := SanitizeEmail("\n23234@test.DE")
		if email != "23234@test.de" {
			t.Errorf("unexpected email: %s", email)
		}

		email = SanitizeEmail("  \n 23234@test.DE \n\r")
		if email != "23234@test.de" {
			t.Errorf("unexpected email: %s", email)
		}
	})
}

func TestCheckEmailFormat(t *testing.T) {
	t.Run("with missing @", func(t *testing.T) {
		if CheckEmailFormat("t.t.com") {
			t.Error("should be false")
		}
	})

	t.Run("with missing top level domain", func(t *testing.T) {
		if CheckEmailFormat("t@com") {
			t.Error("should be false")
		}
	})

	t.Run("with correct format", func(t *testing.T) {
		if !CheckEmailFormat("t+1@t.com") {
			t.Error("should be true")
		}
	})
}

func TestCheckPasswordFormat(t *testing.T) {
	t.Run("with a too short password", func(t *testing.T) {
		if CheckPasswordFormat("1n34T6@") {
			t.Error("should be false")
		}
	})
	t.Run("with a too weak password", func(t *testing.T) {
		if CheckPasswordFormat("111111111aaaaaaaa") {
			t.Error("should be false")
		}
	})
	t.Run("with good passwords", func(t *testing.T) {
		if !CheckPasswordFormat("Tt1,.Lo%4abcd") {
			t.Error("should be true")
		}
		if !CheckPasswordFormat("TTTTTTTT777777.") {
			t.Error("should be true")
		}
	})
}

func TestCheckUserNameFormat(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		if CheckUserNameFormat("ab") {
			t.Error("should be false")
		}
	})
	t.Run("with forbidden characters", func(t *testing.T) {
		if CheckUserNameFormat("ab cd") {
			t.Error("should be false")
		}
	})
	t.Run("with valid handle", func(t *testing.T) {
		if !CheckUserNameFormat("some_user.01") {
			t.Error("should be true")
		}
	})
}

func TestCheckPhoneNumberFormat(t *testing.T) {
	t.Run("without country prefix", func(t *testing.T) {
		if CheckPhoneNumberFormat("06301234567") {
			t.Error("should be false")
		}
	})
	t.Run("with valid number", func(t *testing.T) {
		if !CheckPhoneNumberFormat("+4915112345678") {
			t.Error("should be true")
		}
	})
}

func TestGenerateOTPCode(t *testing.T) {
	t.Run("stays in the fixed range", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			code, err := GenerateOTPCode()
			if err != nil {
				t.Fatal(err)
			}
			if len(code) != 6 {
				t.Fatalf("unexpected code length: %s", code)
			}
			v, err := strconv.Atoi(code)
			if err != nil {
				t.Fatalf("code is not numeric: %s", code)
			}
			if v < OTP_CODE_MIN || v > OTP_CODE_MAX {
				t.Fatalf("code out of range: %d", v)
			}
		}
	})
}

func TestGenerateBackupCodeBatch(t *testing.T) {
	t.Run("returns distinct codes", func(t *testing.T) {
		codes, err := GenerateBackupCodeBatch()
		if err != nil {
			t.Fatal(err)
		}
		if len(codes) != BACKUP_CODE_COUNT {
			t.Fatalf("unexpected batch size: %d", len(codes))
		}
		seen := map[string]struct{}{}
		for _, code := range codes {
			if len(code) != BACKUP_CODE_LENGTH {
				t.Errorf("unexpected code length: %s", code)
			}
			if _, ok := seen[code]; ok {
				t.Errorf("duplicate code in batch: %s", code)
			}
			seen[code] = struct{}{}
		}
	})
}

func TestHashChallengeCode(t *testing.T) {
	t.Run("binds the code to its owner", func(t *testing.T) {
		a := HashChallengeCode("user-1", "123456")
		b := HashChallengeCode("user-2", "123456")
		if a == b {
			t.Error("same code for different users must not collide")
		}
		if a != HashChallengeCode("user-1", "123456") {
			t.Error("hash must be deterministic")
		}
	})
}
