package crypt

import "testing"

func TestEncryptDecrypt(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ciphertext, err := EncryptString("JBSWY3DPEHPK3PXP", "test-key")
		if err != nil {
			t.Fatal(err)
		}
		if ciphertext == "JBSWY3DPEHPK3PXP" {
			t.Error("ciphertext equals plaintext")
		}

		plaintext, err := DecryptString(ciphertext, "test-key")
		if err != nil {
			t.Fatal(err)
		}
		if plaintext != "JBSWY3DPEHPK3PXP" {
			t.Errorf("unexpected plaintext: %s", plaintext)
		}
	})

	t.Run("with wrong key", func(t *testing.T) {
		ciphertext, err := EncryptString("secret", "key-a")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := DecryptString(ciphertext, "key-b"); err == nil {
			t.Error("should fail with wrong key")
		}
	})

	t.Run("with garbage input", func(t *testing.T) {
		if _, err := DecryptString("%%%not-base64%%%", "key"); err == nil {
			t.Error("should fail")
		}
	})
}
