// Package crypt is the narrow collaborator for keeping authenticator
// secrets encrypted at rest: EncryptString / DecryptString and nothing else.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// EncryptString seals plaintext with AES-GCM under a key derived from the
// configured key string; the nonce is prepended to the ciphertext.
func EncryptString(plaintext string, key string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func DecryptString(ciphertext string, key string) (string, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return "", err
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}

func newAEAD(key string) (cipher.AEAD, error) {
	derivedKey := sha256.Sum256([]byte(key))
	block, err := aes.NewCipher(derivedKey[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
