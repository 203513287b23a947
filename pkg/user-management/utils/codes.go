package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	OTP_CODE_MIN = 100000
	OTP_CODE_MAX = 999999

	BACKUP_CODE_LENGTH = 16
	BACKUP_CODE_COUNT  = 10
)

// GenerateOTPCode returns a 6 digit numeric code in [100000, 999999].
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(OTP_CODE_MAX-OTP_CODE_MIN+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", OTP_CODE_MIN+n.Int64()), nil
}

// GenerateBackupCode returns a 16 character hex string.
func GenerateBackupCode() (string, error) {
	buffer := make([]byte, BACKUP_CODE_LENGTH/2)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return hex.EncodeToString(buffer), nil
}

func GenerateBackupCodeBatch() ([]string, error) {
	codes := make([]string, BACKUP_CODE_COUNT)
	for i := range codes {
		code, err := GenerateBackupCode()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

// HashChallengeCode digests a one-time code bound to its owner, so equal
// codes of different users never share a stored value.
func HashChallengeCode(userID string, code string) string {
	digest := sha256.Sum256([]byte(userID + ":" + code))
	return hex.EncodeToString(digest[:])
}
