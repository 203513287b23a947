package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ChallengeType string

const (
	ChallengeTypeOTP    ChallengeType = "otp"
	ChallengeTypeSMS    ChallengeType = "sms"
	ChallengeTypeTOTP   ChallengeType = "totp"
	ChallengeTypeBackup ChallengeType = "backup"
)

// Challenge is the shared document for all second-factor material: a hashed
// one-time code (otp/sms), an encrypted authenticator secret (totp) or a
// batch of hashed single-use codes (backup). At most one document exists per
// user and type.
type Challenge struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	UserID string        `bson:"userID" json:"userID"`
	Type   ChallengeType `bson:"type" json:"type"`

	Secret string       `bson:"secret,omitempty" json:"-"`
	Codes  []BackupCode `bson:"codes,omitempty" json:"-"`

	// IsTemp marks material awaiting enable-confirmation.
	IsTemp         bool  `bson:"isTemp" json:"isTemp"`
	FailedAttempts int64 `bson:"failedAttempts" json:"failedAttempts"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	// Only short-lived documents carry an expiry; confirmed totp secrets and
	// backup batches never expire. The store evicts expired documents via a
	// TTL index, callers still check the timestamp explicitly.
	ExpiresAt *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

type BackupCode struct {
	CodeHash string `bson:"codeHash" json:"-"`
	UsedAt   int64  `bson:"usedAt,omitempty" json:"usedAt,omitempty"`
}

func (c Challenge) IsExpired() bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(time.Now())
}

func (c Challenge) UnusedCodeCount() int {
	count := 0
	for _, code := range c.Codes {
		if code.UsedAt == 0 {
			count++
		}
	}
	return count
}
