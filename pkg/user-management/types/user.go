package types

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
)

type User struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	Account       Account       `bson:"account" json:"account"`
	Status        Status        `bson:"status" json:"status"`
	SecondFactors SecondFactors `bson:"secondFactors" json:"secondFactors"`
	Timestamps    Timestamps    `bson:"timestamps" json:"timestamps"`
}

type Account struct {
	Email             string `bson:"email" json:"email"`
	UserName          string `bson:"userName" json:"userName"`
	Password          string `bson:"password" json:"-"`
	Role              string `bson:"role" json:"role"`
	Phone             string `bson:"phone,omitempty" json:"phone,omitempty"`
	PreferredLanguage string `bson:"preferredLanguage" json:"preferredLanguage"`

	// Single-use tokens; consumed (cleared) on use.
	ActivationToken string `bson:"activationToken,omitempty" json:"-"`
	ResetToken      string `bson:"resetToken,omitempty" json:"-"`
}

type Status struct {
	IsVerified bool `bson:"isVerified" json:"isVerified"`
	IsActive   bool `bson:"isActive" json:"isActive"`
	IsDeleted  bool `bson:"isDeleted" json:"isDeleted"`

	VerifiedAt            int64 `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	ActiveStatusChangedAt int64 `bson:"activeStatusChangedAt,omitempty" json:"activeStatusChangedAt,omitempty"`
	DeletedAt             int64 `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
}

type SecondFactors struct {
	OtpEnabled    bool `bson:"otpEnabled" json:"otpEnabled"`
	SmsEnabled    bool `bson:"smsEnabled" json:"smsEnabled"`
	TotpEnabled   bool `bson:"totpEnabled" json:"totpEnabled"`
	BackupEnabled bool `bson:"backupEnabled" json:"backupEnabled"`

	OtpEnabledAt    int64 `bson:"otpEnabledAt,omitempty" json:"otpEnabledAt,omitempty"`
	SmsEnabledAt    int64 `bson:"smsEnabledAt,omitempty" json:"smsEnabledAt,omitempty"`
	TotpEnabledAt   int64 `bson:"totpEnabledAt,omitempty" json:"totpEnabledAt,omitempty"`
	BackupEnabledAt int64 `bson:"backupEnabledAt,omitempty" json:"backupEnabledAt,omitempty"`
}

type Timestamps struct {
	CreatedAt          int64 `bson:"createdAt" json:"createdAt"`
	UpdatedAt          int64 `bson:"updatedAt" json:"updatedAt"`
	LastLogin          int64 `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	LastPasswordChange int64 `bson:"lastPasswordChange,omitempty" json:"lastPasswordChange,omitempty"`
}

// EnabledLoginMethods lists the second-factor methods that gate login, in
// the fixed challenge priority order. Backup codes are a recovery path and
// never gate login on their own.
func (u User) EnabledLoginMethods() []ChallengeType {
	methods := []ChallengeType{}
	if u.SecondFactors.OtpEnabled {
		methods = append(methods, ChallengeTypeOTP)
	}
	if u.SecondFactors.SmsEnabled {
		methods = append(methods, ChallengeTypeSMS)
	}
	if u.SecondFactors.TotpEnabled {
		methods = append(methods, ChallengeTypeTOTP)
	}
	return methods
}

func (u User) HasAnySecondFactor() bool {
	return len(u.EnabledLoginMethods()) > 0
}
