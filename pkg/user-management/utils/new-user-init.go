package utils

import (
	"time"

	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

// InitNewUser prepares a fresh account document: unverified, active, no
// second factors.
func InitNewUser(email string, userName string, passwordHash string, preferredLanguage string) types.User {
	now := time.Now().Unix()
	return types.User{
		Account: types.Account{
			Email:             email,
			UserName:          userName,
			Password:          passwordHash,
			Role:              types.ROLE_USER,
			PreferredLanguage: preferredLanguage,
		},
		Status: types.Status{
			IsVerified: false,
			IsActive:   true,
			IsDeleted:  false,
		},
		Timestamps: types.Timestamps{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
