package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// A session is valid iff its document still exists and is younger than the
// session TTL; revocation is deletion, not a flag.
type Session struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"-"`

	SessionID    string    `bson:"sessionID" json:"sessionID"`
	UserID       string    `bson:"userID" json:"-"`
	AccessToken  string    `bson:"accessToken" json:"-"`
	RefreshToken string    `bson:"refreshToken" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`

	// Derived on listing, never persisted.
	IsValid bool `bson:"-" json:"isValid"`
}

type TokenPair struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	ExpiresIn    float64 `json:"expiresIn"`
}
