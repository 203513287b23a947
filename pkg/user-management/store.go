package usermanagement

import (
	"time"

	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

// Store is the document-store contract the domain services run on. It is
// implemented by the Mongo-backed ident-user DB service; lookups report
// missing documents with db.ErrNotFound and unique-index violations with
// *db.DuplicateKeyError.
type Store interface {
	CreateUser(user types.User) (string, error)
	GetUserByID(userID string) (types.User, error)
	GetUserByEmail(email string) (types.User, error)
	UpdateUser(userID string, set map[string]interface{}) error
	CountRecentlyCreatedUsers(window time.Duration) (int64, error)

	CreateSession(session types.Session) error
	GetSessionBySessionID(sessionID string) (types.Session, error)
	PopSessionByRefreshToken(refreshToken string) (types.Session, error)
	DeleteSession(userID string, sessionID string) (int64, error)
	DeleteSessionsForUser(userID string) (int64, error)
	ListSessionsForUser(userID string) ([]types.Session, error)

	CreateChallenge(challenge types.Challenge) error
	GetChallenge(userID string, t types.ChallengeType) (types.Challenge, error)
	DeleteChallenge(userID string, t types.ChallengeType) error
	DeleteChallengesForUser(userID string) (int64, error)
	IncrementChallengeAttempts(userID string, t types.ChallengeType) (int64, error)
	ResetChallengeAttempts(userID string, t types.ChallengeType) error
	ConfirmChallenge(userID string, t types.ChallengeType) error
	UseBackupCode(userID string, codeHash string) (bool, error)
}
