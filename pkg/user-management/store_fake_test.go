package usermanagement

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

// fakeStore is an in-memory Store honoring the same contract as the Mongo
// implementation: db.ErrNotFound for missing documents and
// *db.DuplicateKeyError for unique-index violations.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]types.User
	sessions   map[string]types.Session
	challenges map[string]types.Challenge
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[string]types.User{},
		sessions:   map[string]types.Session{},
		challenges: map[string]types.Challenge{},
	}
}

func challengeKey(userID string, t types.ChallengeType) string {
	return userID + "/" + string(t)
}

func (f *fakeStore) CreateUser(user types.User) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Account.Email == user.Account.Email {
			return "", &db.DuplicateKeyError{Field: "account.email"}
		}
		if existing.Account.UserName == user.Account.UserName {
			return "", &db.DuplicateKeyError{Field: "account.userName"}
		}
	}
	user.ID = primitive.NewObjectID()
	f.users[user.ID.Hex()] = user
	return user.ID.Hex(), nil
}

func (f *fakeStore) GetUserByID(userID string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return types.User{}, db.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUserByEmail(email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Account.Email == email {
			return user, nil
		}
	}
	return types.User{}, db.ErrNotFound
}

func (f *fakeStore) UpdateUser(userID string, set map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[userID]
	if !ok {
		return db.ErrNotFound
	}
	for field, value := range set {
		applyUserField(&user, field, value)
	}
	user.Timestamps.UpdatedAt = time.Now().Unix()
	f.users[userID] = user
	return nil
}

// applyUserField mirrors the dotted $set paths the services use.
func applyUserField(user *types.User, field string, value interface{}) {
	switch field {
	case "account.password":
		user.Account.Password = value.(string)
	case "account.phone":
		user.Account.Phone = value.(string)
	case "account.resetToken":
		user.Account.ResetToken = value.(string)
	case "account.activationToken":
		user.Account.ActivationToken = value.(string)
	case "status.isVerified":
		user.Status.IsVerified = value.(bool)
	case "status.verifiedAt":
		user.Status.VerifiedAt = value.(int64)
	case "status.isActive":
		user.Status.IsActive = value.(bool)
	case "status.activeStatusChangedAt":
		user.Status.ActiveStatusChangedAt = value.(int64)
	case "status.isDeleted":
		user.Status.IsDeleted = value.(bool)
	case "status.deletedAt":
		user.Status.DeletedAt = value.(int64)
	case "secondFactors.otpEnabled":
		user.SecondFactors.OtpEnabled = value.(bool)
	case "secondFactors.otpEnabledAt":
		user.SecondFactors.OtpEnabledAt = value.(int64)
	case "secondFactors.smsEnabled":
		user.SecondFactors.SmsEnabled = value.(bool)
	case "secondFactors.smsEnabledAt":
		user.SecondFactors.SmsEnabledAt = value.(int64)
	case "secondFactors.totpEnabled":
		user.SecondFactors.TotpEnabled = value.(bool)
	case "secondFactors.totpEnabledAt":
		user.SecondFactors.TotpEnabledAt = value.(int64)
	case "secondFactors.backupEnabled":
		user.SecondFactors.BackupEnabled = value.(bool)
	case "secondFactors.backupEnabledAt":
		user.SecondFactors.BackupEnabledAt = value.(int64)
	case "timestamps.lastLogin":
		user.Timestamps.LastLogin = value.(int64)
	case "timestamps.lastPasswordChange":
		user.Timestamps.LastPasswordChange = value.(int64)
	}
}

func (f *fakeStore) CountRecentlyCreatedUsers(window time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-window).Unix()
	var count int64
	for _, user := range f.users {
		if user.Timestamps.CreatedAt >= cutoff {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateSession(session types.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[session.SessionID] = session
	return nil
}

func (f *fakeStore) GetSessionBySessionID(sessionID string) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok {
		return types.Session{}, db.ErrNotFound
	}
	return session, nil
}

func (f *fakeStore) PopSessionByRefreshToken(refreshToken string) (types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, session := range f.sessions {
		if session.RefreshToken == refreshToken {
			delete(f.sessions, id)
			return session, nil
		}
	}
	return types.Session{}, db.ErrNotFound
}

func (f *fakeStore) DeleteSession(userID string, sessionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	session, ok := f.sessions[sessionID]
	if !ok || session.UserID != userID {
		return 0, nil
	}
	delete(f.sessions, sessionID)
	return 1, nil
}

func (f *fakeStore) DeleteSessionsForUser(userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for id, session := range f.sessions {
		if session.UserID == userID {
			delete(f.sessions, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListSessionsForUser(userID string) ([]types.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions := []types.Session{}
	for _, session := range f.sessions {
		if session.UserID == userID {
			sessions = append(sessions, session)
		}
	}
	return sessions, nil
}

func (f *fakeStore) CreateChallenge(challenge types.Challenge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := challengeKey(challenge.UserID, challenge.Type)
	if _, exists := f.challenges[key]; exists {
		return &db.DuplicateKeyError{Field: "userID"}
	}
	f.challenges[key] = challenge
	return nil
}

func (f *fakeStore) GetChallenge(userID string, t types.ChallengeType) (types.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	challenge, ok := f.challenges[challengeKey(userID, t)]
	if !ok {
		return types.Challenge{}, db.ErrNotFound
	}
	return challenge, nil
}

func (f *fakeStore) DeleteChallenge(userID string, t types.ChallengeType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := challengeKey(userID, t)
	if _, ok := f.challenges[key]; !ok {
		return db.ErrNotFound
	}
	delete(f.challenges, key)
	return nil
}

func (f *fakeStore) DeleteChallengesForUser(userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for key, challenge := range f.challenges {
		if challenge.UserID == userID {
			delete(f.challenges, key)
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) IncrementChallengeAttempts(userID string, t types.ChallengeType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := challengeKey(userID, t)
	challenge, ok := f.challenges[key]
	if !ok {
		return 0, db.ErrNotFound
	}
	challenge.FailedAttempts++
	f.challenges[key] = challenge
	return challenge.FailedAttempts, nil
}

func (f *fakeStore) ResetChallengeAttempts(userID string, t types.ChallengeType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := challengeKey(userID, t)
	challenge, ok := f.challenges[key]
	if !ok {
		return db.ErrNotFound
	}
	challenge.FailedAttempts = 0
	f.challenges[key] = challenge
	return nil
}

func (f *fakeStore) ConfirmChallenge(userID string, t types.ChallengeType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := challengeKey(userID, t)
	challenge, ok := f.challenges[key]
	if !ok {
		return db.ErrNotFound
	}
	challenge.IsTemp = false
	challenge.FailedAttempts = 0
	challenge.ExpiresAt = nil
	f.challenges[key] = challenge
	return nil
}

func (f *fakeStore) UseBackupCode(userID string, codeHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := challengeKey(userID, types.ChallengeTypeBackup)
	challenge, ok := f.challenges[key]
	if !ok {
		return false, nil
	}
	for i, code := range challenge.Codes {
		if code.CodeHash == codeHash && code.UsedAt == 0 {
			challenge.Codes[i].UsedAt = time.Now().Unix()
			f.challenges[key] = challenge
			return true, nil
		}
	}
	return false, nil
}
