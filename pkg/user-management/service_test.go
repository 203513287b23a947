package usermanagement

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/tokens"
	"github.com/ident-framework/ident-backend/pkg/user-management/pwhash"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
	"github.com/ident-framework/ident-backend/pkg/user-management/utils"
)

func TestMain(m *testing.M) {
	// Light hashing parameters keep the suite fast.
	pwhash.InitArgonParams(8*1024, 1, 1)
	os.Exit(m.Run())
}

type sentMessage struct {
	To          string
	MessageType string
	Payload     map[string]string
}

// messageRecorder captures outgoing mail and SMS instead of delivering it.
type messageRecorder struct {
	mu       sync.Mutex
	Emails   []sentMessage
	SMSes    []sentMessage
	EmailErr error
}

func (r *messageRecorder) sendEmail(to string, messageType string, lang string, payload map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EmailErr != nil {
		return r.EmailErr
	}
	r.Emails = append(r.Emails, sentMessage{To: to, MessageType: messageType, Payload: payload})
	return nil
}

func (r *messageRecorder) sendSMS(to string, messageType string, lang string, payload map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SMSes = append(r.SMSes, sentMessage{To: to, MessageType: messageType, Payload: payload})
	return nil
}

func (r *messageRecorder) lastEmail(t *testing.T) sentMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Emails) == 0 {
		t.Fatal("expected an email to have been sent")
	}
	return r.Emails[len(r.Emails)-1]
}

func (r *messageRecorder) lastSMS(t *testing.T) sentMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.SMSes) == 0 {
		t.Fatal("expected an SMS to have been sent")
	}
	return r.SMSes[len(r.SMSes)-1]
}

func newTestTokenService() *tokens.Service {
	return tokens.NewService("test", map[tokens.Kind]tokens.KindConfig{
		tokens.KindAccess:       {SignKey: "access-test-secret", ExpiresIn: 15 * time.Minute},
		tokens.KindRefresh:      {SignKey: "refresh-test-secret", ExpiresIn: 24 * time.Hour},
		tokens.KindVerification: {SignKey: "verify-test-secret", ExpiresIn: 24 * time.Hour},
		tokens.KindReset:        {SignKey: "reset-test-secret", ExpiresIn: time.Hour},
		tokens.KindActivation:   {SignKey: "activate-test-secret", ExpiresIn: 24 * time.Hour},
	})
}

func newTestService() (*Service, *fakeStore, *messageRecorder) {
	store := newFakeStore()
	recorder := &messageRecorder{}
	service := NewService(store, newTestTokenService(), recorder.sendEmail, recorder.sendSMS, Config{
		TOTPIssuer:        "ident-test",
		TOTPEncryptionKey: "test-encryption-key",
		ChallengeTTL:      15 * time.Minute,
		SessionTTL:        24 * time.Hour,
	})
	return service, store, recorder
}

const testPassword = "Correct-horse-battery9"

// mustCreateUser seeds a verified, active account directly in the store.
func mustCreateUser(t *testing.T, store *fakeStore, email string, userName string) types.User {
	t.Helper()
	hash, err := pwhash.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := utils.InitNewUser(email, userName, hash, "en")
	user.Status.IsVerified = true
	userID, err := store.CreateUser(user)
	if err != nil {
		t.Fatalf("creating user: %v", err)
	}
	created, err := store.GetUserByID(userID)
	if err != nil {
		t.Fatalf("fetching user: %v", err)
	}
	return created
}

// wantAppError asserts the error is an AppError with the given code.
func wantAppError(t *testing.T, err error, code string) *apperrors.AppError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperrors.AppError, got %T: %v", err, err)
	}
	if appErr.Code != code {
		t.Fatalf("expected code %s, got %s (%v)", code, appErr.Code, appErr)
	}
	return appErr
}
