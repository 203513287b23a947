package usermanagement

import (
	"time"

	"github.com/ident-framework/ident-backend/pkg/tokens"
)

// Message types the delivery collaborators understand.
const (
	MESSAGE_TYPE_VERIFY_EMAIL     = "verify-email"
	MESSAGE_TYPE_PASSWORD_RESET   = "password-reset"
	MESSAGE_TYPE_PASSWORD_CHANGED = "password-changed"
	MESSAGE_TYPE_ACCOUNT_ACTIVATE = "account-activation"
	MESSAGE_TYPE_OTP_CODE         = "otp-code"
)

const (
	MAX_CHALLENGE_ATTEMPTS = 3

	DEFAULT_CHALLENGE_TTL = 15 * time.Minute
	DEFAULT_SESSION_TTL   = 24 * time.Hour
)

// EmailSender delivers a templated message to one address. Fire-and-forget
// behavior outside production lives behind this function, not in the core.
type EmailSender func(to string, messageType string, lang string, payload map[string]string) error

type SMSSender func(to string, messageType string, lang string, payload map[string]string) error

type Config struct {
	TOTPIssuer          string
	TOTPEncryptionKey   string
	ChallengeTTL        time.Duration
	SessionTTL          time.Duration
	SignupRateWindow    time.Duration
	MaxSignupsPerWindow int64
}

// Service holds the login orchestrator, the session registry and the four
// second-factor engines. All collaborators are injected; there is no
// package-level state.
type Service struct {
	store     Store
	tokens    *tokens.Service
	sendEmail EmailSender
	sendSMS   SMSSender
	cfg       Config
}

func NewService(
	store Store,
	tokenService *tokens.Service,
	sendEmail EmailSender,
	sendSMS SMSSender,
	cfg Config,
) *Service {
	if cfg.ChallengeTTL == 0 {
		cfg.ChallengeTTL = DEFAULT_CHALLENGE_TTL
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DEFAULT_SESSION_TTL
	}
	return &Service{
		store:     store,
		tokens:    tokenService,
		sendEmail: sendEmail,
		sendSMS:   sendSMS,
		cfg:       cfg,
	}
}
