package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind labels a token family. Each kind signs with its own secret and TTL,
// so a token can never be replayed as another kind even when the claim
// structure matches.
type Kind string

const (
	KindAccess       Kind = "access"
	KindRefresh      Kind = "refresh"
	KindVerification Kind = "verification"
	KindReset        Kind = "reset"
	KindActivation   Kind = "activation"
)

var (
	ErrTokenExpired   = errors.New("token is expired")
	ErrTokenMalformed = errors.New("token is malformed or forged")
	ErrUnknownKind    = errors.New("unknown token kind")
)

// Information a token encodes
type Claims struct {
	Role      string `json:"role,omitempty"`
	Label     string `json:"label"`
	Origin    string `json:"origin,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

type KindConfig struct {
	SignKey   string
	ExpiresIn time.Duration
}

type Service struct {
	origin string
	kinds  map[Kind]KindConfig
}

func NewService(origin string, kinds map[Kind]KindConfig) *Service {
	return &Service{
		origin: origin,
		kinds:  kinds,
	}
}

func (s *Service) TTL(kind Kind) time.Duration {
	return s.kinds[kind].ExpiresIn
}

// Issue signs a token of the given kind for the account.
func (s *Service) Issue(kind Kind, accountID string, role string, sessionID string) (string, error) {
	conf, ok := s.kinds[kind]
	if !ok {
		return "", ErrUnknownKind
	}

	claims := Claims{
		Role:      role,
		Label:     string(kind),
		Origin:    s.origin,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			// A fresh jti per issue keeps two tokens minted within the same
			// second distinct, so rotation always yields a new pair.
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(conf.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   accountID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(conf.SignKey))
}

// Verify parses and validates a token of the given kind. Expiry and
// forgery are reported as distinct errors; a structurally valid token of a
// different kind fails as malformed.
func (s *Service) Verify(kind Kind, tokenString string) (*Claims, error) {
	conf, ok := s.kinds[kind]
	if !ok {
		return nil, ErrUnknownKind
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(conf.SignKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.Label != string(kind) {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
