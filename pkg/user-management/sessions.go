package usermanagement

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ident-framework/ident-backend/pkg/apperrors"
	"github.com/ident-framework/ident-backend/pkg/db"
	"github.com/ident-framework/ident-backend/pkg/tokens"
	"github.com/ident-framework/ident-backend/pkg/user-management/types"
)

// MintSession creates a fresh session row with a new token pair.
// Both tokens embed the session ID so either one can be traced back
// to its row.
func (s *Service) MintSession(userID string, role string) (types.TokenPair, error) {
	sessionID := uuid.NewString()

	accessToken, err := s.tokens.Issue(tokens.KindAccess, userID, role, sessionID)
	if err != nil {
		return types.TokenPair{}, apperrors.Internal(err)
	}
	refreshToken, err := s.tokens.Issue(tokens.KindRefresh, userID, role, sessionID)
	if err != nil {
		return types.TokenPair{}, apperrors.Internal(err)
	}

	session := types.Session{
		SessionID:    sessionID,
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateSession(session); err != nil {
		return types.TokenPair{}, apperrors.Internal(err)
	}

	return types.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.tokens.TTL(tokens.KindAccess).Seconds(),
	}, nil
}

// RenewSession rotates a session atomically: the row holding the presented
// refresh token is removed first, so replaying the same token afterwards
// fails even under concurrent renewals. The new pair keeps the session ID.
func (s *Service) RenewSession(refreshToken string) (types.TokenPair, error) {
	claims, err := s.tokens.Verify(tokens.KindRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return types.TokenPair{}, apperrors.Unauthorized(apperrors.CodeExpiredToken, "refresh token expired")
		}
		return types.TokenPair{}, apperrors.Unauthorized(apperrors.CodeInvalidToken, "refresh token invalid")
	}

	session, err := s.store.PopSessionByRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			// Valid signature but no row: the session was revoked or the
			// token was already rotated.
			return types.TokenPair{}, apperrors.Forbidden(apperrors.CodeSessionRevoked, "session revoked")
		}
		return types.TokenPair{}, apperrors.Internal(err)
	}
	if session.UserID != claims.Subject {
		return types.TokenPair{}, apperrors.Unauthorized(apperrors.CodeInvalidToken, "refresh token invalid")
	}

	accessToken, err := s.tokens.Issue(tokens.KindAccess, session.UserID, claims.Role, session.SessionID)
	if err != nil {
		return types.TokenPair{}, apperrors.Internal(err)
	}
	newRefreshToken, err := s.tokens.Issue(tokens.KindRefresh, session.UserID, claims.Role, session.SessionID)
	if err != nil {
		return types.TokenPair{}, apperrors.Internal(err)
	}

	fresh := types.Session{
		SessionID:    session.SessionID,
		UserID:       session.UserID,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		CreatedAt:    session.CreatedAt,
	}
	if err := s.store.CreateSession(fresh); err != nil {
		return types.TokenPair{}, apperrors.Internal(err)
	}

	return types.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    s.tokens.TTL(tokens.KindAccess).Seconds(),
	}, nil
}

// ValidateAccessToken checks signature and expiry, then confirms the session
// row still exists and still carries this exact token. A syntactically valid
// token whose session was revoked is rejected here.
func (s *Service) ValidateAccessToken(accessToken string) (*tokens.Claims, error) {
	claims, err := s.tokens.Verify(tokens.KindAccess, accessToken)
	if err != nil {
		if errors.Is(err, tokens.ErrTokenExpired) {
			return nil, apperrors.Unauthorized(apperrors.CodeExpiredToken, "access token expired")
		}
		return nil, apperrors.Unauthorized(apperrors.CodeInvalidToken, "access token invalid")
	}

	session, err := s.store.GetSessionBySessionID(claims.SessionID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, apperrors.Forbidden(apperrors.CodeSessionRevoked, "session revoked")
		}
		return nil, apperrors.Internal(err)
	}
	if session.UserID != claims.Subject {
		return nil, apperrors.Unauthorized(apperrors.CodeInvalidToken, "access token invalid")
	}
	if session.AccessToken != accessToken {
		// Rotated away: only the newest access token of a session is live.
		return nil, apperrors.Unauthorized(apperrors.CodeInvalidToken, "access token superseded")
	}
	if time.Now().After(s.sessionValidUntil(session)) {
		return nil, apperrors.Forbidden(apperrors.CodeSessionRevoked, "session expired")
	}
	return claims, nil
}

// CancelSession removes one session of the user. Removing the current
// session is an ordinary logout.
func (s *Service) CancelSession(userID string, sessionID string) error {
	count, err := s.store.DeleteSession(userID, sessionID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if count < 1 {
		return apperrors.NotFound(apperrors.CodeSessionNotFound, "session not found")
	}
	return nil
}

// RevokeAllSessions logs the user out everywhere.
func (s *Service) RevokeAllSessions(userID string) error {
	count, err := s.store.DeleteSessionsForUser(userID)
	if err != nil {
		return apperrors.Internal(err)
	}
	slog.Debug("revoked sessions", slog.String("userID", userID), slog.Int64("count", count))
	return nil
}

// sessionValidUntil computes the hard expiry of a session row. The store's
// TTL index evicts on the same boundary, this check just does not wait for
// the sweeper.
func (s *Service) sessionValidUntil(session types.Session) time.Time {
	return session.CreatedAt.Add(s.cfg.SessionTTL)
}

// ListSessions returns the user's sessions with validity derived from the
// session lifetime, valid ones first.
func (s *Service) ListSessions(userID string) ([]types.Session, error) {
	sessions, err := s.store.ListSessionsForUser(userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now()
	valid := make([]types.Session, 0, len(sessions))
	expired := make([]types.Session, 0)
	for _, session := range sessions {
		session.AccessToken = ""
		session.RefreshToken = ""
		session.IsValid = now.Before(s.sessionValidUntil(session))
		if session.IsValid {
			valid = append(valid, session)
		} else {
			expired = append(expired, session)
		}
	}
	return append(valid, expired...), nil
}
