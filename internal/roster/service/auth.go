package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
	"github.com/koki-kondo/mind-status-app/internal/roster/store"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/jwtx"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

var ErrInvalidCredentials = errors.New("invalid_credentials")

type Session struct {
	AccessToken string
	ExpiresAt   time.Time
	Member      domain.Member
}

type AuthService struct {
	Store  store.Store
	Signer *jwtx.Signer
	Issuer string
	TTL    time.Duration
	Clock  Clock
}

// Login checks email and password against active members. The same email
// may exist in several organizations; orgID narrows the search, otherwise
// the oldest member whose password matches wins.
func (s *AuthService) Login(ctx context.Context, email, password, orgID string) (Session, error) {
	l := slogx.FromContext(ctx)

	email = normalize.Email(email)
	if email == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}

	candidates, err := s.Store.Members().ListActiveMembersByEmail(ctx, email)
	if err != nil {
		return Session{}, err
	}

	var member *domain.Member
	for i := range candidates {
		c := candidates[i]
		if orgID != "" && c.OrganizationID != orgID {
			continue
		}
		if cryptox.VerifyPassword(password, c.PasswordHash) == nil {
			member = &c
			break
		}
	}
	if member == nil {
		l.Info("login failed", slog.Int("candidates", len(candidates)))
		return Session{}, ErrInvalidCredentials
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	now := s.Clock.now()
	claims := jwtx.NewSessionClaims(
		member.ID,
		member.OrganizationID,
		string(member.Role),
		member.Profile.FullName,
		s.Issuer,
		ttl,
		now,
	)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		l.Error("failed to sign session token", slog.Any("error", err))
		return Session{}, err
	}

	l.Info("member signed in",
		slog.String("member_id", member.ID),
		slog.String("org_id", member.OrganizationID),
	)
	return Session{AccessToken: token, ExpiresAt: now.Add(ttl), Member: *member}, nil
}
