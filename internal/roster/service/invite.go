package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/store"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/idx"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

var (
	// ErrInvalidToken covers unknown, used and expired tokens alike.
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWeakPassword = errors.New("password does not meet policy")
)

// IssuedToken pairs the stored record with the raw value that goes into the
// outgoing link. The raw value is not recoverable later.
type IssuedToken struct {
	Raw   string
	Token domain.InviteToken
}

type InviteService struct {
	Store         store.Store
	EnrollmentTTL time.Duration
	ResetTTL      time.Duration
	Clock         Clock
}

func (s *InviteService) ttl(purpose domain.InvitePurpose) time.Duration {
	switch purpose {
	case domain.PurposeReset:
		if s.ResetTTL > 0 {
			return s.ResetTTL
		}
		return domain.DefaultResetTTL
	default:
		if s.EnrollmentTTL > 0 {
			return s.EnrollmentTTL
		}
		return domain.DefaultEnrollmentTTL
	}
}

// Issue creates a token for the member in its own transaction.
func (s *InviteService) Issue(
	ctx context.Context,
	memberID string,
	purpose domain.InvitePurpose,
) (IssuedToken, error) {
	var issued IssuedToken
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		issued, err = s.IssueIn(ctx, tx, memberID, purpose)
		return err
	})
	return issued, err
}

// IssueIn creates a token inside st. Every unused token of the member is
// invalidated first so only the newest link works.
func (s *InviteService) IssueIn(
	ctx context.Context,
	st store.Store,
	memberID string,
	purpose domain.InvitePurpose,
) (IssuedToken, error) {
	now := s.Clock.now()

	// 1. Generate random token
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return IssuedToken{}, err
	}

	// 2. Retire older links
	if _, err := st.InviteTokens().InvalidateOutstanding(ctx, memberID, now); err != nil {
		return IssuedToken{}, err
	}

	// 3. Store only the fingerprint
	tok := domain.InviteToken{
		ID:        idx.New().String(),
		MemberID:  memberID,
		TokenHash: cryptox.FingerprintToken(raw),
		Purpose:   purpose,
		ExpiresAt: now.Add(s.ttl(purpose)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.InviteTokens().CreateInviteToken(ctx, tok); err != nil {
		return IssuedToken{}, err
	}

	slogx.FromContext(ctx).Debug("invite token issued",
		slog.String("member_id", memberID),
		slog.String("token_id", tok.ID),
		slog.String("purpose", string(purpose)),
		slog.Time("expires_at", tok.ExpiresAt),
	)
	return IssuedToken{Raw: raw, Token: tok}, nil
}

// Validate is a read-only check of raw. It never changes token state.
func (s *InviteService) Validate(ctx context.Context, raw string) (domain.Member, domain.InviteToken, error) {
	tok, err := s.lookup(ctx, s.Store, raw)
	if err != nil {
		return domain.Member{}, domain.InviteToken{}, err
	}

	m, err := s.Store.Members().GetMemberByID(ctx, tok.MemberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Member{}, domain.InviteToken{}, ErrInvalidToken
		}
		return domain.Member{}, domain.InviteToken{}, err
	}
	return m, tok, nil
}

func (s *InviteService) lookup(ctx context.Context, st store.Store, raw string) (domain.InviteToken, error) {
	if raw == "" {
		return domain.InviteToken{}, ErrInvalidToken
	}

	tok, err := st.InviteTokens().GetInviteTokenByHash(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.InviteToken{}, ErrInvalidToken
		}
		return domain.InviteToken{}, err
	}
	if !tok.Valid(s.Clock.now()) {
		return domain.InviteToken{}, ErrInvalidToken
	}
	return tok, nil
}

// Consume redeems raw and sets password as the member's credential. An
// enrollment token also activates the member. Of two concurrent calls with
// the same token at most one succeeds.
func (s *InviteService) Consume(ctx context.Context, raw, password string) (domain.Member, error) {
	log := slogx.FromContext(ctx)

	// 1. Check password policy
	if err := cryptox.CheckPasswordPolicy(password); err != nil {
		return domain.Member{}, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	// 2. Hash outside the transaction
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.Member{}, err
	}

	var member domain.Member
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 3. Re-validate inside the transaction
		tok, err := s.lookup(ctx, tx, raw)
		if err != nil {
			return err
		}

		// 4. Compare-and-set on the used flag
		now := s.Clock.now()
		if err := tx.InviteTokens().ConsumeInviteToken(ctx, tok.ID, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidToken
			}
			return err
		}

		// 5. Apply the effect of the token
		if err := tx.Members().UpdatePasswordHash(ctx, tok.MemberID, hash, now); err != nil {
			return err
		}
		if tok.Purpose == domain.PurposeEnrollment {
			if err := tx.Members().ActivateMember(ctx, tok.MemberID, now); err != nil {
				return err
			}
		}

		member, err = tx.Members().GetMemberByID(ctx, tok.MemberID)
		if err != nil {
			return err
		}

		log.Info("invite token consumed",
			slog.String("member_id", member.ID),
			slog.String("token_id", tok.ID),
			slog.String("purpose", string(tok.Purpose)),
		)
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}
	return member, nil
}
