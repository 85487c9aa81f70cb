package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/normalize"
	"github.com/koki-kondo/mind-status-app/internal/roster/notify"
	"github.com/koki-kondo/mind-status-app/internal/roster/store"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/idx"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
)

var (
	ErrInvalidRequest           = errors.New("invalid request")
	ErrRegistrationUnauthorized = errors.New("registration token rejected")
	ErrOrganizationExists       = errors.New("organization name already taken")
	ErrMemberNotFound           = errors.New("member not found")
)

type RegisterRequest struct {
	OrganizationName string
	Kind             string
	AdminEmail       string
	AdminName        string
	Password         string
}

type AccountService struct {
	Store             store.Store
	Invites           *InviteService
	Notifier          notify.Notifier
	Metrics           *ImportMetrics
	FrontendURL       string
	RegistrationToken string // empty leaves registration open
	Clock             Clock
}

// RegisterOrganization creates an organization together with its first,
// already active, administrator.
func (s *AccountService) RegisterOrganization(
	ctx context.Context,
	token string,
	req RegisterRequest,
) (domain.Organization, domain.Member, error) {
	l := slogx.FromContext(ctx)

	// 1. Gate
	if s.RegistrationToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(s.RegistrationToken)) != 1 {
		l.Warn("organization registration with bad token")
		return domain.Organization{}, domain.Member{}, ErrRegistrationUnauthorized
	}

	// 2. Validate input
	name := normalize.Value(req.OrganizationName)
	adminName := normalize.Value(req.AdminName)
	email := normalize.Email(req.AdminEmail)
	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		return domain.Organization{}, domain.Member{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if name == "" || adminName == "" || !strings.Contains(email, "@") {
		return domain.Organization{}, domain.Member{},
			fmt.Errorf("%w: organization name, admin name and admin email are required", ErrInvalidRequest)
	}
	if err := cryptox.CheckPasswordPolicy(req.Password); err != nil {
		return domain.Organization{}, domain.Member{}, fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	// 3. Hash password
	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return domain.Organization{}, domain.Member{}, err
	}

	// 4. Organization and admin in one transaction
	now := s.Clock.now()
	org := domain.Organization{
		ID:        idx.New().String(),
		Name:      name,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	admin := domain.Member{
		ID:             idx.New().String(),
		OrganizationID: org.ID,
		Email:          email,
		Role:           domain.RoleAdmin,
		State:          domain.StateActive,
		PasswordHash:   hash,
		Profile:        domain.Profile{FullName: adminName},
		ActivatedAt:    &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Organizations().CreateOrganization(ctx, org); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrOrganizationExists
			}
			return err
		}
		return tx.Members().CreateMember(ctx, admin)
	})
	if err != nil {
		return domain.Organization{}, domain.Member{}, err
	}

	l.Info("organization registered",
		slog.String("org_id", org.ID),
		slog.String("kind", string(kind)),
		slog.String("admin_id", admin.ID),
	)
	return org, admin, nil
}

// RequestPasswordReset sends a reset link to every active member using
// email. The caller learns nothing: unknown addresses and internal errors
// look the same as success.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) {
	l := slogx.FromContext(ctx)

	email = normalize.Email(email)
	if email == "" {
		return
	}

	members, err := s.Store.Members().ListActiveMembersByEmail(ctx, email)
	if err != nil {
		l.Error("failed to look up members for reset", slog.Any("error", err))
		return
	}
	if len(members) == 0 {
		l.Debug("password reset requested for unknown or pending email")
		return
	}

	for _, m := range members {
		issued, err := s.Invites.Issue(ctx, m.ID, domain.PurposeReset)
		if err != nil {
			l.Error("failed to issue reset token",
				slog.String("member_id", m.ID),
				slog.Any("error", err),
			)
			continue
		}

		orgName := ""
		if org, err := s.Store.Organizations().GetOrganizationByID(ctx, m.OrganizationID); err == nil {
			orgName = org.Name
		}

		err = s.Notifier.SendPasswordReset(ctx, notify.Message{
			To:           m.Email,
			Name:         m.Profile.FullName,
			Organization: orgName,
			Link:         tokenLink(s.FrontendURL, ResetPasswordPath, issued.Raw),
			ExpiresAt:    issued.Token.ExpiresAt,
		})
		s.Metrics.IncNotification("password_reset", err)
		if err != nil {
			l.Warn("failed to send password reset",
				slog.String("member_id", m.ID),
				slog.Any("error", err),
			)
		}
	}
}

// ChangePassword replaces the credential of a signed-in member.
func (s *AccountService) ChangePassword(ctx context.Context, memberID, current, next string) error {
	m, err := s.Store.Members().GetMemberByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	if m.State != domain.StateActive {
		return ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(current, m.PasswordHash); err != nil {
		slogx.FromContext(ctx).Info("password change with wrong current password",
			slog.String("member_id", memberID),
		)
		return ErrInvalidCredentials
	}
	if err := cryptox.CheckPasswordPolicy(next); err != nil {
		return fmt.Errorf("%w: %w", ErrWeakPassword, err)
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}
	return s.Store.Members().UpdatePasswordHash(ctx, memberID, hash, s.Clock.now())
}

// GetMember loads the signed-in member.
func (s *AccountService) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	m, err := s.Store.Members().GetMemberByID(ctx, memberID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Member{}, ErrMemberNotFound
	}
	return m, err
}
