package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestInvite_IssueInvalidatesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	org := f.org(t, domain.KindSchool)
	f.importCSV(t, org, "email,full_name", "a@x.com,Aiko")
	m := f.member(t, org.ID, "a@x.com")

	first := lastToken(t, f.notifier.invites, "a@x.com")
	second, err := f.invites.Issue(ctx, m.ID, domain.PurposeEnrollment)
	require.NoError(t, err)

	_, _, err = f.invites.Validate(ctx, first)
	require.ErrorIs(t, err, ErrInvalidToken)

	got, tok, err := f.invites.Validate(ctx, second.Raw)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)
	require.Equal(t, domain.PurposeEnrollment, tok.Purpose)

	tokens, err := f.store.InviteTokens().ListInviteTokensByMember(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.NotNil(t, tokens[0].InvalidatedAt)
	require.Nil(t, tokens[0].ConsumedAt)
	require.Equal(t, cryptox.FingerprintToken(second.Raw), tokens[1].TokenHash, "only the fingerprint is stored")
}

func TestInvite_ValidateIsReadOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	org := f.org(t, domain.KindSchool)
	f.importCSV(t, org, "email,full_name", "a@x.com,Aiko")
	raw := lastToken(t, f.notifier.invites, "a@x.com")

	for range 3 {
		_, _, err := f.invites.Validate(ctx, raw)
		require.NoError(t, err)
	}

	_, _, err := f.invites.Validate(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = f.invites.Validate(ctx, "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestInvite_ConsumeEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	org := f.org(t, domain.KindSchool)
	f.importCSV(t, org, "email,full_name", "a@x.com,Aiko")
	raw := lastToken(t, f.notifier.invites, "a@x.com")

	m, err := f.invites.Consume(ctx, raw, "Passw0rdA")
	require.NoError(t, err)
	require.Equal(t, domain.StateActive, m.State)
	require.NotNil(t, m.ActivatedAt)
	require.NoError(t, cryptox.VerifyPassword("Passw0rdA", m.PasswordHash))

	_, err = f.invites.Consume(ctx, raw, "Passw0rdB")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = f.invites.Validate(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidToken)

	tokens, err := f.store.InviteTokens().ListInviteTokensByMember(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	require.True(t, tokens[0].Used)
	require.NotNil(t, tokens[0].ConsumedAt)
}

func TestInvite_WeakPasswordKeepsToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	org := f.org(t, domain.KindSchool)
	f.importCSV(t, org, "email,full_name", "a@x.com,Aiko")
	raw := lastToken(t, f.notifier.invites, "a@x.com")

	_, err := f.invites.Consume(ctx, raw, "short")
	require.ErrorIs(t, err, ErrWeakPassword)

	var policy *cryptox.PasswordPolicyError
	require.ErrorAs(t, err, &policy)

	_, _, err = f.invites.Validate(ctx, raw)
	require.NoError(t, err)
}

func TestInvite_Expiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	org := f.org(t, domain.KindSchool)
	f.importCSV(t, org, "email,full_name", "a@x.com,Aiko")
	raw := lastToken(t, f.notifier.invites, "a@x.com")

	f.advance(domain.DefaultEnrollmentTTL - time.Second)
	_, _, err := f.invites.Validate(ctx, raw)
	require.NoError(t, err)

	f.advance(time.Second)
	_, _, err = f.invites.Validate(ctx, raw)
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.invites.Consume(ctx, raw, "Passw0rdA")
	require.ErrorIs(t, err, ErrInvalidToken)

	require.Equal(t, domain.StatePending, f.member(t, org.ID, "a@x.com").State)
}

func TestInvite_ResetKeepsActivation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	org := f.org(t, domain.KindSchool)
	f.importCSV(t, org, "email,full_name", "a@x.com,Aiko")
	active := f.activate(t, "a@x.com", "Passw0rdA")

	issued, err := f.invites.Issue(ctx, active.ID, domain.PurposeReset)
	require.NoError(t, err)
	require.WithinDuration(t, f.now.Add(domain.DefaultResetTTL), issued.Token.ExpiresAt, 0)

	m, err := f.invites.Consume(ctx, issued.Raw, "NewPassw0rd")
	require.NoError(t, err)
	require.Equal(t, domain.StateActive, m.State)
	require.Equal(t, active.ActivatedAt, m.ActivatedAt)
	require.NoError(t, cryptox.VerifyPassword("NewPassw0rd", m.PasswordHash))
}

func TestInvite_ConcurrentConsume(t *testing.T) {
	fixtures := []struct {
		name string
		open func(*testing.T) *fixture
	}{
		{"memory", newFixture},
		{"file", newFileFixture},
	}

	for _, tt := range fixtures {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := tt.open(t)
			org := f.org(t, domain.KindSchool)
			f.importCSV(t, org, "email,full_name", "a@x.com,Aiko")
			raw := lastToken(t, f.notifier.invites, "a@x.com")

			const attempts = 8
			var (
				wg      sync.WaitGroup
				start   = make(chan struct{})
				results = make([]error, attempts)
			)
			for i := range attempts {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, results[i] = f.invites.Consume(ctx, raw, "Passw0rdA")
				}()
			}
			close(start)
			wg.Wait()

			var ok int
			for _, err := range results {
				if err == nil {
					ok++
					continue
				}
				require.ErrorIs(t, err, ErrInvalidToken, "losers get the uniform token error")
			}
			require.Equal(t, 1, ok)
			require.Equal(t, domain.StateActive, f.member(t, org.ID, "a@x.com").State)
		})
	}
}
