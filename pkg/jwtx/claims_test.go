package jwtx_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/koki-kondo/mind-status-app/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "roster"}}

	require.NoError(t, c.ValidateIssuer("roster"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("other"), jwtx.ErrIssuer)
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	c := jwtx.NewSessionClaims("m1", "o1", "ADMIN", "", "roster", time.Hour, now)

	t.Run("inside window", func(t *testing.T) {
		require.NoError(t, c.ValidateExpiry(now.Add(30*time.Minute), 0))
	})

	t.Run("expired", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateExpiry(now.Add(2*time.Hour), 0), jwtx.ErrExpired)
	})

	t.Run("leeway tolerates skew", func(t *testing.T) {
		require.NoError(t, c.ValidateExpiry(now.Add(time.Hour+10*time.Second), 30*time.Second))
	})

	t.Run("not yet valid", func(t *testing.T) {
		require.ErrorIs(t, c.ValidateExpiry(now.Add(-time.Minute), 0), jwtx.ErrNotYetValid)
	})
}
