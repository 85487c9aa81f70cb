//go:build e2e

package roster_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Liveness(t *testing.T) {
	svc := setupRosterContainer(t, false)

	health, err := svc.Client.GetLiveness(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}

func TestHealth_Readiness(t *testing.T) {
	svc := setupRosterContainer(t, false)

	health, err := svc.Client.GetReadiness(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
	require.NotNil(t, health.Checks)
	assert.Equal(t, "ok", health.Checks.Database)
	assert.Equal(t, "ok", health.Checks.Signer)
}

func TestHealth_Metrics(t *testing.T) {
	svc := setupRosterContainer(t, false)

	resp, err := http.Get(svc.BaseURL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}
