//go:build e2e

package roster_test

import (
	"net/http"
	"testing"

	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport_EnrollmentLifecycle(t *testing.T) {
	svc := setupRosterContainer(t, false)
	ctx := t.Context()
	admin := svc.registerAndLogin(t, "North High", "SCHOOL")

	report, err := svc.Client.ImportRoster(ctx, admin, "roster.csv", csvRoster(
		"email,full_name,grade,class_name",
		"aiko@north.example,Aiko,1,1-A",
		"not-an-email,Broken,1,1-A",
	))
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount)
	require.Equal(t, 1, report.ErrorCount)
	assert.Equal(t, 3, report.Errors[0].Row)

	first := svc.latestToken(t, "aiko@north.example")

	// Importing the pending member again issues a fresh link
	_, err = svc.Client.ImportRoster(ctx, admin, "again.csv", csvRoster(
		"email,full_name,grade,class_name",
		"aiko@north.example,Aiko Sato,2,2-B",
	))
	require.NoError(t, err)

	second := svc.nextToken(t, "aiko@north.example", first)
	require.NotEqual(t, first, second)

	_, err = svc.Client.VerifyInvite(ctx, first)
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeInvalidToken)

	info, err := svc.Client.VerifyInvite(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "Aiko Sato", info.FullName)

	member, err := svc.Client.AcceptInvite(ctx, rostersdk.AcceptInviteRequest{Token: second, Password: "Passw0rdB"})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", member.State)

	login, err := svc.Client.Login(ctx, rostersdk.LoginRequest{Email: "aiko@north.example", Password: "Passw0rdB"})
	require.NoError(t, err)
	assert.Equal(t, "MEMBER", login.Member.Role)

	runs, err := svc.Client.ListImportRuns(ctx, admin, 10)
	require.NoError(t, err)
	assert.Len(t, runs.Runs, 2)
}

func TestImport_PasswordReset(t *testing.T) {
	svc := setupRosterContainer(t, false)
	ctx := t.Context()
	svc.registerAndLogin(t, "Acme", "COMPANY")

	require.NoError(t, svc.Client.RequestPasswordReset(ctx, adminEmail))
	token := svc.latestToken(t, adminEmail)

	_, err := svc.Client.ResetPassword(ctx, rostersdk.AcceptInviteRequest{Token: token, Password: "Another1Z"})
	require.NoError(t, err)

	_, err = svc.Client.Login(ctx, rostersdk.LoginRequest{Email: adminEmail, Password: adminPassword})
	requireAPIError(t, err, http.StatusUnauthorized, rostersdk.ErrorCodeInvalidCredentials)

	_, err = svc.Client.Login(ctx, rostersdk.LoginRequest{Email: adminEmail, Password: "Another1Z"})
	require.NoError(t, err)
}

func TestImport_Template(t *testing.T) {
	svc := setupRosterContainer(t, false)
	admin := svc.registerAndLogin(t, "Acme", "COMPANY")

	body, err := svc.Client.DownloadTemplate(t.Context(), admin, "xlsx")
	require.NoError(t, err)
	// XLSX files are zip archives
	require.Greater(t, len(body), 4)
	assert.Equal(t, "PK", string(body[:2]))
}
