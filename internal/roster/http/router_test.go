package http_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	rosterhttp "github.com/koki-kondo/mind-status-app/internal/roster/http"
	"github.com/koki-kondo/mind-status-app/internal/roster/notify"
	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/internal/roster/store/drivers/sqlite"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/jwtx"
	"github.com/koki-kondo/mind-status-app/pkg/rostersdk"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const (
	adminEmail    = "admin@north.example"
	adminPassword = "Passw0rdA"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "roster-http")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type outbox struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (o *outbox) SendInvitation(_ context.Context, m notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, m)
	return nil
}

func (o *outbox) SendPasswordReset(ctx context.Context, m notify.Message) error {
	return o.SendInvitation(ctx, m)
}

// token returns the raw token of the newest message to email, or "".
func (o *outbox) token(t *testing.T, email string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].To == email {
			u, err := url.Parse(o.sent[i].Link)
			require.NoError(t, err)
			return u.Query().Get("token")
		}
	}
	return ""
}

type env struct {
	srv    *httptest.Server
	client *rostersdk.Client
	outbox *outbox
}

func newEnv(t *testing.T, maxUpload int64) *env {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	key, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	signer, err := jwtx.NewSigner("test", key)
	require.NoError(t, err)
	verifier := jwtx.NewVerifier("test", signer.PublicKey(), "roster-test")

	reg := prometheus.NewRegistry()
	metrics := service.NewImportMetrics(reg)
	box := &outbox{}
	invites := &service.InviteService{Store: st}

	r := rosterhttp.NewRouter(signer, verifier, reg, "test", st, slogx.Discard())
	r.AuthService = &service.AuthService{Store: st, Signer: signer, Issuer: "roster-test"}
	r.InviteService = invites
	r.AccountService = &service.AccountService{
		Store:       st,
		Invites:     invites,
		Notifier:    box,
		Metrics:     metrics,
		FrontendURL: "https://app.example.com",
	}
	r.ImportService = &service.ImportService{
		Store:       st,
		Reconciler:  &service.Reconciler{},
		Invites:     invites,
		Notifier:    box,
		Limiter:     service.NewUploadLimiter(1),
		Metrics:     metrics,
		FrontendURL: "https://app.example.com",
	}
	r.MaxUploadBytes = maxUpload
	r.ApplyRoutes()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &env{srv: srv, client: rostersdk.NewClient(srv.URL), outbox: box}
}

// adminToken registers an organization of kind and signs its admin in.
func (e *env) adminToken(t *testing.T, kind string) string {
	t.Helper()
	ctx := context.Background()

	_, err := e.client.RegisterOrganization(ctx, "", rostersdk.RegisterOrganizationRequest{
		OrganizationName: "North " + kind,
		Kind:             kind,
		AdminEmail:       adminEmail,
		AdminName:        "Principal",
		AdminPassword:    adminPassword,
	})
	require.NoError(t, err)

	login, err := e.client.Login(ctx, rostersdk.LoginRequest{Email: adminEmail, Password: adminPassword})
	require.NoError(t, err)
	return login.AccessToken
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *rostersdk.APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, status, apiErr.StatusCode)
	assert.Equal(t, code, apiErr.Code)
}

func TestEnrollmentFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	admin := e.adminToken(t, "SCHOOL")

	// 1. Import
	report, err := e.client.ImportRoster(ctx, admin, "roster.csv", strings.NewReader(
		"email,full_name,grade,class_name\n"+
			"aiko@north.example,Aiko,'1,1-A\n"+
			"aiko@north.example,Aiko2,,\n",
	))
	require.NoError(t, err)
	require.Equal(t, 1, report.SuccessCount)
	require.Equal(t, 1, report.ErrorCount)
	require.Equal(t, 3, report.Errors[0].Row)
	require.Equal(t, "aiko@north.example", *report.Errors[0].Email)

	raw := e.outbox.token(t, "aiko@north.example")
	require.NotEmpty(t, raw)

	// 2. Pending members cannot sign in
	_, err = e.client.Login(ctx, rostersdk.LoginRequest{Email: "aiko@north.example", Password: "Passw0rdB"})
	requireAPIError(t, err, http.StatusUnauthorized, rostersdk.ErrorCodeInvalidCredentials)

	// 3. Verify does not consume
	for range 2 {
		info, err := e.client.VerifyInvite(ctx, raw)
		require.NoError(t, err)
		require.True(t, info.Valid)
		require.Equal(t, "Aiko", info.FullName)
		require.Equal(t, "ENROLLMENT", info.Purpose)
	}

	// 4. Enrollment tokens are not accepted as reset tokens
	_, err = e.client.ResetPassword(ctx, rostersdk.AcceptInviteRequest{Token: raw, Password: "Passw0rdB"})
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeInvalidToken)

	// 5. Weak password keeps the link usable
	_, err = e.client.AcceptInvite(ctx, rostersdk.AcceptInviteRequest{Token: raw, Password: "weak"})
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeWeakPassword)

	member, err := e.client.AcceptInvite(ctx, rostersdk.AcceptInviteRequest{Token: raw, Password: "Passw0rdB"})
	require.NoError(t, err)
	require.Equal(t, "ACTIVE", member.State)
	require.Equal(t, "MEMBER", member.Role)

	_, err = e.client.AcceptInvite(ctx, rostersdk.AcceptInviteRequest{Token: raw, Password: "Passw0rdB"})
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeInvalidToken)
	_, err = e.client.VerifyInvite(ctx, raw)
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeInvalidToken)

	// 6. Sign in, members cannot import
	login, err := e.client.Login(ctx, rostersdk.LoginRequest{Email: "aiko@north.example", Password: "Passw0rdB"})
	require.NoError(t, err)
	me, err := e.client.Me(ctx, login.AccessToken)
	require.NoError(t, err)
	require.Equal(t, member.ID, me.ID)

	_, err = e.client.ImportRoster(ctx, login.AccessToken, "roster.csv", strings.NewReader("email\n"))
	var apiErr *rostersdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)

	// 7. Re-import of an active member is a row error
	report, err = e.client.ImportRoster(ctx, admin, "again.csv", strings.NewReader(
		"email,full_name\naiko@north.example,Changed\n",
	))
	require.NoError(t, err)
	require.Equal(t, 0, report.SuccessCount)
	require.Equal(t, 1, report.ErrorCount)

	runs, err := e.client.ListImportRuns(ctx, admin, 0)
	require.NoError(t, err)
	require.Len(t, runs.Runs, 2)
	require.Equal(t, "again.csv", runs.Runs[0].Filename)
}

func TestPasswordFlows(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	admin := e.adminToken(t, "COMPANY")

	require.NoError(t, e.client.RequestPasswordReset(ctx, "nobody@north.example"))
	require.Empty(t, e.outbox.token(t, "nobody@north.example"))

	require.NoError(t, e.client.RequestPasswordReset(ctx, adminEmail))
	raw := e.outbox.token(t, adminEmail)
	require.NotEmpty(t, raw)

	// Reset tokens are not enrollment tokens
	_, err := e.client.AcceptInvite(ctx, rostersdk.AcceptInviteRequest{Token: raw, Password: "Fresh1234"})
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeInvalidToken)

	m, err := e.client.ResetPassword(ctx, rostersdk.AcceptInviteRequest{Token: raw, Password: "Fresh1234"})
	require.NoError(t, err)
	require.Equal(t, "ADMIN", m.Role)

	_, err = e.client.Login(ctx, rostersdk.LoginRequest{Email: adminEmail, Password: adminPassword})
	requireAPIError(t, err, http.StatusUnauthorized, rostersdk.ErrorCodeInvalidCredentials)

	err = e.client.ChangePassword(ctx, admin, rostersdk.ChangePasswordRequest{CurrentPassword: "Fresh1234", NewPassword: "short"})
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeWeakPassword)
	err = e.client.ChangePassword(ctx, admin, rostersdk.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "Other1234"})
	requireAPIError(t, err, http.StatusUnauthorized, rostersdk.ErrorCodeInvalidCredentials)
	require.NoError(t, e.client.ChangePassword(ctx, admin, rostersdk.ChangePasswordRequest{CurrentPassword: "Fresh1234", NewPassword: "Other1234"}))

	_, err = e.client.Login(ctx, rostersdk.LoginRequest{Email: adminEmail, Password: "Other1234"})
	require.NoError(t, err)
}

func TestRegisterOrganization_Errors(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	e.adminToken(t, "SCHOOL")

	_, err := e.client.RegisterOrganization(ctx, "", rostersdk.RegisterOrganizationRequest{
		OrganizationName: "North SCHOOL",
		Kind:             "SCHOOL",
		AdminEmail:       "other@north.example",
		AdminName:        "Other",
		AdminPassword:    adminPassword,
	})
	requireAPIError(t, err, http.StatusConflict, rostersdk.ErrorCodeConflict)

	_, err = e.client.RegisterOrganization(ctx, "", rostersdk.RegisterOrganizationRequest{Kind: "hospital"})
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest)
}

func TestImport_Rejections(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 1<<10)
	admin := e.adminToken(t, "SCHOOL")

	_, err := e.client.ImportRoster(ctx, "", "roster.csv", strings.NewReader("email\n"))
	requireAPIError(t, err, http.StatusUnauthorized, "invalid_token")

	_, err = e.client.ImportRoster(ctx, admin, "roster.xls", strings.NewReader("email\n"))
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeUnsupportedFile)

	_, err = e.client.ImportRoster(ctx, admin, "roster.csv", strings.NewReader("full_name\nAiko\n"))
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeUnsupportedFile)

	big := "email\n" + strings.Repeat("someone@north.example\n", 100)
	_, err = e.client.ImportRoster(ctx, admin, "roster.csv", strings.NewReader(big))
	requireAPIError(t, err, http.StatusRequestEntityTooLarge, rostersdk.ErrorCodeFileTooLarge)
}

func TestTemplate(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	admin := e.adminToken(t, "SCHOOL")

	csv, err := e.client.DownloadTemplate(ctx, admin, "csv")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(bytes.TrimPrefix(csv, []byte("\xef\xbb\xbf"))), "full_name,"))

	xlsx, err := e.client.DownloadTemplate(ctx, admin, "xlsx")
	require.NoError(t, err)
	wb, err := excelize.OpenReader(bytes.NewReader(xlsx))
	require.NoError(t, err)
	require.Contains(t, wb.GetSheetList(), "SCHOOL")
	require.NoError(t, wb.Close())

	_, err = e.client.DownloadTemplate(ctx, admin, "pdf")
	requireAPIError(t, err, http.StatusBadRequest, rostersdk.ErrorCodeInvalidRequest)
}

func TestSystemEndpoints(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)

	live, err := e.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)

	ready, err := e.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Checks.Database)

	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
