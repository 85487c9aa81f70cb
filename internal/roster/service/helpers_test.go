package service

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/notify"
	"github.com/koki-kondo/mind-status-app/internal/roster/store/drivers/sqlite"
	"github.com/koki-kondo/mind-status-app/pkg/cryptox"
	"github.com/koki-kondo/mind-status-app/pkg/idx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func ptr[T any](v T) *T { return &v }

type fakeNotifier struct {
	mu      sync.Mutex
	invites []notify.Message
	resets  []notify.Message
	err     error
}

func (n *fakeNotifier) SendInvitation(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.invites = append(n.invites, msg)
	return n.err
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resets = append(n.resets, msg)
	return n.err
}

// lastToken pulls the raw token out of the newest link sent to email.
func lastToken(t *testing.T, msgs []notify.Message, email string) string {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].To != email {
			continue
		}
		u, err := url.Parse(msgs[i].Link)
		require.NoError(t, err)
		return u.Query().Get("token")
	}
	t.Fatalf("no message sent to %s", email)
	return ""
}

type fixture struct {
	store    *sqlite.Store
	now      time.Time
	notifier *fakeNotifier
	registry *prometheus.Registry
	metrics  *ImportMetrics
	invites  *InviteService
	importer *ImportService
	accounts *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureDSN(t, ":memory:")
}

// newFileFixture runs on a database file with the production DSN, where
// concurrent callers hold separate connections.
func newFileFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureDSN(t, sqlite.FileDSN(filepath.Join(t.TempDir(), "roster.db")))
}

func newFixtureDSN(t *testing.T, dsn string) *fixture {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	f := &fixture{
		store:    st,
		now:      time.Now().UTC().Truncate(time.Millisecond),
		notifier: &fakeNotifier{},
		registry: prometheus.NewRegistry(),
	}
	clock := Clock(func() time.Time { return f.now })

	f.metrics = NewImportMetrics(f.registry)
	f.invites = &InviteService{Store: st, Clock: clock}
	f.importer = &ImportService{
		Store:       st,
		Reconciler:  &Reconciler{Clock: clock},
		Invites:     f.invites,
		Notifier:    f.notifier,
		Limiter:     NewUploadLimiter(2),
		Metrics:     f.metrics,
		FrontendURL: "https://app.example.com/",
		Clock:       clock,
	}
	f.accounts = &AccountService{
		Store:       st,
		Invites:     f.invites,
		Notifier:    f.notifier,
		Metrics:     f.metrics,
		FrontendURL: "https://app.example.com",
		Clock:       clock,
	}
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) org(t *testing.T, kind domain.Kind) domain.Organization {
	t.Helper()
	org := domain.Organization{ID: idx.New().String(), Name: "org " + idx.New().String(), Kind: kind}
	require.NoError(t, f.store.Organizations().CreateOrganization(context.Background(), org))
	return org
}

func (f *fixture) importCSV(t *testing.T, org domain.Organization, lines ...string) domain.BatchReport {
	t.Helper()
	report, err := f.importer.Import(context.Background(), ImportRequest{
		OrganizationID: org.ID,
		ActorID:        "admin-1",
		Filename:       "roster.csv",
		Body:           strings.NewReader(strings.Join(lines, "\n") + "\n"),
	})
	require.NoError(t, err)
	return report
}

func (f *fixture) member(t *testing.T, orgID, email string) domain.Member {
	t.Helper()
	m, err := f.store.Members().GetMemberByOrgAndEmail(context.Background(), orgID, email)
	require.NoError(t, err)
	return m
}

// activate consumes the newest invitation of email with a known password.
func (f *fixture) activate(t *testing.T, email, password string) domain.Member {
	t.Helper()
	m, err := f.invites.Consume(context.Background(), lastToken(t, f.notifier.invites, email), password)
	require.NoError(t, err)
	return m
}

var errSMTPDown = errors.New("smtp down")
