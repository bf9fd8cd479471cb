package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/memory"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

const (
	testSecret = "grpc-test-secret"
	aliceID    = "3f2c8a4e-5b6d-4e7f-8a9b-0c1d2e3f4a5b"
)

type fakeAccounts struct{}

func (fakeAccounts) VerifyLogin(_ context.Context, email, password string) (*models.User, error) {
	if email != "alice@example.com" {
		return nil, common.ErrorNotFound
	}
	if password != "s3cret" {
		return nil, common.ErrorBadCredentials
	}
	return &models.User{ID: aliceID, Email: email}, nil
}

type fakeSweeper struct {
	rep dispatcher.Report
	err error
}

func (f *fakeSweeper) RunNow(context.Context) (dispatcher.Report, error) {
	return f.rep, f.err
}

type fakeExporter struct {
	url    string
	err    error
	userID string
}

func (f *fakeExporter) Export(_ context.Context, userID string) (string, error) {
	f.userID = userID
	return f.url, f.err
}

type testEnv struct {
	store    *memory.Store
	sweeper  *fakeSweeper
	exporter *fakeExporter
	client   *Client
}

// newTestEnv serves a GRPCServer over an in-memory listener and returns a
// connected client.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{store: memory.New(), sweeper: &fakeSweeper{}, exporter: &fakeExporter{}}
	reminders := services.NewReminderService(nil, env.store, time.UTC, nopLogger{})
	s := NewGRPCServer("bufnet", nopLogger{}, fakeAccounts{}, reminders, env.sweeper, env.exporter, testSecret, time.Hour)

	lis := bufconn.Listen(1 << 20)
	srv := s.NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env.client = NewClient(conn)
	return env
}
