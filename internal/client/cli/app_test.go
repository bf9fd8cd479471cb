package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeRegistrar struct {
	got services.RegisterInput
	err error
}

func (f *fakeRegistrar) Register(_ context.Context, in services.RegisterInput) (*models.User, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: "u-1", Email: in.Email}, nil
}

type fakeSweeper struct {
	at  time.Time
	rep dispatcher.Report
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) dispatcher.Report {
	f.at = now
	return f.rep
}

type fakeRemote struct {
	email, password string
	loginErr        error

	reminders []*models.Reminder
	scheduled services.ScheduleInput
	deleted   string
	rep       dispatcher.Report
	exportURL string
	err       error
}

func (f *fakeRemote) Login(_ context.Context, email, password string) error {
	f.email, f.password = email, password
	return f.loginErr
}

func (f *fakeRemote) ListReminders(context.Context) ([]*models.Reminder, error) {
	return f.reminders, f.err
}

func (f *fakeRemote) ScheduleReminder(_ context.Context, in services.ScheduleInput) (*models.Reminder, error) {
	f.scheduled = in
	if f.err != nil {
		return nil, f.err
	}
	return &models.Reminder{ID: "r-1", ScheduledAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeRemote) DeleteReminder(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

func (f *fakeRemote) RunSweep(context.Context) (dispatcher.Report, error) {
	return f.rep, f.err
}

func (f *fakeRemote) ExportReminders(context.Context) (string, error) {
	return f.exportURL, f.err
}

func newTestApp(input string, opts ...Option) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	opts = append([]Option{WithLocation(time.UTC)}, opts...)
	return NewApp(strings.NewReader(input), &out, opts...), &out
}

func TestExecute_Help(t *testing.T) {
	app, out := newTestApp("")
	require.NoError(t, app.Execute(context.Background(), "", nil))
	assert.Contains(t, out.String(), "Usage: remindctl")

	err := app.Execute(context.Background(), "frobnicate", nil)
	require.ErrorIs(t, err, ErrUnknownCommand)
}

func TestExecute_NotConfigured(t *testing.T) {
	app, _ := newTestApp("")
	for _, cmd := range []string{CmdRegister, CmdSweep, CmdList, CmdSchedule, CmdRemoteSweep, CmdExport} {
		require.ErrorIs(t, app.Execute(context.Background(), cmd, nil), ErrNotConfigured, cmd)
	}
}

func TestRegister(t *testing.T) {
	stubPasswords(t, "mail-app-pw", "login-pw")
	reg := &fakeRegistrar{}
	app, out := newTestApp("Ann\nann@example.com\n", WithRegistrar(reg))

	require.NoError(t, app.Execute(context.Background(), CmdRegister, nil))
	assert.Equal(t, services.RegisterInput{
		Name:          "Ann",
		Email:         "ann@example.com",
		MailPassword:  "mail-app-pw",
		LoginPassword: "login-pw",
	}, reg.got)
	assert.Contains(t, out.String(), "Registered ann@example.com (u-1)")
	assert.NotContains(t, out.String(), "login-pw")
}

func TestRegister_Duplicate(t *testing.T) {
	stubPasswords(t, "a", "b")
	reg := &fakeRegistrar{err: common.ErrorDuplicateEmail}
	app, _ := newTestApp("Ann\nann@example.com\n", WithRegistrar(reg))

	err := app.Execute(context.Background(), CmdRegister, nil)
	require.ErrorIs(t, err, common.ErrorDuplicateEmail)
}

func TestSweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sw := &fakeSweeper{rep: dispatcher.Report{Due: 2, Sent: 1, Failed: 1}}
	app, out := newTestApp("", WithSweeper(sw))
	app.now = func() time.Time { return now }

	require.NoError(t, app.Execute(context.Background(), CmdSweep, nil))
	assert.Equal(t, now, sw.at)
	assert.Contains(t, out.String(), "due: 2, sent: 1")
	assert.Contains(t, out.String(), "failed: 1")
}

func TestList(t *testing.T) {
	stubPasswords(t, "s3cret")
	remote := &fakeRemote{reminders: []*models.Reminder{
		{ID: "r-1", Message: "Standup\nbring notes", ScheduledAt: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "r-2", Message: "Call", Recipients: "a@x.io", ScheduledAt: time.Date(2025, 1, 2, 10, 30, 0, 0, time.UTC)},
	}}
	app, out := newTestApp("alice@example.com\n", WithRemote(remote))

	require.NoError(t, app.Execute(context.Background(), CmdList, nil))
	assert.Equal(t, "alice@example.com", remote.email)
	assert.Equal(t, "s3cret", remote.password)

	s := out.String()
	assert.Contains(t, s, "2025-01-01 09:00")
	assert.Contains(t, s, "(you)")
	assert.Contains(t, s, "Standup")
	assert.NotContains(t, s, "bring notes")
	assert.Contains(t, s, "a@x.io")
}

func TestList_Empty(t *testing.T) {
	stubPasswords(t, "s3cret")
	app, out := newTestApp("alice@example.com\n", WithRemote(&fakeRemote{}))

	require.NoError(t, app.Execute(context.Background(), CmdList, nil))
	assert.Contains(t, out.String(), "No reminders scheduled.")
}

func TestLoginFailureShowsStatusMessage(t *testing.T) {
	stubPasswords(t, "wrong")
	remote := &fakeRemote{loginErr: status.Error(codes.Unauthenticated, "unauthorized")}
	app, _ := newTestApp("alice@example.com\n", WithRemote(remote))

	err := app.Execute(context.Background(), CmdList, nil)
	require.Error(t, err)
	assert.Equal(t, "unauthorized", err.Error())
}

func TestSchedule(t *testing.T) {
	stubPasswords(t, "s3cret")
	remote := &fakeRemote{}
	input := "alice@example.com\nline one\nline two\n\n2025-01-01T09:00\na@x.io, b@y.io\n"
	app, out := newTestApp(input, WithRemote(remote))

	require.NoError(t, app.Execute(context.Background(), CmdSchedule, nil))
	assert.Equal(t, services.ScheduleInput{
		Message:     "line one\nline two",
		ScheduledAt: "2025-01-01T09:00",
		Recipients:  "a@x.io, b@y.io",
	}, remote.scheduled)
	assert.Contains(t, out.String(), "Scheduled r-1 for 2025-01-01 09:00")
}

func TestSchedule_Rejected(t *testing.T) {
	stubPasswords(t, "s3cret")
	remote := &fakeRemote{err: status.Error(codes.InvalidArgument, "Invalid email.")}
	app, _ := newTestApp("alice@example.com\nhi\n\n2025-01-01T09:00\nnope\n", WithRemote(remote))

	err := app.Execute(context.Background(), CmdSchedule, nil)
	require.EqualError(t, err, "Invalid email.")
}

func TestDelete(t *testing.T) {
	remote := &fakeRemote{}
	app, _ := newTestApp("", WithRemote(remote))
	require.EqualError(t, app.Execute(context.Background(), CmdDelete, nil), "usage: delete <id>")

	stubPasswords(t, "s3cret")
	app, out := newTestApp("alice@example.com\n", WithRemote(remote))
	require.NoError(t, app.Execute(context.Background(), CmdDelete, []string{"r-9"}))
	assert.Equal(t, "r-9", remote.deleted)
	assert.Contains(t, out.String(), "Deleted.")
}

func TestRemoteSweep(t *testing.T) {
	stubPasswords(t, "s3cret", "s3cret")
	remote := &fakeRemote{rep: dispatcher.Report{Due: 1, Sent: 1}}
	app, out := newTestApp("alice@example.com\n", WithRemote(remote))

	require.NoError(t, app.Execute(context.Background(), CmdRemoteSweep, nil))
	assert.Contains(t, out.String(), "due: 1, sent: 1")

	remote.err = status.Error(codes.Unavailable, "dispatcher stopped")
	app, _ = newTestApp("alice@example.com\n", WithRemote(remote))
	require.EqualError(t, app.Execute(context.Background(), CmdRemoteSweep, nil), "dispatcher stopped")
}

func TestExport(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"r-1"}]`))
	}))
	defer ts.Close()

	tmp := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	defer func() { _ = os.Chdir(old) }()

	stubPasswords(t, "s3cret")
	remote := &fakeRemote{exportURL: ts.URL + "/exports/x.json"}
	app, out := newTestApp("alice@example.com\n", WithRemote(remote), WithExportDir("out"))
	app.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, app.Execute(context.Background(), CmdExport, nil))

	b, err := os.ReadFile(filepath.Join("out", "reminders-20250301-120000.json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"r-1"}]`, string(b))
	assert.Contains(t, out.String(), "reminders-20250301-120000.json")
}

func TestExport_DownloadFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	stubPasswords(t, "s3cret")
	app, _ := newTestApp("alice@example.com\n", WithRemote(&fakeRemote{exportURL: ts.URL}))

	err := app.Execute(context.Background(), CmdExport, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "downloading export")
}

func TestSplitCommand(t *testing.T) {
	cmd, rest := SplitCommand([]string{"-r", ":50051", "delete", "r-1"})
	assert.Equal(t, "delete", cmd)
	assert.Equal(t, []string{"r-1"}, rest)

	cmd, rest = SplitCommand([]string{"-d", "postgres://x"})
	assert.Equal(t, "", cmd)
	assert.Nil(t, rest)
}

func TestDialTarget(t *testing.T) {
	assert.Equal(t, "localhost:50051", dialTarget(":50051"))
	assert.Equal(t, "reminders.internal:50051", dialTarget("reminders.internal:50051"))
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal(CmdRegister))
	assert.True(t, IsLocal(CmdSweep))
	assert.False(t, IsLocal(CmdRemoteSweep))
	assert.False(t, IsLocal(CmdList))
}
