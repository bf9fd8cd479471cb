package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.client.Login(ctx, "alice@example.com", "wrong")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = env.client.Login(ctx, "nobody@example.com", "s3cret")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = env.client.Login(ctx, "", "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	require.NoError(t, env.client.Login(ctx, "alice@example.com", "s3cret"))
	assert.NotEmpty(t, env.client.token)
}

func TestCallsRequireToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.ListReminders(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = env.client.RunSweep(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestScheduleListDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.client.Login(ctx, "alice@example.com", "s3cret"))

	late, err := env.client.ScheduleReminder(ctx, services.ScheduleInput{
		Message: "later", ScheduledAt: "2025-02-01T09:00:00Z",
	})
	require.NoError(t, err)
	early, err := env.client.ScheduleReminder(ctx, services.ScheduleInput{
		Message: "Standup", ScheduledAt: "2025-01-01T09:00", Recipients: "a@x.io, b@y.io",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.io, b@y.io", early.Recipients)
	assert.True(t, early.ScheduledAt.Equal(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)))

	list, err := env.client.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.ID, list[0].ID)
	assert.Equal(t, late.ID, list[1].ID)
	assert.False(t, list[0].Sent)

	require.NoError(t, env.client.DeleteReminder(ctx, early.ID))
	assert.True(t, env.store.Reminder(early.ID).Deleted)

	// unknown and malformed ids are a no-op
	require.NoError(t, env.client.DeleteReminder(ctx, "not-a-uuid"))

	list, err = env.client.ListReminders(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "later", list[0].Message)
}

func TestScheduleValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.client.Login(ctx, "alice@example.com", "s3cret"))

	_, err := env.client.ScheduleReminder(ctx, services.ScheduleInput{
		Message: "x", ScheduledAt: "2025-01-01T09:00", Recipients: "bad-address",
	})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "One or more recipient emails are invalid.", status.Convert(err).Message())
	assert.Zero(t, env.store.ReminderCount())
}

func TestStoreFailureIsInternal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.client.Login(ctx, "alice@example.com", "s3cret"))
	env.store.ListErr = errors.New("connection reset")

	_, err := env.client.ListReminders(ctx)
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, "internal error", status.Convert(err).Message())
}

func TestRunSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.client.Login(ctx, "alice@example.com", "s3cret"))

	env.sweeper.rep = dispatcher.Report{Due: 3, Sent: 1, SkippedOwner: 1, Failed: 1}
	rep, err := env.client.RunSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, env.sweeper.rep, rep)

	env.sweeper.err = dispatcher.ErrRunnerStopped
	_, err = env.client.RunSweep(ctx)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestExportReminders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.ExportReminders(ctx)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	require.NoError(t, env.client.Login(ctx, "alice@example.com", "s3cret"))

	env.exporter.url = "http://s3.local/exports/a.json?sig=1"
	url, err := env.client.ExportReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, env.exporter.url, url)
	assert.Equal(t, aliceID, env.exporter.userID)

	env.exporter.err = errors.New("bucket missing")
	_, err = env.client.ExportReminders(ctx)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestToStatus(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{common.NewValidationError(common.ReasonInvalidTime, "bad time"), codes.InvalidArgument},
		{common.ErrorDuplicateEmail, codes.AlreadyExists},
		{common.ErrorBadCredentials, codes.Unauthenticated},
		{common.ErrorNotFound, codes.Unauthenticated},
		{common.ErrorStoreUnavailable, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(toStatus(tt.err)), tt.err.Error())
	}
}
