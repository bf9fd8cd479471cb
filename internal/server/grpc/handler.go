package grpc

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/server/auth"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Message)
	case errors.Is(err, common.ErrorDuplicateEmail):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrorBadCredentials), errors.Is(err, common.ErrorUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func reminderToStruct(r *models.Reminder) (*structpb.Struct, error) {
	return structpb.NewStruct(reminderFields(r))
}

func reminderFields(r *models.Reminder) map[string]any {
	return map[string]any{
		"id":           r.ID,
		"message":      r.Message,
		"recipients":   r.Recipients,
		"scheduled_at": r.ScheduledAt.UTC().Format(time.RFC3339),
		"sent":         r.Sent,
	}
}

func (s *GRPCServer) Login(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	email := req.GetFields()["email"].GetStringValue()
	password := req.GetFields()["password"].GetStringValue()
	if email == "" || password == "" {
		return nil, status.Error(codes.InvalidArgument, "Email and password required.")
	}

	user, err := s.accounts.VerifyLogin(ctx, email, password)
	if err != nil {
		return nil, toStatus(err)
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.tokenValidity)
	if err != nil {
		s.logger.Error(ctx, "generating access token", "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}

	s.logger.Info(ctx, "Logged in", "user_id", user.ID)
	return wrapperspb.String(token), nil
}

func (s *GRPCServer) ListReminders(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	list, err := s.reminders.ListActive(ctx, userID)
	if err != nil {
		return nil, toStatus(err)
	}

	values := make([]any, 0, len(list))
	for _, r := range list {
		values = append(values, reminderFields(r))
	}

	out, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) ScheduleReminder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	f := req.GetFields()
	r, err := s.reminders.Schedule(ctx, userID, services.ScheduleInput{
		Message:     f["message"].GetStringValue(),
		ScheduledAt: f["scheduled_at"].GetStringValue(),
		Recipients:  f["recipients"].GetStringValue(),
	})
	if err != nil {
		return nil, toStatus(err)
	}

	out, err := reminderToStruct(r)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) DeleteReminder(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.reminders.SoftDelete(ctx, req.GetValue(), userID); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) RunSweep(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if _, err := userIDFrom(ctx); err != nil {
		return nil, err
	}
	if s.sweeper == nil {
		return nil, status.Error(codes.Unimplemented, "dispatcher not running")
	}

	rep, err := s.sweeper.RunNow(ctx)
	if err != nil {
		if errors.Is(err, dispatcher.ErrRunnerStopped) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.FromContextError(err).Err()
	}

	out, err := structpb.NewStruct(map[string]any{
		"due":             rep.Due,
		"sent":            rep.Sent,
		"skipped_owner":   rep.SkippedOwner,
		"skipped_decrypt": rep.SkippedDecrypt,
		"failed":          rep.Failed,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

func (s *GRPCServer) ExportReminders(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	userID, err := userIDFrom(ctx)
	if err != nil {
		return nil, err
	}
	if s.exporter == nil {
		return nil, status.Error(codes.Unimplemented, "export not configured")
	}

	url, err := s.exporter.Export(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "export failed", "user_id", userID, "error", err)
		return nil, status.Error(codes.Unavailable, "export failed")
	}
	return wrapperspb.String(url), nil
}
