package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls ReminderService. After Login it attaches the access token to
// every call.
type Client struct {
	conn  grpc.ClientConnInterface
	token string
}

func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func (c *Client) authorized(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.token)
}

func (c *Client) Login(ctx context.Context, email, password string) error {
	in, err := structpb.NewStruct(map[string]any{"email": email, "password": password})
	if err != nil {
		return err
	}

	out := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(ctx, MethodLogin, in, out); err != nil {
		return err
	}

	c.token = out.GetValue()
	return nil
}

func (c *Client) ListReminders(ctx context.Context) ([]*models.Reminder, error) {
	out := &structpb.ListValue{}
	if err := c.conn.Invoke(c.authorized(ctx), MethodListReminders, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}

	list := make([]*models.Reminder, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		r, err := reminderFromStruct(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		list = append(list, r)
	}
	return list, nil
}

func (c *Client) ScheduleReminder(ctx context.Context, in services.ScheduleInput) (*models.Reminder, error) {
	req, err := structpb.NewStruct(map[string]any{
		"message":      in.Message,
		"scheduled_at": in.ScheduledAt,
		"recipients":   in.Recipients,
	})
	if err != nil {
		return nil, err
	}

	out := &structpb.Struct{}
	if err := c.conn.Invoke(c.authorized(ctx), MethodScheduleReminder, req, out); err != nil {
		return nil, err
	}
	return reminderFromStruct(out)
}

func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	return c.conn.Invoke(c.authorized(ctx), MethodDeleteReminder, wrapperspb.String(id), &emptypb.Empty{})
}

func (c *Client) RunSweep(ctx context.Context) (dispatcher.Report, error) {
	out := &structpb.Struct{}
	if err := c.conn.Invoke(c.authorized(ctx), MethodRunSweep, &emptypb.Empty{}, out); err != nil {
		return dispatcher.Report{}, err
	}

	f := out.GetFields()
	return dispatcher.Report{
		Due:            int(f["due"].GetNumberValue()),
		Sent:           int(f["sent"].GetNumberValue()),
		SkippedOwner:   int(f["skipped_owner"].GetNumberValue()),
		SkippedDecrypt: int(f["skipped_decrypt"].GetNumberValue()),
		Failed:         int(f["failed"].GetNumberValue()),
	}, nil
}

func (c *Client) ExportReminders(ctx context.Context) (string, error) {
	out := &wrapperspb.StringValue{}
	if err := c.conn.Invoke(c.authorized(ctx), MethodExportReminders, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func reminderFromStruct(s *structpb.Struct) (*models.Reminder, error) {
	f := s.GetFields()

	at, err := time.Parse(time.RFC3339, f["scheduled_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("bad scheduled_at: %w", err)
	}

	return &models.Reminder{
		ID:          f["id"].GetStringValue(),
		Message:     f["message"].GetStringValue(),
		Recipients:  f["recipients"].GetStringValue(),
		ScheduledAt: at,
		Sent:        f["sent"].GetBoolValue(),
	}, nil
}
