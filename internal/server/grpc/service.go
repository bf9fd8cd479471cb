package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name. Messages are
// protobuf well-known types, so no generated code is involved.
const ServiceName = "mailreminder.v1.ReminderService"

const (
	MethodLogin            = "/" + ServiceName + "/Login"
	MethodListReminders    = "/" + ServiceName + "/ListReminders"
	MethodScheduleReminder = "/" + ServiceName + "/ScheduleReminder"
	MethodDeleteReminder   = "/" + ServiceName + "/DeleteReminder"
	MethodRunSweep         = "/" + ServiceName + "/RunSweep"
	MethodExportReminders  = "/" + ServiceName + "/ExportReminders"
)

// ReminderServiceServer is implemented by Server.
//
//	Login            {email, password}                   -> access token
//	ListReminders    Empty                               -> [reminder]
//	ScheduleReminder {message, scheduled_at, recipients} -> reminder
//	DeleteReminder   reminder id                         -> Empty
//	RunSweep         Empty                               -> sweep report
//	ExportReminders  Empty                               -> download URL
type ReminderServiceServer interface {
	Login(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	ListReminders(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	ScheduleReminder(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteReminder(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	RunSweep(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ExportReminders(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

var ReminderServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReminderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unary(MethodLogin, ReminderServiceServer.Login)},
		{MethodName: "ListReminders", Handler: unary(MethodListReminders, ReminderServiceServer.ListReminders)},
		{MethodName: "ScheduleReminder", Handler: unary(MethodScheduleReminder, ReminderServiceServer.ScheduleReminder)},
		{MethodName: "DeleteReminder", Handler: unary(MethodDeleteReminder, ReminderServiceServer.DeleteReminder)},
		{MethodName: "RunSweep", Handler: unary(MethodRunSweep, ReminderServiceServer.RunSweep)},
		{MethodName: "ExportReminders", Handler: unary(MethodExportReminders, ReminderServiceServer.ExportReminders)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mailreminder/v1/reminder.proto",
}

// RegisterReminderServiceServer attaches srv to s.
func RegisterReminderServiceServer(s grpc.ServiceRegistrar, srv ReminderServiceServer) {
	s.RegisterService(&ReminderServiceDesc, srv)
}

// unary builds the method handler protoc-gen-go-grpc would generate for a
// single unary method.
func unary[Req, Resp any](fullMethod string, call func(ReminderServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReminderServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReminderServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
