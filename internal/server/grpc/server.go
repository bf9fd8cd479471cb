// Package grpc exposes reminder management and on-demand sweeps over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"google.golang.org/grpc"
)

type AccountService interface {
	VerifyLogin(ctx context.Context, email, password string) (*models.User, error)
}

type ReminderService interface {
	Schedule(ctx context.Context, userID string, in services.ScheduleInput) (*models.Reminder, error)
	ListActive(ctx context.Context, userID string) ([]*models.Reminder, error)
	SoftDelete(ctx context.Context, id, userID string) error
}

// Sweeper runs a dispatcher sweep on demand.
type Sweeper interface {
	RunNow(ctx context.Context) (dispatcher.Report, error)
}

// Exporter uploads a user's reminders and returns a download URL.
type Exporter interface {
	Export(ctx context.Context, userID string) (string, error)
}

type GRPCServer struct {
	address       string
	accounts      AccountService
	reminders     ReminderService
	sweeper       Sweeper
	exporter      Exporter
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
}

func NewGRPCServer(a string, l logging.Logger, accounts AccountService, reminders ReminderService, sweeper Sweeper,
	exporter Exporter, secretKey string, tokenValidity time.Duration) *GRPCServer {
	return &GRPCServer{
		address:       a,
		logger:        l.With("module", "grpc_server"),
		accounts:      accounts,
		reminders:     reminders,
		sweeper:       sweeper,
		exporter:      exporter,
		jwtSecret:     []byte(secretKey),
		tokenValidity: tokenValidity,
	}
}

// NewServer builds a grpc.Server with the service and its auth interceptor
// registered.
func (s *GRPCServer) NewServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.accessTokenInterceptor))
	RegisterReminderServiceServer(srv, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
