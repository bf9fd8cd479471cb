package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/mailreminder/internal/cryptox"
	"github.com/dmitrijs2005/mailreminder/internal/flagx"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/config"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/mail"
	"github.com/dmitrijs2005/mailreminder/internal/server/metrics"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	gs "github.com/dmitrijs2005/mailreminder/internal/server/grpc"
)

// SplitCommand returns the command name and its arguments from the process
// arguments, skipping configuration flags.
func SplitCommand(args []string) (string, []string) {
	pos := flagx.Positional(args)
	if len(pos) == 0 {
		return "", nil
	}
	return pos[0], pos[1:]
}

// dialTarget turns a listen address such as ":50051" into one a client can
// dial.
func dialTarget(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}

// Run executes the command found in args. Local commands open the database;
// remote commands connect to the gRPC API.
func Run(ctx context.Context, cfg *config.Config, args []string) error {
	cmd, rest := SplitCommand(args)
	logger := logging.New(cfg.LogBackend, os.Stderr)

	opts := []Option{WithLocation(cfg.Location())}

	switch {
	case IsLocal(cmd):
		db, err := repomanager.OpenPostgres(ctx, cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
		defer db.Close()

		rm := repomanager.NewPostgresRepositoryManager()
		if err := rm.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrations error: %w", err)
		}

		vault, err := cryptox.NewVault(cfg.VaultSecret)
		if err != nil {
			return fmt.Errorf("vault init error: %w", err)
		}

		sender := mail.NewSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPTimeout, logger)
		opts = append(opts,
			WithRegistrar(services.NewAccountService(db, rm, vault, logger)),
			WithSweeper(dispatcher.New(rm, db, vault, sender, metrics.New(), logger)),
		)

	case cmd != "" && cmd != CmdHelp:
		conn, err := grpc.NewClient(dialTarget(cfg.GRPCAddr), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return fmt.Errorf("grpc client error: %w", err)
		}
		defer conn.Close()

		opts = append(opts, WithRemote(gs.NewClient(conn)))
	}

	return NewApp(os.Stdin, os.Stdout, opts...).Execute(ctx, cmd, rest)
}
