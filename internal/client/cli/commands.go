package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/mailreminder/internal/filex"
	"github.com/dmitrijs2005/mailreminder/internal/netx"
	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"google.golang.org/grpc/status"
)

const (
	CmdHelp        = "help"
	CmdRegister    = "register"
	CmdSweep       = "sweep"
	CmdList        = "list"
	CmdSchedule    = "schedule"
	CmdDelete      = "delete"
	CmdRemoteSweep = "remote-sweep"
	CmdExport      = "export"
)

// IsLocal reports whether cmd works against the database rather than the
// gRPC API.
func IsLocal(cmd string) bool {
	return cmd == CmdRegister || cmd == CmdSweep
}

const usage = `Usage: remindctl [flags] <command> [args]

Local commands:
  register        create an account
  sweep           send every due reminder now

Remote commands (prompt for email and password):
  list            show active reminders
  schedule        schedule a reminder
  delete <id>     delete a reminder
  remote-sweep    ask the server to sweep now
  export          download active reminders as JSON
`

// Execute runs one command. Errors returned by the server carry only their
// status message.
func (a *App) Execute(ctx context.Context, cmd string, args []string) error {
	var err error

	switch cmd {
	case "", CmdHelp:
		_, err = fmt.Fprint(a.out, usage)
	case CmdRegister:
		err = a.register(ctx)
	case CmdSweep:
		err = a.sweep(ctx)
	case CmdList:
		err = a.list(ctx)
	case CmdSchedule:
		err = a.schedule(ctx)
	case CmdDelete:
		err = a.delete(ctx, args)
	case CmdRemoteSweep:
		err = a.remoteSweep(ctx)
	case CmdExport:
		err = a.export(ctx)
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}

	if st, ok := status.FromError(err); ok && err != nil {
		return errors.New(st.Message())
	}
	return err
}

func (a *App) register(ctx context.Context) error {
	if a.registrar == nil {
		return ErrNotConfigured
	}

	name, err := GetSimpleText(a.reader, "Enter your name", a.out)
	if err != nil {
		return err
	}
	email, err := GetSimpleText(a.reader, "Enter your email address", a.out)
	if err != nil {
		return err
	}
	mailPass, err := GetPassword(a.out, "Mail app password (used to send your reminders): ")
	if err != nil {
		return err
	}
	loginPass, err := GetPassword(a.out, "Choose a login password: ")
	if err != nil {
		return err
	}

	user, err := a.registrar.Register(ctx, services.RegisterInput{
		Name:          name,
		Email:         email,
		MailPassword:  mailPass,
		LoginPassword: loginPass,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (%s)\n", user.Email, user.ID)
	return nil
}

func (a *App) sweep(ctx context.Context) error {
	if a.sweeper == nil {
		return ErrNotConfigured
	}
	a.printReport(a.sweeper.Sweep(ctx, a.now()))
	return nil
}

func (a *App) login(ctx context.Context) error {
	if a.remote == nil {
		return ErrNotConfigured
	}

	email, err := GetSimpleText(a.reader, "Email", a.out)
	if err != nil {
		return err
	}
	password, err := GetPassword(a.out, "Password: ")
	if err != nil {
		return err
	}
	return a.remote.Login(ctx, email, password)
}

func (a *App) list(ctx context.Context) error {
	if err := a.login(ctx); err != nil {
		return err
	}

	list, err := a.remote.ListReminders(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No reminders scheduled.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tTO\tMESSAGE")
	for _, r := range list {
		to := r.Recipients
		if to == "" {
			to = "(you)"
		}
		msg, _, _ := strings.Cut(r.Message, "\n")
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.ScheduledAt.In(a.loc).Format("2006-01-02 15:04"), to, msg)
	}
	return tw.Flush()
}

func (a *App) schedule(ctx context.Context) error {
	if err := a.login(ctx); err != nil {
		return err
	}

	message, err := GetMultiline(a.reader, "Message", a.out)
	if err != nil {
		return err
	}
	when, err := GetSimpleText(a.reader, "When (YYYY-MM-DDTHH:MM)", a.out)
	if err != nil {
		return err
	}
	recipients, err := GetSimpleText(a.reader, "Recipients, comma separated (empty to send to yourself)", a.out)
	if err != nil {
		return err
	}

	r, err := a.remote.ScheduleReminder(ctx, services.ScheduleInput{
		Message:     message,
		ScheduledAt: when,
		Recipients:  recipients,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Scheduled %s for %s\n", r.ID, r.ScheduledAt.In(a.loc).Format("2006-01-02 15:04"))
	return nil
}

func (a *App) delete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: delete <id>")
	}
	if err := a.login(ctx); err != nil {
		return err
	}

	if err := a.remote.DeleteReminder(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

func (a *App) remoteSweep(ctx context.Context) error {
	if err := a.login(ctx); err != nil {
		return err
	}

	rep, err := a.remote.RunSweep(ctx)
	if err != nil {
		return err
	}
	a.printReport(rep)
	return nil
}

func (a *App) export(ctx context.Context) error {
	if err := a.login(ctx); err != nil {
		return err
	}

	url, err := a.remote.ExportReminders(ctx)
	if err != nil {
		return err
	}

	data, err := netx.DownloadFromPresignedURL(ctx, a.httpClient, url)
	if err != nil {
		return fmt.Errorf("downloading export: %w", err)
	}

	name := fmt.Sprintf("reminders-%s.json", a.now().Format("20060102-150405"))
	path, err := filex.SaveFile(a.exportDir, name, data)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Saved export (%d bytes) to %s\n", len(data), path)
	return nil
}

func (a *App) printReport(rep dispatcher.Report) {
	fmt.Fprintf(a.out, "due: %d, sent: %d, skipped (owner missing): %d, skipped (credential unreadable): %d, failed: %d\n",
		rep.Due, rep.Sent, rep.SkippedOwner, rep.SkippedDecrypt, rep.Failed)
}
