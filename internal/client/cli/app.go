package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/server/dispatcher"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotConfigured  = errors.New("command not available")
)

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
}

// Sweeper runs one dispatcher sweep in-process.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) dispatcher.Report
}

// Remote is the gRPC API as seen by the CLI.
type Remote interface {
	Login(ctx context.Context, email, password string) error
	ListReminders(ctx context.Context) ([]*models.Reminder, error)
	ScheduleReminder(ctx context.Context, in services.ScheduleInput) (*models.Reminder, error)
	DeleteReminder(ctx context.Context, id string) error
	RunSweep(ctx context.Context) (dispatcher.Report, error)
	ExportReminders(ctx context.Context) (string, error)
}

type App struct {
	registrar  Registrar
	sweeper    Sweeper
	remote     Remote
	reader     *bufio.Reader
	out        io.Writer
	httpClient *http.Client
	exportDir  string
	loc        *time.Location
	now        func() time.Time
}

// Option configures an App.
type Option func(*App)

func WithRegistrar(r Registrar) Option { return func(a *App) { a.registrar = r } }
func WithSweeper(s Sweeper) Option     { return func(a *App) { a.sweeper = s } }
func WithRemote(r Remote) Option       { return func(a *App) { a.remote = r } }

// WithLocation sets the zone reminder times are printed in.
func WithLocation(loc *time.Location) Option { return func(a *App) { a.loc = loc } }

// WithExportDir sets the directory exports are saved to, relative to the
// working directory.
func WithExportDir(dir string) Option { return func(a *App) { a.exportDir = dir } }

func NewApp(in io.Reader, out io.Writer, opts ...Option) *App {
	a := &App{
		reader:     bufio.NewReader(in),
		out:        out,
		httpClient: http.DefaultClient,
		exportDir:  "exports",
		loc:        time.Local,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
