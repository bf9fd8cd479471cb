// Package web serves the browser surface: registration, login and reminder
// management as server-rendered HTML forms.
package web

import (
	"context"
	"errors"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/config"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

type AccountService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	VerifyLogin(ctx context.Context, email, password string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type ReminderService interface {
	Schedule(ctx context.Context, userID string, in services.ScheduleInput) (*models.Reminder, error)
	ListActive(ctx context.Context, userID string) ([]*models.Reminder, error)
	SoftDelete(ctx context.Context, id, userID string) error
}

type Exporter interface {
	Export(ctx context.Context, userID string) (string, error)
}

type Server struct {
	address         string
	accounts        AccountService
	reminders       ReminderService
	exporter        Exporter
	metrics         http.Handler
	sessionSecret   []byte
	sessionValidity time.Duration
	revoked         revocations
	location        *time.Location
	pages           map[string]*template.Template
	logger          logging.Logger
}

// NewServer wires the handlers. exporter and metrics may be nil, in which
// case their routes are not registered.
func NewServer(cfg *config.Config, l logging.Logger, accounts AccountService, reminders ReminderService,
	exporter Exporter, metrics http.Handler) (*Server, error) {

	s := &Server{
		address:         cfg.HTTPAddr,
		accounts:        accounts,
		reminders:       reminders,
		exporter:        exporter,
		metrics:         metrics,
		sessionSecret:   []byte(cfg.SessionSecret),
		sessionValidity: cfg.SessionValidityDuration,
		location:        cfg.Location(),
		logger:          l.With("module", "web"),
	}

	pages, err := parsePages(s.location)
	if err != nil {
		return nil, err
	}
	s.pages = pages

	return s, nil
}

// Handler returns the routed handler with session and logging middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.loadSession)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/about", s.handleAbout).Methods(http.MethodGet)

	r.HandleFunc("/register", s.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)

	r.HandleFunc("/reminders", s.protected(s.handleReminders)).Methods(http.MethodGet)
	r.HandleFunc("/reminders/{id}/delete", s.protected(s.handleDelete)).Methods(http.MethodPost)
	r.HandleFunc("/schedule", s.protected(s.handleScheduleForm)).Methods(http.MethodGet)
	r.HandleFunc("/schedule", s.protected(s.handleSchedule)).Methods(http.MethodPost)

	if s.exporter != nil {
		r.HandleFunc("/reminders/export", s.protected(s.handleExport)).Methods(http.MethodGet)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping web server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "web server shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting web server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
