// Package memory is an in-process RepositoryManager for tests. It follows the
// PostgreSQL repositories' contracts, including ordering and not-found errors,
// and lets tests inject store failures.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/dbx"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/reminders"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/users"
	"github.com/google/uuid"
)

// Store holds users and reminders behind one lock so the reminder join sees
// a consistent view of users.
type Store struct {
	mu        sync.Mutex
	users     map[string]*models.User
	reminders map[string]*models.Reminder

	// Injected failures, returned verbatim when set.
	GetUserErr    error
	CreateUserErr error
	CreateErr     error
	ListErr       error
	DeleteErr     error
	FindDueErr    error
	MarkSentErr   error
}

func New() *Store {
	return &Store{
		users:     map[string]*models.User{},
		reminders: map[string]*models.Reminder{},
	}
}

func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }
func (s *Store) Users(dbx.DBTX) users.Repository             { return (*userRepo)(s) }
func (s *Store) Reminders(dbx.DBTX) reminders.Repository     { return (*reminderRepo)(s) }

// Reminder returns a copy of the stored reminder, or nil.
func (s *Store) Reminder(id string) *models.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reminders[id]
	if !ok {
		return nil
	}
	cp := *r
	return &cp
}

// User returns a copy of the stored user, or nil.
func (s *Store) User(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

// DeleteUser removes a user row, leaving its reminders dangling.
func (s *Store) DeleteUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Store) ReminderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reminders)
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateUserErr != nil {
		return nil, r.CreateUserErr
	}
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return nil, common.ErrorDuplicateEmail
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now()
	cp := *u
	r.users[u.ID] = &cp
	return u, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetUserErr != nil {
		return nil, r.GetUserErr
	}
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.GetUserErr != nil {
		return nil, r.GetUserErr
	}
	u, ok := r.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

type reminderRepo Store

func (r *reminderRepo) Create(_ context.Context, rem *models.Reminder) (*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	rem.ID = uuid.NewString()
	rem.CreatedAt = time.Now()
	cp := *rem
	r.reminders[rem.ID] = &cp
	return rem, nil
}

func (r *reminderRepo) ListActiveForUser(_ context.Context, userID string) ([]*models.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]*models.Reminder, 0)
	for _, rem := range r.reminders {
		if rem.UserID == userID && !rem.Deleted {
			cp := *rem
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *reminderRepo) SoftDelete(_ context.Context, id, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return false, r.DeleteErr
	}
	rem, ok := r.reminders[id]
	if !ok || rem.UserID != userID {
		return false, nil
	}
	rem.Deleted = true
	return true, nil
}

func (r *reminderRepo) FindDueUnsent(_ context.Context, now time.Time) ([]*models.DueReminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FindDueErr != nil {
		return nil, r.FindDueErr
	}
	out := make([]*models.DueReminder, 0)
	for _, rem := range r.reminders {
		if rem.Sent || rem.Deleted || rem.ScheduledAt.After(now) {
			continue
		}
		d := &models.DueReminder{Reminder: *rem}
		if u, ok := r.users[rem.UserID]; ok {
			cp := *u
			d.Owner = &cp
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *reminderRepo) MarkSent(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.MarkSentErr != nil {
		return r.MarkSentErr
	}
	if rem, ok := r.reminders[id]; ok {
		rem.Sent = true
	}
	return nil
}
