package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Layouts accepted for ScheduleInput.ScheduledAt. The zone-less ones are what
// an HTML datetime-local input submits.
var scheduleLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ScheduleInput is the raw schedule form.
type ScheduleInput struct {
	Message     string
	ScheduledAt string
	Recipients  string
}

type parsedSchedule struct {
	message     string
	scheduledAt time.Time
	recipients  string
}

func (in ScheduleInput) parse(loc *time.Location) (*parsedSchedule, error) {
	p := &parsedSchedule{
		message:    strings.TrimSpace(in.Message),
		recipients: strings.TrimSpace(in.Recipients),
	}
	at := strings.TrimSpace(in.ScheduledAt)

	if p.message == "" || at == "" {
		return nil, common.NewValidationError(common.ReasonMissingField, "Message and date/time required.")
	}

	t, err := parseScheduledAt(at, loc)
	if err != nil {
		return nil, common.NewValidationError(common.ReasonInvalidTime, "Please enter a valid date and time.")
	}
	p.scheduledAt = t

	for _, addr := range ParseRecipients(p.recipients) {
		if !IsValidEmail(addr) {
			return nil, common.NewValidationError(common.ReasonMalformedAddress,
				"One or more recipient emails are invalid.")
		}
	}

	return p, nil
}

func parseScheduledAt(s string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range scheduleLayouts {
		if t, lerr := time.ParseInLocation(layout, s, loc); lerr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ReminderService creates, lists and soft-deletes a user's reminders.
type ReminderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	location    *time.Location
	logger      logging.Logger
}

// NewReminderService builds the service. loc is the zone used for scheduled
// times submitted without an offset.
func NewReminderService(db *sql.DB, m repomanager.RepositoryManager, loc *time.Location, logger logging.Logger) *ReminderService {
	if loc == nil {
		loc = time.Local
	}
	return &ReminderService{
		db:          db,
		repomanager: m,
		location:    loc,
		logger:      logger.With("module", "reminders"),
	}
}

// Schedule validates in and stores a pending reminder owned by userID.
// Past times are accepted; the next sweep will pick them up.
func (s *ReminderService) Schedule(ctx context.Context, userID string, in ScheduleInput) (*models.Reminder, error) {
	p, err := in.parse(s.location)
	if err != nil {
		return nil, err
	}

	r, err := s.repomanager.Reminders(s.db).Create(ctx, &models.Reminder{
		UserID:      userID,
		Recipients:  p.recipients,
		Message:     p.message,
		ScheduledAt: p.scheduledAt,
	})
	if err != nil {
		s.logger.Error(ctx, "creating reminder", "user_id", userID, "error", err)
		return nil, common.ErrorStoreUnavailable
	}

	s.logger.Info(ctx, "reminder scheduled", "reminder_id", r.ID, "user_id", userID,
		"scheduled_at", r.ScheduledAt)
	return r, nil
}

// ListActive returns the user's non-deleted reminders, earliest first.
func (s *ReminderService) ListActive(ctx context.Context, userID string) ([]*models.Reminder, error) {
	list, err := s.repomanager.Reminders(s.db).ListActiveForUser(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "listing reminders", "user_id", userID, "error", err)
		return nil, common.ErrorStoreUnavailable
	}
	return list, nil
}

// SoftDelete hides a reminder from listings and dispatch. Unknown, foreign
// or malformed ids are ignored.
func (s *ReminderService) SoftDelete(ctx context.Context, id, userID string) error {
	if !isUUID(id) {
		return nil
	}

	ok, err := s.repomanager.Reminders(s.db).SoftDelete(ctx, id, userID)
	if err != nil {
		s.logger.Error(ctx, "deleting reminder", "reminder_id", id, "error", err)
		return common.ErrorStoreUnavailable
	}
	if !ok {
		s.logger.Debug(ctx, "delete matched nothing", "reminder_id", id, "user_id", userID)
	}
	return nil
}
