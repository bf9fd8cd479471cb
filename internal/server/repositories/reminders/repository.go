// Package reminders declares the reminder store contract and its PostgreSQL
// implementation. Reminders are never hard-deleted.
package reminders

import (
	"context"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/server/models"
)

type Repository interface {
	// Create inserts a pending reminder and fills in ID and CreatedAt.
	Create(ctx context.Context, r *models.Reminder) (*models.Reminder, error)

	// ListActiveForUser returns the user's non-deleted reminders ordered by
	// scheduled time, earliest first.
	ListActiveForUser(ctx context.Context, userID string) ([]*models.Reminder, error)

	// SoftDelete marks the reminder deleted when it exists and belongs to
	// userID. It reports whether a row matched; no match is not an error.
	SoftDelete(ctx context.Context, id, userID string) (bool, error)

	// FindDueUnsent returns every reminder with scheduled time <= now that is
	// neither sent nor deleted, joined with its owner.
	FindDueUnsent(ctx context.Context, now time.Time) ([]*models.DueReminder, error)

	// MarkSent sets sent = true. Calling it again is harmless.
	MarkSent(ctx context.Context, id string) error
}
