package reminders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/dbx"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, rem *models.Reminder) (*models.Reminder, error) {
	query :=
		`INSERT INTO reminders (user_id, recipients, message, scheduled_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, rem.UserID, rem.Recipients, rem.Message, rem.ScheduledAt).
		Scan(&rem.ID, &rem.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return rem, nil
}

func (r *PostgresRepository) ListActiveForUser(ctx context.Context, userID string) ([]*models.Reminder, error) {
	query :=
		`SELECT id, user_id, recipients, message, scheduled_at, sent, deleted, created_at
		 FROM reminders
		 WHERE user_id = $1 AND deleted = FALSE
		 ORDER BY scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Reminder, 0)
	for rows.Next() {
		rem := &models.Reminder{}
		if err := rows.Scan(&rem.ID, &rem.UserID, &rem.Recipients, &rem.Message,
			&rem.ScheduledAt, &rem.Sent, &rem.Deleted, &rem.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id, userID string) (bool, error) {
	query :=
		`UPDATE reminders SET deleted = TRUE
		 WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return n > 0, nil
}

func (r *PostgresRepository) FindDueUnsent(ctx context.Context, now time.Time) ([]*models.DueReminder, error) {
	query :=
		`SELECT r.id, r.user_id, r.recipients, r.message, r.scheduled_at, r.created_at,
		        u.id, u.name, u.email, u.mail_password_cipher
		 FROM reminders r
		 LEFT JOIN users u ON u.id = r.user_id
		 WHERE r.scheduled_at <= $1 AND r.sent = FALSE AND r.deleted = FALSE
		 ORDER BY r.scheduled_at ASC`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.DueReminder, 0)
	for rows.Next() {
		var due models.DueReminder
		var ownerID, name, email, mailCipher sql.NullString
		if err := rows.Scan(&due.ID, &due.UserID, &due.Recipients, &due.Message, &due.ScheduledAt, &due.CreatedAt,
			&ownerID, &name, &email, &mailCipher); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if ownerID.Valid {
			due.Owner = &models.User{
				ID:                 ownerID.String,
				Name:               name.String,
				Email:              email.String,
				MailPasswordCipher: mailCipher.String,
			}
		}
		result = append(result, &due)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) MarkSent(ctx context.Context, id string) error {
	query :=
		`UPDATE reminders SET sent = TRUE
		 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
