// Package dispatcher delivers due reminders. A sweep selects every reminder
// whose time has come and that is neither sent nor deleted, sends it through
// the owner's own mail account and marks it sent.
package dispatcher

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmitrijs2005/mailreminder/internal/common"
	"github.com/dmitrijs2005/mailreminder/internal/logging"
	"github.com/dmitrijs2005/mailreminder/internal/server/mail"
	"github.com/dmitrijs2005/mailreminder/internal/server/metrics"
	"github.com/dmitrijs2005/mailreminder/internal/server/models"
	"github.com/dmitrijs2005/mailreminder/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mailreminder/internal/server/services"
)

// Vault recovers an owner's mail password.
type Vault interface {
	Decrypt(ciphertext string) (string, error)
}

// Report summarises one sweep.
type Report struct {
	Due            int `json:"due"`
	Sent           int `json:"sent"`
	SkippedOwner   int `json:"skipped_owner"`
	SkippedDecrypt int `json:"skipped_decrypt"`
	Failed         int `json:"failed"`
}

type Dispatcher struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	vault       Vault
	sender      mail.Sender
	metrics     *metrics.Metrics
	logger      logging.Logger
}

func New(m repomanager.RepositoryManager, db *sql.DB, vault Vault, sender mail.Sender, mt *metrics.Metrics, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		db:          db,
		repomanager: m,
		vault:       vault,
		sender:      sender,
		metrics:     mt,
		logger:      logger.With("module", "dispatcher"),
	}
}

// Sweep dispatches every reminder due at now, one after another. Failures
// are logged and leave the reminder pending for the next sweep; none is
// returned. A store failure while selecting ends the sweep early.
func (d *Dispatcher) Sweep(ctx context.Context, now time.Time) Report {
	start := time.Now()
	repo := d.repomanager.Reminders(d.db)

	due, err := repo.FindDueUnsent(ctx, now)
	if err != nil {
		d.logger.Error(ctx, "selecting due reminders", "error", err)
		d.metrics.Swept(metrics.SweepStoreError, time.Since(start))
		return Report{}
	}

	rep := Report{Due: len(due)}
	for _, r := range due {
		if ctx.Err() != nil {
			d.logger.Warn(ctx, "sweep interrupted", "remaining", len(due)-rep.handled())
			break
		}
		d.dispatch(ctx, r, &rep)
	}

	d.metrics.Swept(metrics.SweepOK, time.Since(start))
	if rep.Due > 0 {
		d.logger.Info(ctx, "sweep finished", "due", rep.Due, "sent", rep.Sent,
			"skipped_owner", rep.SkippedOwner, "skipped_decrypt", rep.SkippedDecrypt, "failed", rep.Failed)
	}
	return rep
}

func (r Report) handled() int {
	return r.Sent + r.SkippedOwner + r.SkippedDecrypt + r.Failed
}

func (d *Dispatcher) dispatch(ctx context.Context, r *models.DueReminder, rep *Report) {
	log := d.logger.With("reminder_id", r.ID)

	if r.Owner == nil {
		log.Warn(ctx, "owner missing, reminder skipped", "user_id", r.UserID)
		d.metrics.Dispatched(metrics.OutcomeOwnerMissing)
		rep.SkippedOwner++
		return
	}

	password, err := d.vault.Decrypt(r.Owner.MailPasswordCipher)
	if err != nil {
		log.Error(ctx, "decrypting mail credential", "user_id", r.Owner.ID, "error", err)
		d.metrics.Dispatched(metrics.OutcomeDecryptFailed)
		rep.SkippedDecrypt++
		return
	}

	to := services.ParseRecipients(r.Recipients)
	if len(to) == 0 {
		to = []string{r.Owner.Email}
	}

	err = d.sender.Send(ctx,
		mail.Credentials{Username: r.Owner.Email, Password: password},
		mail.Message{
			From:    r.Owner.Email,
			To:      to,
			Subject: common.ReminderSubject,
			Body:    r.Message,
		})
	if err != nil {
		log.Error(ctx, "sending reminder", "recipients", len(to), "error", err)
		d.metrics.Dispatched(metrics.OutcomeSendFailed)
		rep.Failed++
		return
	}

	if err := d.repomanager.Reminders(d.db).MarkSent(ctx, r.ID); err != nil {
		// delivered but still pending: the next sweep sends it again
		log.Error(ctx, "marking reminder sent", "error", err)
		d.metrics.Dispatched(metrics.OutcomeMarkFailed)
		rep.Failed++
		return
	}

	log.Info(ctx, "reminder sent", "recipients", len(to))
	d.metrics.Dispatched(metrics.OutcomeSent)
	rep.Sent++
}
