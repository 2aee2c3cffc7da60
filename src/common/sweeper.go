package common

import (
	"log"
	"time"

	"vitacal/src/config"
	"vitacal/src/db"
	"vitacal/src/lib"
	"vitacal/src/models"
	"vitacal/src/types"
)

// SweepExpiredReservations releases every hold whose TTL elapsed without
// settlement. The transition is compare-and-swap on status, so a row
// promoted between the select and the update is left alone and a second
// run over the same rows is a no-op.
func SweepExpiredReservations(now time.Time) (int64, error) {
	conn := db.GetDb()
	var lapsed []models.SlotReservation
	err := conn.
		Where("status = ? AND expires_at <= ?", types.RESERVATION_HELD, now).
		Find(&lapsed).
		Error
	if err != nil {
		return 0, err
	}
	if len(lapsed) == 0 {
		return 0, nil
	}
	var expired int64
	for _, r := range lapsed {
		result := conn.
			Model(&models.SlotReservation{}).
			Where("id = ? AND status = ?", r.ID, types.RESERVATION_HELD).
			Update("status", types.RESERVATION_EXPIRED)
		if result.Error != nil {
			log.Printf("[Sweeper] Error expiring reservation %d: %s\n", r.ID, result.Error.Error())
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}
		expired += result.RowsAffected
		NotifyAsync(r.GuestEmail, "reservation_expired", types.JSONB{
			"start_at":   r.StartAt,
			"expires_at": r.ExpiresAt,
		})
	}
	return expired, nil
}

// SendReservationReminders nudges payers whose hold is approaching its
// TTL: once when the first-reminder offset is crossed and once more at
// the final offset. The sent-at columns guard against duplicates, so the
// pass stays idempotent no matter how often the tick fires.
func SendReservationReminders(now time.Time) (int64, error) {
	conn := db.GetDb()
	var sent int64

	var firstDue []models.SlotReservation
	err := conn.
		Where("status = ? AND first_reminder_at IS NULL AND expires_at <= ? AND expires_at > ?",
			types.RESERVATION_HELD, now.Add(config.FirstReminderOffset), now).
		Find(&firstDue).
		Error
	if err != nil {
		return sent, err
	}
	for _, r := range firstDue {
		result := conn.
			Model(&models.SlotReservation{}).
			Where("id = ? AND status = ? AND first_reminder_at IS NULL", r.ID, types.RESERVATION_HELD).
			Update("first_reminder_at", now)
		if result.Error != nil {
			log.Printf("[Sweeper] Error marking first reminder for reservation %d: %s\n", r.ID, result.Error.Error())
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}
		sent++
		NotifyAsync(r.GuestEmail, "payment_reminder_first", types.JSONB{
			"start_at":   r.StartAt,
			"expires_at": r.ExpiresAt,
		})
	}

	var finalDue []models.SlotReservation
	err = conn.
		Where("status = ? AND final_reminder_at IS NULL AND expires_at <= ? AND expires_at > ?",
			types.RESERVATION_HELD, now.Add(config.FinalReminderOffset), now).
		Find(&finalDue).
		Error
	if err != nil {
		return sent, err
	}
	for _, r := range finalDue {
		result := conn.
			Model(&models.SlotReservation{}).
			Where("id = ? AND status = ? AND final_reminder_at IS NULL", r.ID, types.RESERVATION_HELD).
			Update("final_reminder_at", now)
		if result.Error != nil {
			log.Printf("[Sweeper] Error marking final reminder for reservation %d: %s\n", r.ID, result.Error.Error())
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}
		sent++
		NotifyAsync(r.GuestEmail, "payment_reminder_final", types.JSONB{
			"start_at":   r.StartAt,
			"expires_at": r.ExpiresAt,
		})
	}
	return sent, nil
}

// ReconcilePendingRefunds retries provider refunds for conflicted
// reservations whose payout has not gone through yet.
func ReconcilePendingRefunds() (retried int64, resolved int64, err error) {
	conn := db.GetDb()
	var pending []models.RefundRecord
	err = conn.
		Where("status = ? AND attempts < ?", types.REFUND_PENDING, config.RefundMaxAttempts).
		Find(&pending).
		Error
	if err != nil {
		return 0, 0, err
	}
	for i := range pending {
		retried++
		if AttemptRefund(&pending[i]) {
			resolved++
			NotifyAsync(refundRecipient(&pending[i]), "refund_applied", types.JSONB{
				"refund":   pending[i].RefundAmount,
				"retained": pending[i].RetainedAmount,
				"currency": pending[i].Currency,
			})
		}
	}
	return retried, resolved, nil
}

func refundRecipient(refund *models.RefundRecord) string {
	conn := db.GetDb()
	var reservation models.SlotReservation
	if err := conn.Where(&models.SlotReservation{ID: refund.ReservationID}).First(&reservation).Error; err != nil {
		return ""
	}
	return reservation.GuestEmail
}

// RunSweeper executes one tick: expiry, reminders, then refund
// reconciliation, with a bookkeeping row so operators can see what each
// run touched. Every pass is independently idempotent.
func RunSweeper() {
	now := time.Now().UTC()
	conn := db.GetDb()
	run := models.SweeperRun{StartedAt: now, Status: "running"}
	if err := conn.Create(&run).Error; err != nil {
		log.Printf("[Sweeper] Could not create run row: %s\n", err.Error())
	}

	expired, err := SweepExpiredReservations(now)
	if err != nil {
		log.Printf("[Sweeper] Expiry pass failed: %s\n", err.Error())
	}
	reminders, err := SendReservationReminders(now)
	if err != nil {
		log.Printf("[Sweeper] Reminder pass failed: %s\n", err.Error())
	}
	retried, resolved, err := ReconcilePendingRefunds()
	if err != nil {
		log.Printf("[Sweeper] Refund reconciliation failed: %s\n", err.Error())
	}

	finished := time.Now().UTC()
	err = conn.
		Model(&models.SweeperRun{}).
		Where(&models.SweeperRun{ID: run.ID}).
		Updates(map[string]any{
			"finished_at":      finished,
			"expired":          expired,
			"reminders_sent":   reminders,
			"refunds_retried":  retried,
			"refunds_resolved": resolved,
			"status":           "done",
		}).
		Error
	if err != nil {
		log.Printf("[Sweeper] Could not finalize run row: %s\n", err.Error())
	}
	log.Printf("[Sweeper] expired=%d reminders=%d refunds_retried=%d refunds_resolved=%d\n", expired, reminders, retried, resolved)
}

// StartSweeper registers the periodic tick on the shared scheduler.
func StartSweeper() error {
	id, err := lib.CreateCronJob(RunSweeper, config.SweepInterval)
	if err != nil {
		return err
	}
	log.Printf("[Sweeper] Registered job %s every %s\n", *id, config.SweepInterval)
	return nil
}
