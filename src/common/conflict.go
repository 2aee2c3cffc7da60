package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"vitacal/src/config"
	"vitacal/src/db"
	"vitacal/src/lib"
	"vitacal/src/models"
	"vitacal/src/types"
	"vitacal/src/utils"

	"gorm.io/gorm"
)

// Resolve handles a settlement that arrived after the hold lapsed. The
// slot is re-judged against current claims, the current schedule and
// fresh busy-time data; a slot that is still free promotes exactly as an
// on-time settlement would, otherwise the reservation turns conflicted
// and carries a refund record. A conflicted reservation never reverts to
// held, even when the downstream refund call fails.
func Resolve(ctx context.Context, reservationId uint, now time.Time) (*models.Meeting, *models.RefundRecord, error) {
	conn := db.GetDb()
	var reservation models.SlotReservation
	err := conn.
		Where(&models.SlotReservation{ID: reservationId}).
		Preload("RefundRecord").
		First(&reservation).
		Error
	if err != nil {
		return nil, nil, err
	}
	switch reservation.Status {
	case types.RESERVATION_PROMOTED:
		return nil, nil, ErrAlreadyPromoted
	case types.RESERVATION_CONFLICTED:
		// Duplicate late settlement: keep the original outcome.
		return nil, reservation.RefundRecord, ErrAlreadyConflicted
	}

	free, err := slotStillFree(ctx, &reservation, now)
	if err != nil {
		return nil, nil, err
	}
	if free {
		meeting, err := promoteLapsed(conn, &reservation)
		if err == nil {
			return meeting, nil, nil
		}
		if !errors.Is(err, ErrSlotTaken) {
			return nil, nil, err
		}
		// Lost the slot between the check and the claim; fall through to
		// the conflict outcome.
	}

	refund, err := markConflicted(conn, &reservation)
	if err != nil {
		return nil, nil, err
	}
	AttemptRefund(refund)
	return nil, refund, nil
}

// slotStillFree re-runs the reservation-time validity checks: competing
// claims first, then the availability calculator with current schedule
// and busy data. Minimum notice is evaluated against the settlement
// instant, so a slot whose start has drawn too near (or passed) fails.
func slotStillFree(ctx context.Context, reservation *models.SlotReservation, now time.Time) (bool, error) {
	conn := db.GetDb()
	var competing int64
	err := conn.
		Model(&models.SlotReservation{}).
		Where("expert_id = ? AND id <> ? AND status IN ? AND start_at < ? AND end_at > ?",
			reservation.ExpertID,
			reservation.ID,
			[]types.ReservationStatus{types.RESERVATION_HELD, types.RESERVATION_PROMOTED},
			reservation.EndAt,
			reservation.StartAt,
		).
		Count(&competing).
		Error
	if err != nil {
		return false, err
	}
	if competing > 0 {
		return false, nil
	}

	var expert models.Expert
	if err := conn.Where(&models.Expert{ID: reservation.ExpertID}).First(&expert).Error; err != nil {
		return false, err
	}
	var event models.Event
	if err := conn.Where(&models.Event{ID: reservation.EventID}).First(&event).Error; err != nil {
		return false, err
	}
	schedule, err := utils.GetSchedule(reservation.ExpertID)
	if err != nil {
		return false, err
	}
	busy, err := BusyForReserve(ctx, expert.CalendarID, reservation.StartAt, reservation.EndAt)
	if err != nil {
		return false, err
	}
	return SlotIsValid(schedule, &event, busy, reservation.StartAt, now)
}

// promoteLapsed claims the slot for a lapsed-but-free reservation. The
// row may already be expired by the sweeper, in which case it sits
// outside the exclusion constraint until this update, so the constraint
// itself is the final arbiter: a violation means another claim won.
func promoteLapsed(conn *gorm.DB, reservation *models.SlotReservation) (*models.Meeting, error) {
	var meeting *models.Meeting
	err := conn.Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&models.SlotReservation{}).
			Where("id = ? AND status IN ?", reservation.ID,
				[]types.ReservationStatus{types.RESERVATION_HELD, types.RESERVATION_EXPIRED}).
			Update("status", types.RESERVATION_PROMOTED)
		if result.Error != nil {
			if isSlotConflict(result.Error) {
				return ErrSlotTaken
			}
			return result.Error
		}
		if result.RowsAffected == 0 {
			var current models.SlotReservation
			if err := tx.Where(&models.SlotReservation{ID: reservation.ID}).First(&current).Error; err != nil {
				return err
			}
			if current.Status == types.RESERVATION_PROMOTED {
				return ErrAlreadyPromoted
			}
			return ErrSlotTaken
		}
		m, err := createMeetingTx(tx, reservation)
		if err != nil {
			return err
		}
		meeting = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meeting, nil
}

// markConflicted records the terminal conflict outcome and the payout
// split in one transaction. The refund record starts pending; the
// provider call happens after commit.
func markConflicted(conn *gorm.DB, reservation *models.SlotReservation) (*models.RefundRecord, error) {
	split := ComputeRefund(reservation.Amount, RetainBasisPoints())
	paymentRef := ""
	if reservation.PaymentReference != nil {
		paymentRef = *reservation.PaymentReference
	}
	refund := models.RefundRecord{
		ReservationID:    reservation.ID,
		RefundAmount:     split.Refund,
		RetainedAmount:   split.Retained,
		Currency:         reservation.Currency,
		Reason:           "slot_conflict",
		PaymentReference: paymentRef,
		Status:           types.REFUND_PENDING,
	}
	err := conn.Transaction(func(tx *gorm.DB) error {
		err := tx.
			Model(&models.SlotReservation{}).
			Where("id = ? AND status IN ?", reservation.ID,
				[]types.ReservationStatus{types.RESERVATION_HELD, types.RESERVATION_EXPIRED}).
			Update("status", types.RESERVATION_CONFLICTED).
			Error
		if err != nil {
			return err
		}
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &refund, nil
}

// AttemptRefund executes the provider refund for a pending record. On
// failure the record stays pending (failed after the retry budget) for
// the reconciliation pass; state never moves back.
func AttemptRefund(refund *models.RefundRecord) bool {
	conn := db.GetDb()
	result, err := lib.CreatePartialRefund(context.Background(), refund.PaymentReference, refund.RefundAmount, refund.Reason)
	if err != nil {
		log.Printf("[Refund] Provider refund failed for reservation %d (attempt %d): %s\n", refund.ReservationID, refund.Attempts+1, err.Error())
		updates := map[string]any{"attempts": gorm.Expr("attempts + 1")}
		if refund.Attempts+1 >= config.RefundMaxAttempts {
			updates["status"] = types.REFUND_FAILED
			// Retry budget exhausted: this payout now needs a human.
			go func(reservationId uint, amount int64, currency string) {
				msg := fmt.Sprintf("Refund for reservation %d (%d %s) failed after %d attempts and needs manual resolution", reservationId, amount, currency, config.RefundMaxAttempts)
				if err := lib.SNSPublishMessage(lib.WithSuffix("OpsAlerts"), msg); err != nil {
					log.Printf("[Refund] Could not publish ops alert: %s\n", err.Error())
				}
			}(refund.ReservationID, refund.RefundAmount, refund.Currency)
		}
		if err := conn.Model(&models.RefundRecord{}).Where(&models.RefundRecord{ID: refund.ID}).Updates(updates).Error; err != nil {
			log.Printf("[Refund] Could not record failed attempt: %s\n", err.Error())
		}
		return false
	}
	err = conn.
		Model(&models.RefundRecord{}).
		Where(&models.RefundRecord{ID: refund.ID}).
		Updates(map[string]any{
			"status":             types.REFUND_APPLIED,
			"provider_refund_id": result.ID,
			"attempts":           gorm.Expr("attempts + 1"),
		}).
		Error
	if err != nil {
		log.Printf("[Refund] Could not mark refund applied: %s\n", err.Error())
	}
	return true
}
