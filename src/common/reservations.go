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

// ReserveInput carries everything needed to place a hold on a slot for a
// deferred-settlement booking.
type ReserveInput struct {
	Expert        *models.Expert
	Event         *models.Event
	GuestName     string
	GuestEmail    string
	GuestTimezone string
	Start         time.Time
	PaymentMethod string
}

// DeferredEligible reports whether a deferred-settlement method may be
// offered for a booking this close to its start.
func DeferredEligible(start, now time.Time) bool {
	return start.Sub(now) >= config.DeferredMinLeadTime
}

// HoldDeadline is the TTL for a new hold: seven days out, but never past
// the slot itself.
func HoldDeadline(start, now time.Time) time.Time {
	deadline := now.Add(config.DeferredReservationTTL)
	if deadline.After(start) {
		return start
	}
	return deadline
}

// Reserve places a tentative hold on [start, start+duration) for a
// deferred-settlement payment. The slot is validated against fresh
// busy-time data and current claims before insert; the insert itself is
// guarded by the range exclusion constraint, so a lost race always
// surfaces as ErrSlotTaken regardless of what the pre-check saw. A
// provider timeout fails the call without leaving a row behind.
func Reserve(ctx context.Context, input *ReserveInput, now time.Time) (*models.SlotReservation, error) {
	class, known := config.SettlementClassFor(input.PaymentMethod)
	if !known || class != types.SETTLEMENT_DEFERRED {
		return nil, fmt.Errorf("%w: payment method %q does not use reservations", ErrSlotInvalid, input.PaymentMethod)
	}
	if !input.Event.Active {
		return nil, fmt.Errorf("%w: event is no longer bookable", ErrSlotInvalid)
	}
	if !DeferredEligible(input.Start, now) {
		return nil, fmt.Errorf("%w: deferred payment is not offered for near-term bookings", ErrSlotInvalid)
	}
	expiresAt := HoldDeadline(input.Start, now)

	end := input.Start.Add(time.Duration(input.Event.DurationMinutes) * time.Minute)
	schedule, err := utils.GetSchedule(input.Expert.ID)
	if err != nil {
		return nil, err
	}
	busy, err := BusyForReserve(ctx, input.Expert.CalendarID, input.Start, end)
	if err != nil {
		return nil, err
	}
	ok, err := SlotIsValid(schedule, input.Event, busy, input.Start, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSlotInvalid
	}

	conn := db.GetDb()
	var competing int64
	err = conn.
		Model(&models.SlotReservation{}).
		Where("expert_id = ? AND status IN ? AND start_at < ? AND end_at > ?",
			input.Expert.ID,
			[]types.ReservationStatus{types.RESERVATION_HELD, types.RESERVATION_PROMOTED},
			end,
			input.Start,
		).
		Count(&competing).
		Error
	if err != nil {
		return nil, err
	}
	if competing > 0 {
		return nil, ErrSlotTaken
	}

	reservation := models.SlotReservation{
		ExpertID:      input.Expert.ID,
		EventID:       input.Event.ID,
		GuestName:     input.GuestName,
		GuestEmail:    input.GuestEmail,
		GuestTimezone: input.GuestTimezone,
		StartAt:       input.Start,
		EndAt:         end,
		ExpiresAt:     expiresAt,
		PaymentMethod: input.PaymentMethod,
		Amount:        input.Event.Price,
		Currency:      input.Event.Currency,
		Status:        types.RESERVATION_HELD,
	}
	if err := conn.Create(&reservation).Error; err != nil {
		if isSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return &reservation, nil
}

// AttachPaymentReference links the provider's payment id to a fresh hold
// so the settlement signal can find it later.
func AttachPaymentReference(reservationId uint, reference string) error {
	conn := db.GetDb()
	return conn.
		Model(&models.SlotReservation{}).
		Where(&models.SlotReservation{ID: reservationId}).
		Update("payment_reference", reference).
		Error
}

// createMeetingTx inserts the confirmed Meeting for a promoted claim row.
// Must run in the same transaction as the status transition.
func createMeetingTx(tx *gorm.DB, reservation *models.SlotReservation) (*models.Meeting, error) {
	var event models.Event
	if err := tx.Where(&models.Event{ID: reservation.EventID}).First(&event).Error; err != nil {
		return nil, err
	}
	paymentRef := ""
	if reservation.PaymentReference != nil {
		paymentRef = *reservation.PaymentReference
	}
	meeting := models.Meeting{
		ExpertID:         reservation.ExpertID,
		EventID:          reservation.EventID,
		ReservationID:    reservation.ID,
		Reference:        utils.MeetingReference(event.Name),
		GuestName:        reservation.GuestName,
		GuestEmail:       reservation.GuestEmail,
		GuestTimezone:    reservation.GuestTimezone,
		StartAt:          reservation.StartAt,
		EndAt:            reservation.EndAt,
		PaymentReference: paymentRef,
		Status:           types.MEETING_CONFIRMED,
	}
	if err := tx.Create(&meeting).Error; err != nil {
		return nil, err
	}
	return &meeting, nil
}

// Promote converts a held reservation into a confirmed Meeting. The
// status transition is one conditional update so two concurrent
// settlement signals cannot both succeed; the loser sees the row already
// promoted and reports ErrAlreadyPromoted, which callers treat as a
// no-op success.
func Promote(reservationId uint, now time.Time) (*models.Meeting, error) {
	conn := db.GetDb()
	var meeting *models.Meeting
	err := conn.Transaction(func(tx *gorm.DB) error {
		result := tx.
			Model(&models.SlotReservation{}).
			Where("id = ? AND status = ? AND expires_at > ?", reservationId, types.RESERVATION_HELD, now).
			Update("status", types.RESERVATION_PROMOTED)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var reservation models.SlotReservation
			if err := tx.Where(&models.SlotReservation{ID: reservationId}).First(&reservation).Error; err != nil {
				return err
			}
			if reservation.Status == types.RESERVATION_PROMOTED {
				return ErrAlreadyPromoted
			}
			return ErrExpired
		}
		var reservation models.SlotReservation
		if err := tx.Where(&models.SlotReservation{ID: reservationId}).First(&reservation).Error; err != nil {
			return err
		}
		m, err := createMeetingTx(tx, &reservation)
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

// ConfirmInstant records a booking whose payment settled synchronously.
// No hold ever existed; the claim row is created already promoted, in the
// same transaction as the Meeting, so instant bookings occupy the same
// exclusion domain as held reservations.
func ConfirmInstant(input *ReserveInput, paymentReference string, now time.Time) (*models.Meeting, error) {
	end := input.Start.Add(time.Duration(input.Event.DurationMinutes) * time.Minute)
	conn := db.GetDb()
	var meeting *models.Meeting
	err := conn.Transaction(func(tx *gorm.DB) error {
		claim := models.SlotReservation{
			ExpertID:         input.Expert.ID,
			EventID:          input.Event.ID,
			GuestName:        input.GuestName,
			GuestEmail:       input.GuestEmail,
			GuestTimezone:    input.GuestTimezone,
			StartAt:          input.Start,
			EndAt:            end,
			ExpiresAt:        input.Start,
			PaymentReference: &paymentReference,
			PaymentMethod:    input.PaymentMethod,
			Amount:           input.Event.Price,
			Currency:         input.Event.Currency,
			Status:           types.RESERVATION_PROMOTED,
		}
		if err := tx.Create(&claim).Error; err != nil {
			if isSlotConflict(err) {
				return ErrSlotTaken
			}
			return err
		}
		m, err := createMeetingTx(tx, &claim)
		if err != nil {
			return err
		}
		meeting = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	onMeetingConfirmed(meeting)
	return meeting, nil
}

// ApplySettlement routes an inbound payment confirmation to the right
// lifecycle transition: promote while the hold is alive, conflict
// resolution after it lapsed. Duplicate signals are no-ops.
func ApplySettlement(ctx context.Context, signal *types.SettlementSignal, now time.Time) error {
	conn := db.GetDb()
	var reservation models.SlotReservation
	err := conn.
		Where(&models.SlotReservation{PaymentReference: &signal.PaymentReference}).
		First(&reservation).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Settlement] No reservation for payment reference %s, ignoring\n", signal.PaymentReference)
			return nil
		}
		return err
	}

	switch reservation.Status {
	case types.RESERVATION_PROMOTED, types.RESERVATION_CONFLICTED:
		// Redelivered signal for a settled outcome. The first delivery
		// already sent the notifications; doing nothing keeps the signal
		// idempotent.
		return nil
	}

	if now.Before(reservation.ExpiresAt) {
		meeting, err := Promote(reservation.ID, now)
		if err != nil {
			if errors.Is(err, ErrAlreadyPromoted) {
				return nil
			}
			return err
		}
		onMeetingConfirmed(meeting)
		return nil
	}

	meeting, refund, err := Resolve(ctx, reservation.ID, now)
	if err != nil {
		if errors.Is(err, ErrAlreadyPromoted) || errors.Is(err, ErrAlreadyConflicted) {
			return nil
		}
		return err
	}
	if meeting != nil {
		onMeetingConfirmed(meeting)
		return nil
	}
	onReservationConflicted(&reservation, refund)
	return nil
}

// onMeetingConfirmed fans out post-promotion side effects. Failures are
// logged only; the meeting row is already durable.
func onMeetingConfirmed(meeting *models.Meeting) {
	conn := db.GetDb()
	var expert models.Expert
	if err := conn.Where(&models.Expert{ID: meeting.ExpertID}).First(&expert).Error; err != nil {
		log.Printf("[Settlement] Could not load expert %d for notifications: %s\n", meeting.ExpertID, err.Error())
		return
	}
	var event models.Event
	if err := conn.Where(&models.Event{ID: meeting.EventID}).First(&event).Error; err != nil {
		log.Printf("[Settlement] Could not load event %d for notifications: %s\n", meeting.EventID, err.Error())
		return
	}
	go utils.SendMeetingConfirmation(meeting, &expert, &event)
	NotifyAsync(meeting.GuestEmail, "meeting_confirmed", types.JSONB{
		"reference": meeting.Reference,
		"start_at":  meeting.StartAt,
	})
	NotifyAsync(expert.Email, "meeting_booked", types.JSONB{
		"reference": meeting.Reference,
		"start_at":  meeting.StartAt,
		"guest":     meeting.GuestName,
	})
	if expert.FCMToken != nil {
		go func() {
			if err := lib.FCMSendToToken(context.Background(), *expert.FCMToken, "New booking", fmt.Sprintf("%s booked %s", meeting.GuestName, event.Name), map[string]string{
				"reference": meeting.Reference,
			}); err != nil {
				log.Printf("[Settlement] FCM push failed for expert %d: %s\n", expert.ID, err.Error())
			}
		}()
	}
}
