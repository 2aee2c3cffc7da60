package models

import (
	"time"

	"vitacal/src/types"
)

// SlotReservation is a tentative hold on a slot pending asynchronous
// payment settlement, and doubles as the slot claim row for confirmed
// meetings: a gist exclusion constraint over (expert_id, tstzrange(
// start_at, end_at)) for status IN ('held','promoted') makes held
// reservations and meetings share one exclusion domain, rejecting any
// overlapping interval. The constraint is created in boot.InitDb.
type SlotReservation struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	ExpertID      uint      `gorm:"index" json:"expert_id,omitempty"`
	EventID       uint      `json:"event_id,omitempty"`
	GuestName     string    `json:"guest_name,omitempty"`
	GuestEmail    string    `json:"guest_email,omitempty"`
	GuestTimezone string    `json:"guest_timezone,omitempty"`
	StartAt       time.Time `json:"start_at"`
	EndAt         time.Time `json:"end_at"`
	ExpiresAt     time.Time `json:"expires_at"`

	PaymentReference *string `gorm:"uniqueIndex" json:"payment_reference,omitempty"`
	PaymentMethod    string  `json:"payment_method,omitempty"`
	Amount           int64   `json:"amount"`
	Currency         string  `json:"currency,omitempty"`

	Status types.ReservationStatus `gorm:"default:'held'" json:"status,omitempty"`

	FirstReminderAt *time.Time `json:"-"`
	FinalReminderAt *time.Time `json:"-"`

	Expert       Expert        `json:"-"`
	Event        Event         `json:"event,omitempty"`
	RefundRecord *RefundRecord `gorm:"foreignKey:reservation_id" json:"refund_record,omitempty"`

	types.Timestamps
}
