package models

import (
	"time"

	"vitacal/src/types"
)

// Meeting is a confirmed booking. Rows are only ever created by promoting
// a SlotReservation (the instant-payment path creates its claim row and
// the meeting in one transaction). Immutable except cancellation metadata.
type Meeting struct {
	ID            uint   `gorm:"primarykey" json:"id"`
	ExpertID      uint   `gorm:"index" json:"expert_id,omitempty"`
	EventID       uint   `json:"event_id,omitempty"`
	ReservationID uint   `gorm:"uniqueIndex" json:"reservation_id,omitempty"`
	Reference     string `gorm:"uniqueIndex" json:"reference,omitempty"`

	GuestName     string `json:"guest_name,omitempty"`
	GuestEmail    string `json:"guest_email,omitempty"`
	GuestTimezone string `json:"guest_timezone,omitempty"`

	StartAt time.Time `json:"start_at"`
	EndAt   time.Time `json:"end_at"`

	PaymentReference string              `json:"payment_reference,omitempty"`
	Status           types.MeetingStatus `gorm:"default:'confirmed'" json:"status,omitempty"`
	CanceledAt       *time.Time          `json:"canceled_at,omitempty"`
	CancelReason     *string             `json:"cancel_reason,omitempty"`

	Expert Expert `json:"-"`
	Event  Event  `json:"event,omitempty"`

	types.Timestamps
}
