package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type JSONBAny struct {
	Inner any
}

func (a JSONBAny) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a.Inner)
	return string(valueString), err
}
func (a *JSONBAny) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	var inner any
	if err := json.Unmarshal(b, &inner); err != nil {
		return err
	}
	a.Inner = inner
	return nil
}

// BusyInterval is an opaque occupied span reported by the busy-time
// provider. UTC instants, half-open [Start, End).
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type ReservationStatus string

const (
	RESERVATION_HELD       ReservationStatus = "held"
	RESERVATION_PROMOTED   ReservationStatus = "promoted"
	RESERVATION_EXPIRED    ReservationStatus = "expired"
	RESERVATION_CONFLICTED ReservationStatus = "conflicted"
)

type MeetingStatus string

const (
	MEETING_CONFIRMED MeetingStatus = "confirmed"
	MEETING_CANCELED  MeetingStatus = "canceled"
)

type RefundStatus string

const (
	REFUND_PENDING RefundStatus = "pending"
	REFUND_APPLIED RefundStatus = "applied"
	REFUND_FAILED  RefundStatus = "failed"
)

// SettlementClass groups payment methods by how their confirmation
// arrives: synchronously at checkout or days later.
type SettlementClass string

const (
	SETTLEMENT_INSTANT  SettlementClass = "instant"
	SETTLEMENT_DEFERRED SettlementClass = "deferred"
)

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}

type AvailabilityURIParams struct {
	ExpertID uint `uri:"id" binding:"required"`
	EventID  uint `uri:"eventId" binding:"required"`
}

type AvailabilityQueryParams struct {
	From string `form:"from" binding:"required,utcdate"`
	To   string `form:"to" binding:"required,utcdate"`
}

type ScheduleWindowInput struct {
	Weekday int    `json:"weekday" binding:"min=0,max=6"`
	Start   string `json:"start" binding:"required,hhmm"`
	End     string `json:"end" binding:"required,hhmm"`
}

type UpsertScheduleRequestBody struct {
	Timezone      string                `json:"timezone" binding:"required,iana_tz"`
	NoticeMinutes uint                  `json:"notice_minutes,omitempty"`
	Windows       []ScheduleWindowInput `json:"windows" binding:"required,min=1,dive"`
}

type CreateEventRequestBody struct {
	Name            string `json:"name" binding:"required"`
	Description     string `json:"description,omitempty"`
	DurationMinutes uint   `json:"duration_minutes" binding:"required,min=15,max=480"`
	NoticeMinutes   uint   `json:"notice_minutes,omitempty"`
	Price           int64  `json:"price" binding:"required,min=0"`
	Currency        string `json:"currency" binding:"required,len=3"`
}

type CreateBookingRequestBody struct {
	ExpertID      uint   `json:"expert" binding:"required"`
	EventID       uint   `json:"event" binding:"required"`
	Start         string `json:"start" binding:"required,utcdate"`
	GuestName     string `json:"guest_name" binding:"required"`
	GuestEmail    string `json:"guest_email" binding:"required,email"`
	GuestTimezone string `json:"guest_timezone" binding:"required,iana_tz"`
	PaymentMethod string `json:"payment_method" binding:"required"`
}

type CancelMeetingRequestBody struct {
	Reason string `json:"reason" binding:"required"`
}

type RegisterDeviceTokenRequestBody struct {
	Token string `json:"token" binding:"required"`
}

type CreateSettingRequestBody struct {
	Key   string `json:"key" binding:"required"`
	Value any    `json:"value" binding:"required"`
	Group string `json:"group" binding:"required"`
}

// SettlementSignal is the inbound payment confirmation event, whether it
// arrives over the Stripe webhook or the settlement queue.
type SettlementSignal struct {
	PaymentReference string    `json:"payment_reference"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	SettledAt        time.Time `json:"settled_at"`
	Method           string    `json:"method"`
}

// NotificationRequest is the fire-and-forget payload handed to the
// external notifier. Dispatch failures never roll back engine state.
type NotificationRequest struct {
	Recipient    string `json:"recipient"`
	TemplateKind string `json:"template_kind"`
	Data         JSONB  `json:"data"`
}

type Handler func(payload string)
