package models

import "vitacal/src/types"

// RefundRecord carries the payout split for a conflicted reservation.
// Status stays pending until the payment-provider refund call succeeds;
// the sweeper's reconciliation pass retries pending rows.
type RefundRecord struct {
	ID            uint `gorm:"primarykey" json:"id"`
	ReservationID uint `gorm:"uniqueIndex" json:"reservation_id,omitempty"`

	// Minor-unit amounts. RefundAmount + RetainedAmount always equals the
	// reservation amount.
	RefundAmount   int64  `json:"refund_amount"`
	RetainedAmount int64  `json:"retained_amount"`
	Currency       string `json:"currency,omitempty"`
	Reason         string `json:"reason,omitempty"`

	PaymentReference string             `json:"payment_reference,omitempty"`
	ProviderRefundId *string            `json:"-"`
	Status           types.RefundStatus `gorm:"default:'pending'" json:"status,omitempty"`
	Attempts         uint               `json:"-"`

	types.Timestamps
}
