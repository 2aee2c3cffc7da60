package models

import "vitacal/src/types"

// Event is a bookable service definition. Once a confirmed Meeting
// references it the definition is immutable except for deactivation.
type Event struct {
	ID              uint    `gorm:"primarykey" json:"id"`
	ExpertID        uint    `gorm:"index" json:"expert_id,omitempty"`
	Name            string  `json:"name,omitempty"`
	Slug            string  `gorm:"index" json:"slug,omitempty"`
	Description     *string `json:"description,omitempty"`
	DurationMinutes uint    `json:"duration_minutes"`
	NoticeMinutes   uint    `json:"notice_minutes"`
	// Price in the currency's minor unit.
	Price    int64  `json:"price"`
	Currency string `json:"currency,omitempty"`
	Active   bool   `gorm:"default:true" json:"active"`

	Expert Expert `json:"-"`

	types.Timestamps
}
