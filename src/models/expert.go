package models

import "vitacal/src/types"

type Expert struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `gorm:"uniqueIndex" json:"email,omitempty"`
	// UID is the subject claim issued by the external identity provider.
	UID string `gorm:"uniqueIndex" json:"uid,omitempty"`
	// CalendarID is the expert's calendar in the busy-time provider.
	CalendarID      string  `json:"-"`
	Timezone        string  `json:"timezone,omitempty"`
	StripeAccountId *string `json:"-"`
	FCMToken        *string `json:"-"`

	Schedule *Schedule `json:"schedule,omitempty"`
	Events   []Event   `gorm:"foreignKey:expert_id" json:"events,omitempty"`

	types.Timestamps
}
