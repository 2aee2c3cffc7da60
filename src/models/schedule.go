package models

import "vitacal/src/types"

// Schedule is an expert's recurring weekly availability. Windows for the
// same weekday must not overlap; that is validated on write, never assumed
// on read.
type Schedule struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	ExpertID uint   `gorm:"uniqueIndex" json:"expert_id,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	// NoticeMinutes is the default minimum notice applied when the booked
	// event does not carry its own.
	NoticeMinutes uint `json:"notice_minutes,omitempty"`

	Windows []AvailabilityWindow `gorm:"foreignKey:schedule_id" json:"windows,omitempty"`
	Expert  Expert               `json:"-"`

	types.Timestamps
}

// AvailabilityWindow is one bookable span on one weekday, stored as
// minutes from local midnight in the schedule's timezone.
type AvailabilityWindow struct {
	ID          uint `gorm:"primarykey" json:"id"`
	ScheduleID  uint `gorm:"index" json:"schedule_id,omitempty"`
	Weekday     int  `json:"weekday"`
	StartMinute int  `json:"start_minute"`
	EndMinute   int  `json:"end_minute"`

	types.Timestamps
}
