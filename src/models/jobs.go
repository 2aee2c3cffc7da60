package models

import (
	"time"

	"github.com/google/uuid"
)

// SweeperRun records one tick of the periodic sweeper so operators can see
// what each pass touched.
type SweeperRun struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Expired         int64      `json:"expired"`
	RemindersSent   int64      `json:"reminders_sent"`
	RefundsRetried  int64      `json:"refunds_retried"`
	RefundsResolved int64      `json:"refunds_resolved"`
	Status          string     `gorm:"default:'running'" json:"status,omitempty"`
}
