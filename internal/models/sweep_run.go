package models

import (
	"time"

	"gorm.io/datatypes"
)

type SweepRun struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	StartedAt  time.Time `gorm:"not null;index" json:"startedAt"`
	FinishedAt time.Time `gorm:"not null" json:"finishedAt"`
	Online     int       `gorm:"not null" json:"online"`
	Degraded   int       `gorm:"not null" json:"degraded"`
	Down       int       `gorm:"not null" json:"down"`
	Failures   int       `gorm:"not null" json:"failures"`
	Skipped    int       `gorm:"not null" json:"skipped"`
	// Errors holds the per-host failures as [{"hostname": ..., "error": ...}]
	Errors    datatypes.JSON `json:"errors"`
	CreatedAt time.Time      `json:"-"`
}
