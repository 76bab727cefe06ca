package models

import (
	"time"

	"github.com/monocle-dev/fleetwatch/internal/types"
)

type Server struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Hostname    string             `gorm:"not null;uniqueIndex" json:"hostname"`
	IP          string             `json:"ip,omitempty"`
	CPU         *float64           `json:"cpu"`
	RAM         *float64           `json:"ram"`
	Status      types.ServerStatus `gorm:"not null;default:online;index" json:"status"`
	LastSeen    time.Time          `gorm:"not null" json:"lastSeen"`
	LastMetrics time.Time          `gorm:"not null" json:"lastMetrics"`
	CreatedAt   time.Time          `gorm:"<-:create;not null" json:"createdAt"`
	UpdatedAt   time.Time          `json:"-"`
}
