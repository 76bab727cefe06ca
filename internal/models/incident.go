package models

import (
	"time"

	"github.com/monocle-dev/fleetwatch/internal/types"
)

// Incident is one outage episode of a host. Hostname is a plain reference to
// Server.Hostname: incidents outlive the server record and are never cascaded.
type Incident struct {
	ID uint `gorm:"primaryKey" json:"id"`

	Hostname   string             `gorm:"not null;index;index:idx_incidents_active_host,unique,where:is_active = true" json:"hostname"`
	IsActive   bool               `gorm:"not null;index" json:"isActive"`
	Status     types.ServerStatus `gorm:"not null" json:"status"`
	CreatedAt  time.Time          `gorm:"<-:create;not null;index" json:"createdAt"`
	ResolvedAt *time.Time         `json:"resolvedAt"`
	UpdatedAt  time.Time          `json:"-"`
}
