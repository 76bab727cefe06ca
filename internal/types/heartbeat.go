package types

import "time"

type HeartbeatRequest struct {
	Hostname  string   `json:"hostname" binding:"required"`
	IP        string   `json:"ip"`
	CPU       *float64 `json:"cpu"`
	RAM       *float64 `json:"ram"`
	Timestamp int64    `json:"timestamp"` // Unix seconds, as sent by the agent
}

// Heartbeat is a validated heartbeat ready to be upserted into the store.
type Heartbeat struct {
	Hostname    string
	IP          string
	CPU         *float64
	RAM         *float64
	LastMetrics time.Time
	ReceivedAt  time.Time
}
