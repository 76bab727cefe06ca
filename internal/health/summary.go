package health

import (
	"time"

	"github.com/monocle-dev/fleetwatch/internal/types"
)

type Transition struct {
	Hostname string             `json:"hostname"`
	From     types.ServerStatus `json:"from"`
	To       types.ServerStatus `json:"to"`
	Action   Action             `json:"action"`
}

type HostError struct {
	Hostname string `json:"hostname"`
	Error    string `json:"error"`
}

// SweepSummary aggregates one full pass over the fleet. Status counts only
// include hosts whose new status was persisted.
type SweepSummary struct {
	ID          string       `json:"id"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	Online      int          `json:"online"`
	Degraded    int          `json:"degraded"`
	Down        int          `json:"down"`
	Failures    int          `json:"failures"`
	Skipped     int          `json:"skipped"`
	Transitions []Transition `json:"transitions"`
	Errors      []HostError  `json:"errors"`
}

func (s *SweepSummary) Count(status types.ServerStatus) {
	switch status {
	case types.StatusOnline:
		s.Online++
	case types.StatusDegraded:
		s.Degraded++
	case types.StatusDown:
		s.Down++
	}
}

func (s *SweepSummary) Fail(hostname string, err error) {
	s.Failures++
	s.Errors = append(s.Errors, HostError{Hostname: hostname, Error: err.Error()})
}
