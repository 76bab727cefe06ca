package types

import (
	"strings"
)

type ServerStatus string

const (
	StatusOnline   ServerStatus = "online"
	StatusDegraded ServerStatus = "degraded"
	StatusDown     ServerStatus = "down"
)

var (
	// Default allowed origins for development
	defaultOrigins = []string{
		"http://localhost:3000",
		"http://localhost:5173",
	}
)

// Valid reports whether s is one of the known server statuses.
func (s ServerStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusDegraded, StatusDown:
		return true
	}
	return false
}

// AllowedOrigins merges the development origins with a comma separated list
// coming from the environment.
func AllowedOrigins(extra string) []string {
	origins := make([]string, len(defaultOrigins))
	copy(origins, defaultOrigins)

	for _, origin := range strings.Split(extra, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}

	return origins
}
