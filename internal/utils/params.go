package utils

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func GetHostname(ctx *gin.Context) (string, error) {
	hostnameParam := ctx.Param("hostname")

	if hostnameParam == "" {
		return "", errors.New("Hostname not found")
	}

	hostname, err := NormalizeHostname(hostnameParam)

	if err != nil {
		return "", errors.New("Invalid hostname")
	}

	return hostname, nil
}

// GetLimit reads the "limit" query parameter. Missing or invalid values fall
// back to def; values above max are capped.
func GetLimit(ctx *gin.Context, def, max int) int {
	limitStr := ctx.Query("limit")

	if limitStr == "" {
		return def
	}

	limit, err := strconv.Atoi(limitStr)

	if err != nil || limit <= 0 {
		return def
	}

	if max > 0 && limit > max {
		return max
	}

	return limit
}

// NormalizeHostname turns what an agent reports (a bare name, an address or
// a URL) into the lowercase hostname used as the server identity.
func NormalizeHostname(input string) (string, error) {
	if input == "" {
		return "", errors.New("input cannot be empty")
	}

	// Clean up the input
	hostname := strings.TrimSpace(input)

	// If it looks like a URL, parse it
	if strings.Contains(hostname, "://") {
		parsedURL, err := url.Parse(hostname)
		if err != nil {
			return "", errors.New("invalid URL format")
		}

		if parsedURL.Hostname() == "" {
			return "", errors.New("no hostname found in URL")
		}

		hostname = parsedURL.Hostname()
	}

	// Remove trailing slashes and dots
	hostname = strings.TrimRight(hostname, "/.")
	hostname = strings.ToLower(hostname)

	if hostname == "" || strings.ContainsAny(hostname, " /\t") {
		return "", errors.New("invalid hostname after processing")
	}

	return hostname, nil
}
