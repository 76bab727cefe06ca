package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monocle-dev/fleetwatch/internal/metrics"
)

func newEngine(log zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Logger(log), Metrics())
	r.GET("/api/incidents/:hostname", func(c *gin.Context) {
		c.JSON(http.StatusOK, []string{})
	})

	return r
}

func TestMetricsLabelsByRoute(t *testing.T) {
	r := newEngine(zerolog.Nop())

	counter := metrics.TotalRequests.WithLabelValues("GET", "/api/incidents/:hostname", "200")
	before := testutil.ToFloat64(counter)

	for _, host := range []string{"web-1", "web-2"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/incidents/"+host, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	unmatched := metrics.TotalRequests.WithLabelValues("GET", "unmatched", "404")
	before = testutil.ToFloat64(unmatched)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(unmatched))
}

func TestLoggerLevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(zerolog.New(&buf))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "/missing", entry["path"])
	assert.Equal(t, float64(404), entry["status"])
	assert.Equal(t, "http", entry["component"])
}
