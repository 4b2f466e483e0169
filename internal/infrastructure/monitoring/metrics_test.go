package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsIsolated(t *testing.T) {
	// Two collectors in one process must not collide
	a := NewMetrics()
	b := NewMetrics()

	a.RecordCacheHit("installed-theme-manifests")
	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheHits.WithLabelValues("installed-theme-manifests")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheHits.WithLabelValues("installed-theme-manifests")))
}

func TestTimer(t *testing.T) {
	m := NewMetrics()

	NewTimer(m, "area", "add").Stop(nil)
	NewTimer(m, "area", "add").Stop(errors.New("boom"))
	NewTimer(nil, "area", "add").Stop(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("area", "add", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("area", "add", "error")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/areas/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/areas/footer", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/areas/:id", "404")))
	snap := m.Snapshot()
	assert.Equal(t, int64(1), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.TotalErrors)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "canopy_http_requests_total")
	assert.Contains(t, w.Body.String(), "canopy_uptime_seconds")
}
