package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMetricsEngine(reg *prometheus.Registry) (*gin.Engine, *Prometheus) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	p := NewPrometheus(NewPrometheusOptions{
		Subsystem: "cashier",
		ReqCntURLLabelMappingFn: func(c *gin.Context) string {
			return c.FullPath()
		},
		SkipURLs: []string{"/webhook"},
		Registry: reg,
		Logger:   zap.NewNop().Sugar(),
	})
	p.Use(r)
	r.GET("/users/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/webhook", func(c *gin.Context) { c.String(http.StatusAccepted, "") })
	return r, p
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestPrometheus_RecordsRequestsByRoute(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, p := newMetricsEngine(reg)

	serve(r, http.MethodGet, "/users/1")
	serve(r, http.MethodGet, "/users/2")
	serve(r, http.MethodPost, "/webhook")

	require.Equal(t, 2.0, testutil.ToFloat64(p.reqCnt.WithLabelValues("200", http.MethodGet, "/users/:id", "")))
	require.Equal(t, 1, testutil.CollectAndCount(p.reqCnt))
}

func TestPrometheus_ServesScrapeEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, _ := newMetricsEngine(reg)

	serve(r, http.MethodGet, "/users/1")
	w := serve(r, http.MethodGet, defaultMetricPath)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "cashier_req_total"))
	require.False(t, strings.Contains(w.Body.String(), `url="/metrics"`))
}

func TestNewPrometheus_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, a := newMetricsEngine(reg)
	_, b := newMetricsEngine(reg)
	require.Same(t, a.reqCnt, b.reqCnt)
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("abcd"))
	req.Header = http.Header{"X-Fs-Signature": {"sig"}}
	// path + method + proto + header + host + body
	want := len("/webhook") + len("POST") + len("HTTP/1.1") + len("X-Fs-Signature") + len("sig") + len("example.com") + 4
	require.Equal(t, want, computeApproximateRequestSize(req))
}

func TestMillisecondsSince(t *testing.T) {
	require.GreaterOrEqual(t, MillisecondsSince(time.Now().Add(-5*time.Millisecond)), 5.0)
}
