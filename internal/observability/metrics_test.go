package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/birdctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("GET", "/health", 200, 12*time.Millisecond)
	RecordReplyBytes("Screen Shot", 100)

	before := testutil.ToFloat64(driverCommands.WithLabelValues("Configuration", ResultOK))
	RecordCommand("Configuration", ResultOK, 3*time.Millisecond, true)
	RecordCommand("Click", ResultOK, 0, false)
	after := testutil.ToFloat64(driverCommands.WithLabelValues("Configuration", ResultOK))
	if after-before != 1 {
		t.Fatalf("commands_total delta got=%v want=1", after-before)
	}
}

func TestLoggerTagsApp(t *testing.T) {
	testlog.Start(t)
	logger := Logger("birdctl-test")
	logger.Debug().Str("case", t.Name()).Msg("observability logger")
}

func TestRequestMetricsUseRoutePattern(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestLogger(Logger("observability-test")))
	r.Use(RequestMetricsMiddleware())
	r.POST("/levels/:level", func(c *gin.Context) { c.Status(http.StatusOK) })

	series := httpRequests.WithLabelValues(http.MethodPost, "/levels/:level", "200")
	before := testutil.ToFloat64(series)
	for _, path := range []string{"/levels/3", "/levels/next"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, path, nil))
	}
	if got := testutil.ToFloat64(series) - before; got != 2 {
		t.Fatalf("route series delta got=%v want=2", got)
	}

	unmatched := httpRequests.WithLabelValues(http.MethodGet, "unmatched", "404")
	before = testutil.ToFloat64(unmatched)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))
	if got := testutil.ToFloat64(unmatched) - before; got != 1 {
		t.Fatalf("unmatched series delta got=%v want=1", got)
	}
}
