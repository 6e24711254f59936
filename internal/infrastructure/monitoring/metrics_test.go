package monitoring

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestIndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordCacheHit()
	a.RecordCacheHit()
	b.RecordCacheHit()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.CacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.CacheHits))
}

func TestRecordRunAndStage(t *testing.T) {
	m := NewMetrics()

	m.RecordRun("23", true, time.Millisecond)
	m.RecordRun("23", false, time.Millisecond)
	m.RecordStage("teardown", time.Millisecond, errors.New("boom"))
	m.RecordStage("prime", time.Millisecond, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("23", "passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("23", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("teardown")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StageFailures.WithLabelValues("prime")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordCacheHit()
	m.RecordDispatch("21", "shadowed")
	m.RecordRun("21", true, time.Second)
	NewTimer(m, "execute").Stop(nil)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/artifacts/*path", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/artifacts/a/b.js", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/artifacts/*path", "200")))
}
