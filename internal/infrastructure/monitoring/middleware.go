package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		c.Next()

		// Route template keeps label cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures a lifecycle stage
type Timer struct {
	start   time.Time
	metrics *Metrics
	stage   string
}

// NewTimer creates a new timer
func NewTimer(metrics *Metrics, stage string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		stage:   stage,
	}
}

// Stop records the elapsed time and returns it
func (t *Timer) Stop(err error) time.Duration {
	d := time.Since(t.start)
	t.metrics.RecordStage(t.stage, d, err)
	return d
}
