package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CORS allows read access from origins
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders: []string{
			"Accept",
			"Accept-Encoding",
			"Cache-Control",
			"Origin",
			"Range",
			"X-Trace-ID",
		},
		ExposeHeaders: []string{"Content-Length", "X-Trace-ID"},
		MaxAge:        12 * time.Hour,
	})
}

// DefaultLimiterIdle is how long a client's limiter survives without requests
const DefaultLimiterIdle = 10 * time.Minute

// RateLimit creates a per-IP rate limiting middleware.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	return newIPLimiters(rps, burst, DefaultLimiterIdle, time.Now).handler
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters keeps one limiter per client IP. Limiters idle for longer than
// idle are swept, at most once per idle period.
type ipLimiters struct {
	rps   rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

func newIPLimiters(rps float64, burst int, idle time.Duration, now func() time.Time) *ipLimiters {
	if burst < 1 {
		burst = 1
	}
	return &ipLimiters{
		rps:       rate.Limit(rps),
		burst:     burst,
		idle:      idle,
		now:       now,
		clients:   make(map[string]*client),
		lastSweep: now(),
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		for k, cl := range l.clients {
			if now.Sub(cl.lastSeen) >= l.idle {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	cl, ok := l.clients[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

func (l *ipLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *ipLimiters) handler(c *gin.Context) {
	if !l.get(c.ClientIP()).Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": "rate limit exceeded",
		})
		return
	}
	c.Next()
}
