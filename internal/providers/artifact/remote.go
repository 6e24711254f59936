package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/logging"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/shadowbox/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/shadowbox/internal/shared/platform"
)

// Remote downloads artifacts from a repository into a local directory
type Remote struct {
	baseURL string
	dir     string

	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	logger  *logging.Logger

	retryMax     int
	retryWaitMin time.Duration
	timeout      time.Duration
}

// RemoteOption configures a Remote
type RemoteOption func(*Remote)

// WithRateLimit caps fetches per second; zero or less is unlimited
func WithRateLimit(rps float64) RemoteOption {
	return func(r *Remote) {
		if rps <= 0 {
			r.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithTimeout bounds a single download
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) { r.timeout = d }
}

// WithRetry configures transport level retries
func WithRetry(attempts int, minWait time.Duration) RemoteOption {
	return func(r *Remote) {
		r.retryMax = attempts
		r.retryWaitMin = minWait
	}
}

// WithRemoteMetrics records fetch outcomes
func WithRemoteMetrics(m *monitoring.Metrics) RemoteOption {
	return func(r *Remote) { r.metrics = m }
}

// WithRemoteLogger sets the logger
func WithRemoteLogger(l *logging.Logger) RemoteOption {
	return func(r *Remote) { r.logger = l }
}

// NewRemote creates a resolver fetching from a maven-layout repository at baseURL
func NewRemote(baseURL, dir string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		dir:          dir,
		limiter:      rate.NewLimiter(rate.Inf, 0),
		retryMax:     3,
		retryWaitMin: time.Second,
		timeout:      5 * time.Minute,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).Named("artifact")

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = r.retryMax
	retryClient.RetryWaitMin = r.retryWaitMin
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil

	r.client = resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(r.timeout).
		SetHeader("User-Agent", "shadowbox/1.0")

	r.breaker = resilience.New("artifact-remote", resilience.Settings{
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsFailure: func(err error) bool {
			return err != nil && !isNotFound(err) && !isCanceled(err)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			r.logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return r
}

// Breaker exposes the circuit breaker state
func (r *Remote) Breaker() *resilience.Breaker {
	return r.breaker
}

// Resolve implements Resolver
func (r *Remote) Resolve(ctx context.Context, dep platform.DependencyID) (platform.Artifact, error) {
	if err := dep.Validate(); err != nil {
		return platform.Artifact{}, err
	}
	dest := filepath.Join(r.dir, filepath.FromSlash(dep.RepositoryPath()))

	path, err := resilience.Do(ctx, r.breaker, func(ctx context.Context) (string, error) {
		return r.download(ctx, dep, dest)
	})
	r.metrics.RecordArtifactFetch("remote", err)
	if err != nil {
		return platform.Artifact{}, err
	}
	return platform.Artifact{Dependency: dep, Path: path}, nil
}

func (r *Remote) download(ctx context.Context, dep platform.DependencyID, dest string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit error: %w", err)
	}

	url := r.baseURL + "/" + dep.RepositoryPath()
	start := time.Now()

	resp, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	body := resp.RawBody()
	defer body.Close()

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return "", fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode() >= 300:
		return "", fmt.Errorf("fetch %s: %s", url, resp.Status())
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".fetch-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}

	r.logger.Info("Downloaded artifact",
		zap.String("dependency", dep.String()),
		zap.Int64("bytes", n),
		zap.Duration("took", time.Since(start)))
	return dest, nil
}
