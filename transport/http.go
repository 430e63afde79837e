package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// HTTP is the default Transport over net/http. POST bodies are sent as
// application/x-www-form-urlencoded, the content type geoprocessing
// services expect for job submission; the credential travels as a
// "token" query parameter on every request.
type HTTP struct {
	client    *http.Client
	tokens    TokenProvider
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
	userAgent string
}

// HTTPOption configures an HTTP transport.
type HTTPOption func(*HTTP)

// WithHTTPClient sets a custom http.Client. The default uses a 30s
// timeout.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithTimeout sets the per-exchange timeout on the default client.
// Ignored when WithHTTPClient is also given.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithTokenProvider sets the credential source for outgoing requests.
func WithTokenProvider(p TokenProvider) HTTPOption {
	return func(h *HTTP) { h.tokens = p }
}

// WithLogger sets the transport's logger.
func WithLogger(l *slog.Logger) HTTPOption {
	return func(h *HTTP) { h.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(h *HTTP) { h.userAgent = ua }
}

// WithRateLimit caps outgoing requests at rps per second with the given
// burst. Send blocks (respecting the context) until the limiter allows
// the request. Useful when many jobs are polled concurrently against a
// service that throttles clients.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(h *HTTP) { h.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithBreaker puts a circuit breaker in front of the service: after
// more than half of a window's requests fail, further sends fail fast
// until the service recovers. The poll loop's own failure counting sits
// above this and is unaffected.
func WithBreaker(name string) HTTPOption {
	return func(h *HTTP) {
		h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 3,
			Interval:    10 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 5 && failureRatio > 0.5
			},
		})
	}
}

// NewHTTP creates the default HTTP transport.
func NewHTTP(opts ...HTTPOption) *HTTP {
	h := &HTTP{
		client: &http.Client{Timeout: 30 * time.Second},
		tokens: StaticToken(""),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Send issues one HTTP exchange and returns the raw response body.
// A non-2xx status is a transport failure; job-level errors arrive in
// 200 responses and are the client's concern.
func (h *HTTP) Send(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if h.breaker != nil {
		out, err := h.breaker.Execute(func() (any, error) {
			return h.send(ctx, method, rawURL, body)
		})
		if err != nil {
			return nil, err
		}
		return out.([]byte), nil //nolint:errcheck // breaker always stores []byte
	}
	return h.send(ctx, method, rawURL, body)
}

func (h *HTTP) send(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	token, err := h.tokens.CurrentCredential(ctx)
	if err != nil {
		return nil, fmt.Errorf("current credential: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if len(body) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, rawURL, err)
	}

	h.logger.Debug("exchange complete",
		slog.String("method", method),
		slog.String("url", rawURL),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, rawURL, resp.StatusCode)
	}
	return payload, nil
}
