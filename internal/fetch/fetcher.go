// Package fetch implements the HTTP fetch layer: conditional GETs backed by
// the state store's http_cache, retry with exponential backoff and jitter,
// and response-size enforcement. It is grounded on the teacher's
// internal/infra/fetcher package and internal/resilience/{retry,
// circuitbreaker}, generalized from single-purpose content fetching to the
// digest pipeline's per-source collector fetches.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"digestpipe/internal/resilience/circuitbreaker"
	"digestpipe/pkg/security"
)

const statusNotModified = http.StatusNotModified

// Fetcher performs cached, retried, circuit-broken HTTP GETs for the
// collector layer. One Fetcher is shared across all sources in a run.
type Fetcher struct {
	config   Config
	cache    *cacheManager
	client   *http.Client
	mu       sync.Mutex // guards breakers
	breakers map[string]*circuitbreaker.CircuitBreaker
	log      *slog.Logger
}

// New constructs a Fetcher. config must have been validated.
func New(config Config, store CacheStore, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		config: config,
		cache:  newCacheManager(store),
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				if err := security.ValidateFetchURL(req.URL.String()); err != nil {
					return fmt.Errorf("redirect target rejected: %w", err)
				}
				return nil
			},
		},
		breakers: map[string]*circuitbreaker.CircuitBreaker{},
		log:      log.With(slog.String("component", "fetch")),
	}
}

func (f *Fetcher) breakerFor(domain string) *circuitbreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := f.breakers[domain]; ok {
		return cb
	}
	cfg := circuitbreaker.DefaultConfig(domain)
	cb := circuitbreaker.New(cfg)
	f.breakers[domain] = cb
	return cb
}

// Fetch performs a conditional GET for sourceID against url, retrying per
// the configured RetryPolicy and persisting updated cache metadata.
func (f *Fetcher) Fetch(ctx context.Context, sourceID, rawURL string, extraHeaders map[string]string) Result {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return Result{Error: &Error{Class: ErrorClassUnknown, Message: fmt.Sprintf("invalid url: %v", err)}}
	}
	domain := parsed.Host

	log := f.log.With(
		slog.String("source_id", sourceID),
		slog.String("url", security.RedactURLCredentials(rawURL)),
		slog.String("domain", domain),
	)

	headers := f.buildHeaders(domain, extraHeaders)
	for k, v := range f.cache.conditionalHeaders(sourceID) {
		headers[k] = v
	}

	result := f.executeWithRetry(ctx, rawURL, domain, headers, log)
	f.cache.updateFromResult(sourceID, result)

	var errClass string
	if result.Error != nil {
		errClass = string(result.Error.Class)
	}
	log.Info("fetch_complete",
		slog.Int("status_code", result.StatusCode),
		slog.Bool("cache_hit", result.CacheHit),
		slog.Int("bytes", len(result.Body)),
		slog.String("error_class", errClass),
	)

	return result
}

func (f *Fetcher) buildHeaders(domain string, extra map[string]string) map[string]string {
	headers := map[string]string{
		"User-Agent":      f.config.UserAgent,
		"Accept":          "*/*",
		"Accept-Encoding": "gzip, deflate",
	}
	for k, v := range f.config.headersFor(domain) {
		headers[k] = v
	}
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}

func (f *Fetcher) executeWithRetry(ctx context.Context, rawURL, domain string, headers map[string]string, log *slog.Logger) Result {
	timeout := f.config.timeoutFor(domain)
	policy := f.config.RetryPolicy
	var lastErr *Error
	var lastStatus int

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := addJitter(policy.delayForAttempt(attempt-1), policy.JitterFactor)
			log.Debug("retry_attempt", slog.Int("attempt", attempt), slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Result{Error: &Error{Class: ErrorClassUnknown, Message: ctx.Err().Error()}}
			}
		}

		result := f.executeSingle(ctx, rawURL, domain, headers, timeout)

		if result.Error == nil || !policy.shouldRetry(result.Error, attempt) {
			return result
		}

		lastErr = result.Error
		lastStatus = result.StatusCode

		if result.Error.Class == ErrorClassRateLimited && result.Error.HasRetryAfter {
			wait := time.Duration(result.Error.RetryAfter) * time.Second
			if wait > policy.MaxRetryAfter {
				wait = policy.MaxRetryAfter
			}
			log.Info("rate_limited", slog.Int("retry_after", result.Error.RetryAfter), slog.Int("attempt", attempt))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return Result{Error: &Error{Class: ErrorClassUnknown, Message: ctx.Err().Error()}}
			}
		}
	}

	return Result{StatusCode: lastStatus, FinalURL: rawURL, Error: lastErr}
}

func (f *Fetcher) executeSingle(ctx context.Context, rawURL, domain string, headers map[string]string, timeout time.Duration) Result {
	if err := security.ValidateFetchURL(rawURL); err != nil {
		return Result{Error: &Error{Class: ErrorClassConnectionError, Message: err.Error()}}
	}

	cb := f.breakerFor(domain)
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	})

	if err != nil {
		return Result{Error: classifyTransportError(err)}
	}

	resp := raw.(*http.Response)
	defer resp.Body.Close()

	headerMap := map[string]string{}
	for k := range resp.Header {
		headerMap[k] = resp.Header.Get(k)
	}

	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if size, err := strconv.ParseInt(cl, 10, 64); err == nil && size > f.config.MaxResponseSizeBytes {
			return Result{
				StatusCode: resp.StatusCode,
				FinalURL:   resp.Request.URL.String(),
				Headers:    headerMap,
				Error: &Error{
					Class:      ErrorClassResponseSizeExceeded,
					Message:    fmt.Sprintf("response size %d exceeds limit %d", size, f.config.MaxResponseSizeBytes),
					StatusCode: resp.StatusCode,
				},
			}
		}
	}

	body, sizeErr := readBodyWithLimit(resp.Body, f.config.MaxResponseSizeBytes)
	if sizeErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			FinalURL:   resp.Request.URL.String(),
			Headers:    headerMap,
			Error: &Error{
				Class:      ErrorClassResponseSizeExceeded,
				Message:    sizeErr.Error(),
				StatusCode: resp.StatusCode,
			},
		}
	}

	if resp.StatusCode == statusNotModified {
		return Result{
			StatusCode: statusNotModified,
			FinalURL:   resp.Request.URL.String(),
			Headers:    headerMap,
			CacheHit:   true,
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		FinalURL:   resp.Request.URL.String(),
		Headers:    headerMap,
		Body:       body,
		Error:      classifyHTTPStatus(resp.StatusCode, headerMap),
	}
}

func readBodyWithLimit(r io.Reader, maxSize int64) ([]byte, error) {
	buf := make([]byte, 0, defaultChunkSize)
	chunk := make([]byte, defaultChunkSize)
	var total int64

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if total > maxSize {
				return nil, fmt.Errorf("response size exceeded limit of %d bytes (read %d bytes)", maxSize, total)
			}
			buf = append(buf, chunk[:n]...)
		}
		if err == io.EOF {
			return buf, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func classifyHTTPStatus(status int, headers map[string]string) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusTooManyRequests {
		retryAfter, ok := parseRetryAfter(headers)
		return &Error{
			Class:         ErrorClassRateLimited,
			Message:       "rate limited (429 too many requests)",
			StatusCode:    status,
			RetryAfter:    retryAfter,
			HasRetryAfter: ok,
		}
	}
	if status >= 400 && status < 500 {
		return &Error{Class: ErrorClassHTTP4xx, Message: fmt.Sprintf("client error (%d)", status), StatusCode: status}
	}
	if status >= 500 && status < 600 {
		return &Error{Class: ErrorClassHTTP5xx, Message: fmt.Sprintf("server error (%d)", status), StatusCode: status}
	}
	return nil
}

func parseRetryAfter(headers map[string]string) (int, bool) {
	value, ok := headerValue(headers, "retry-after")
	if !ok || value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return seconds, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delta := int(time.Until(when).Seconds())
		if delta < 0 {
			delta = 0
		}
		return delta, true
	}
	return 0, false
}

func classifyTransportError(err error) *Error {
	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return &Error{Class: ErrorClassSSLError, Message: err.Error()}
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Class: ErrorClassNetworkTimeout, Message: err.Error()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Class: ErrorClassNetworkTimeout, Message: err.Error()}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return &Error{Class: ErrorClassNetworkTimeout, Message: err.Error()}
		}
		var certErr *tls.CertificateVerificationError
		if errors.As(urlErr.Err, &certErr) {
			return &Error{Class: ErrorClassSSLError, Message: err.Error()}
		}
		return &Error{Class: ErrorClassConnectionError, Message: err.Error()}
	}

	return &Error{Class: ErrorClassUnknown, Message: err.Error()}
}

func addJitter(d time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return d
	}
	if jitterFactor > 1.0 {
		jitterFactor = 1.0
	}
	// #nosec G404 -- jitter does not need cryptographic randomness.
	jitter := time.Duration(rand.Float64() * float64(d) * jitterFactor)
	return d + jitter
}
