package fetch

import (
	"fmt"
	"regexp"
	"time"

	"digestpipe/pkg/security"
)

// RetryPolicy controls attempt count and backoff shape. The delay for
// attempt n is min(base * expBase^n, maxDelay) * (1 + uniform[0, jitter)).
type RetryPolicy struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration
	ExponentialBase  float64
	JitterFactor     float64
	MaxRetryAfter    time.Duration
}

// DefaultRetryPolicy mirrors the teacher's FeedFetchConfig shape, adapted to
// the spec's named parameters.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		BaseDelay:       1 * time.Second,
		MaxDelay:        30 * time.Second,
		ExponentialBase: 2.0,
		JitterFactor:    0.1,
		MaxRetryAfter:   120 * time.Second,
	}
}

// shouldRetry reports whether attempt (0-indexed) should be retried given
// err, honoring both the error class and the attempt budget.
func (p RetryPolicy) shouldRetry(err *Error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.MaxRetries {
		return false
	}
	return err.shouldRetry()
}

// delayForAttempt returns the base (pre-jitter) backoff delay before
// retrying attempt n (0-indexed, i.e. the delay before the 2nd try is
// delayForAttempt(0)).
func (p RetryPolicy) delayForAttempt(n int) time.Duration {
	d := float64(p.BaseDelay) * pow(p.ExponentialBase, float64(n))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

func pow(base, exp float64) float64 {
	result := 1.0
	for exp > 0 {
		result *= base
		exp--
	}
	return result
}

// DomainProfile overrides headers and timeout for URLs whose host matches
// DomainPattern (a regular expression matched against the host only).
type DomainProfile struct {
	DomainPattern string
	Headers       map[string]string
	Timeout       time.Duration

	compiled *regexp.Regexp
}

// Compile validates DomainPattern and rejects credential headers in
// Headers; it must be called once before the profile is used.
func (p *DomainProfile) Compile() error {
	re, err := regexp.Compile(p.DomainPattern)
	if err != nil {
		return fmt.Errorf("invalid domain pattern %q: %w", p.DomainPattern, err)
	}
	if err := security.ValidateConfigHeaders(p.Headers); err != nil {
		return err
	}
	p.compiled = re
	return nil
}

func (p *DomainProfile) matches(host string) bool {
	if p.compiled == nil {
		return false
	}
	return p.compiled.MatchString(host)
}

// Config is the central configuration for the fetch layer.
type Config struct {
	UserAgent             string
	DefaultTimeout        time.Duration
	MaxResponseSizeBytes  int64
	RetryPolicy           RetryPolicy
	DomainProfiles        []DomainProfile
	FailFast              bool
}

const (
	minResponseSizeBytes = 1024
	maxResponseSizeBytes = 100 * 1024 * 1024
	defaultResponseSize  = 10 * 1024 * 1024
	defaultChunkSize     = 32 * 1024
)

// DefaultConfig returns production defaults matching spec.md §4.1.
func DefaultConfig() Config {
	return Config{
		UserAgent:            "digestpipe/1.0",
		DefaultTimeout:       30 * time.Second,
		MaxResponseSizeBytes: defaultResponseSize,
		RetryPolicy:          DefaultRetryPolicy(),
		DomainProfiles:       nil,
		FailFast:             false,
	}
}

// Validate checks structural bounds and compiles every DomainProfile.
func (c *Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("user agent must not be empty")
	}
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("default timeout must be positive")
	}
	if c.MaxResponseSizeBytes < minResponseSizeBytes || c.MaxResponseSizeBytes > maxResponseSizeBytes {
		return fmt.Errorf("max response size must be between %d and %d bytes, got %d", minResponseSizeBytes, maxResponseSizeBytes, c.MaxResponseSizeBytes)
	}
	for i := range c.DomainProfiles {
		if err := c.DomainProfiles[i].Compile(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) profileFor(host string) *DomainProfile {
	for i := range c.DomainProfiles {
		if c.DomainProfiles[i].matches(host) {
			return &c.DomainProfiles[i]
		}
	}
	return nil
}

func (c *Config) timeoutFor(host string) time.Duration {
	if p := c.profileFor(host); p != nil && p.Timeout > 0 {
		return p.Timeout
	}
	return c.DefaultTimeout
}

func (c *Config) headersFor(host string) map[string]string {
	if p := c.profileFor(host); p != nil {
		out := make(map[string]string, len(p.Headers))
		for k, v := range p.Headers {
			out[k] = v
		}
		return out
	}
	return map[string]string{}
}
