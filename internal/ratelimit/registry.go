package ratelimit

import "sync"

// Platform identifies a remote API whose requests must be serialized across
// every source that shares it.
type Platform string

const (
	PlatformGitHub      Platform = "github"
	PlatformHuggingFace Platform = "huggingface"
	PlatformOpenReview  Platform = "openreview"
)

// PlatformLimit configures one platform's bucket.
type PlatformLimit struct {
	Capacity float64
	QPS      float64
}

// DefaultPlatformLimits mirrors each platform's published anonymous rate
// limit, kept conservative since a run may share the token across many
// collector sources.
func DefaultPlatformLimits() map[Platform]PlatformLimit {
	return map[Platform]PlatformLimit{
		PlatformGitHub:      {Capacity: 5, QPS: 1},
		PlatformHuggingFace: {Capacity: 5, QPS: 2},
		PlatformOpenReview:  {Capacity: 3, QPS: 1},
	}
}

// Registry is the process-wide, platform-keyed singleton the spec calls
// for: limiters are created lazily on first use and shared by every
// collector source targeting that platform for the lifetime of the run.
type Registry struct {
	mu      sync.Mutex
	limits  map[Platform]PlatformLimit
	buckets map[Platform]*TokenBucket
	clock   Clock
}

// NewRegistry builds a Registry with the given per-platform limits. Pass
// nil clock to use SystemClock.
func NewRegistry(limits map[Platform]PlatformLimit, clock Clock) *Registry {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Registry{
		limits:  limits,
		buckets: map[Platform]*TokenBucket{},
		clock:   clock,
	}
}

// Bucket returns the bucket for platform, creating it lazily from the
// configured limit the first time it's requested. Platforms with no
// configured limit get an effectively unlimited bucket.
func (r *Registry) Bucket(platform Platform) *TokenBucket {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.buckets[platform]; ok {
		return b
	}

	limit, ok := r.limits[platform]
	if !ok {
		limit = PlatformLimit{Capacity: 1000, QPS: 1000}
	}
	b := NewTokenBucket(limit.Capacity, limit.QPS, r.clock)
	r.buckets[platform] = b
	return b
}

// Reset drops every created bucket so the next Bucket call starts fresh.
// Tests use this between runs instead of constructing a new Registry.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets = map[Platform]*TokenBucket{}
}
