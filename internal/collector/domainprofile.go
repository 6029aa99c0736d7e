package collector

import "sync"

// DomainProfile tunes per-domain behavior for the HTML list adapter: how
// many individual item pages it may fetch to recover a missing date, and
// whether that recovery is enabled at all.
type DomainProfile struct {
	Domain                 string
	MaxItemPageFetches     int
	EnableItemPageRecovery bool
}

// defaultDomainProfile is used for any domain with no explicit registration.
var defaultDomainProfile = DomainProfile{
	MaxItemPageFetches:     5,
	EnableItemPageRecovery: true,
}

// ProfileRegistry is the process-wide lookup of per-domain HTML list
// profiles, mirroring the lazy-registration pattern used by the circuit
// breaker and rate-limiter registries elsewhere in this pipeline.
type ProfileRegistry struct {
	mu       sync.Mutex
	profiles map[string]DomainProfile
}

func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{profiles: map[string]DomainProfile{}}
}

// Register installs or replaces the profile for profile.Domain.
func (r *ProfileRegistry) Register(profile DomainProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.Domain] = profile
}

// For returns the profile registered for domain, or defaultDomainProfile
// if none was registered.
func (r *ProfileRegistry) For(domain string) DomainProfile {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[domain]; ok {
		return p
	}
	return defaultDomainProfile
}
