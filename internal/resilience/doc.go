// Package resilience provides reliability and fault tolerance patterns for the
// pipeline: a circuit breaker for outbound HTTP calls, shared across the fetch
// layer's per-domain breaker map.
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.DefaultConfig("my-service"))
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return performRequest()
//	})
package resilience
