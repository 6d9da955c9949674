package ratelimit

import "sync"

// Process-wide registry of limiters, one per provider name. Workers
// targeting the same provider share one limiter; workers targeting
// different providers never contend.
//
//nolint:gochecknoglobals // shared limiter state is the point of the registry
var (
	registryMu sync.Mutex
	limiters   = make(map[string]*Limiter)
)

// For returns the limiter for the given provider, creating it lazily with
// the supplied config on first use. Later calls ignore cfg; the first
// registration wins.
func For(name string, cfg Config) *Limiter {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l, ok := limiters[name]; ok {
		return l
	}
	l := NewLimiter(name, cfg)
	limiters[name] = l
	return l
}

// Lookup returns the limiter for the given provider, or nil when none has
// been created yet.
func Lookup(name string) *Limiter {
	registryMu.Lock()
	defer registryMu.Unlock()
	return limiters[name]
}

// Names returns the providers with an active limiter.
func Names() []string {
	registryMu.Lock()
	defer registryMu.Unlock()

	names := make([]string, 0, len(limiters))
	for name := range limiters {
		names = append(names, name)
	}
	return names
}

// Reset clears the registry. Intended for test isolation.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	limiters = make(map[string]*Limiter)
}
