package config

import "time"

// CacheConfig controls the Redis response cache in front of the read-heavy
// admin summary endpoints.  When Enabled is false or no Redis client is
// available the middleware is a no-op.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the cache settings from the environment, with
// defaults suitable for dashboard polling.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
