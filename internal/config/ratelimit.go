package config

import "time"

// RateLimitConfig drives the fixed-window limiter in front of the probe
// routes. Each probe run publishes a message, so the limit keeps a busy
// monitor from flooding the queue.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Prefix  string
}

func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Limit:   envInt("RATE_LIMIT_LIMIT", 30),
		Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if def.Limit < 1 {
		def.Limit = 1
	}
	if def.Window < time.Second {
		def.Window = time.Second
	}
	return def
}
