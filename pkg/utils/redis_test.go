package utils

import "testing"

func TestRedisConfigDefaults(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379"}.withDefaults()
	if cfg.DialTimeout <= 0 || cfg.PoolSize <= 0 || cfg.PingTimeout <= 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}
