package utils

import "testing"

func TestPostgresPoolConfigDefaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()
	if cfg.MaxOpenConns <= 0 || cfg.ConnMaxLifetime <= 0 || cfg.PingTimeout <= 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	// Explicit values win over defaults.
	cfg = PostgresPoolConfig{MaxOpenConns: 3}.withDefaults()
	if cfg.MaxOpenConns != 3 {
		t.Fatalf("explicit value overridden: %d", cfg.MaxOpenConns)
	}
}
