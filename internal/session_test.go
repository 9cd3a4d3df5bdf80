package internal

import (
	"io"
	"testing"
)

func TestNewSessionRunsWithoutUnreachableCache(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.URL = "http://localhost:8080/api"
	cfg.Cache = CacheConfig{Backend: "redis", RedisAddr: "127.0.0.1:1", RedisKey: "k"}

	session, err := NewSession("trackspottr", cfg, LogParams{ConsoleOut: io.Discard, ErrorOut: io.Discard})
	if err != nil {
		t.Fatalf("NewSession() error: %v", err)
	}
	defer session.Close()

	if session.Cache != nil {
		t.Errorf("want no cache when redis is unreachable, got %T", session.Cache)
	}
}
