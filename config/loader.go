package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GOTUBE_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GOTUBE_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("GOTUBE_PORT"); v > 0 {
		cfg.Port = v
	}
	if envBool("GOTUBE_LISTEN") {
		cfg.Listen = true
	}
	if v := os.Getenv("GOTUBE_BIND"); v != "" {
		cfg.BindAddr = v
	}
	if v := envInt("GOTUBE_TIMEOUT"); v > 0 {
		cfg.Timeout = time.Duration(v) * time.Second
	}

	// TLS
	if envBool("GOTUBE_TLS") {
		cfg.TLS = true
	}
	if envBool("GOTUBE_INSECURE") {
		cfg.Insecure = true
	}
	if v := os.Getenv("GOTUBE_SNI"); v != "" {
		cfg.ServerName = v
	}

	// Proxies
	if v := os.Getenv("GOTUBE_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("GOTUBE_SOCKS5"); v != "" {
		cfg.SOCKS5 = v
	}
	if v := os.Getenv("GOTUBE_SSH"); v != "" {
		cfg.SSH = v
	}
	if v := os.Getenv("GOTUBE_SSH_KEY"); v != "" {
		cfg.SSHKey = v
	}

	if v := envInt("GOTUBE_RETRY"); v > 0 {
		cfg.Retry = v
	}
}

func envBool(name string) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
