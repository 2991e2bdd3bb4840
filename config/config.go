// Package config defines the runtime configuration for the gotube CLI
// and its validation rules.
package config

import (
	"fmt"
	"net"
	"time"
)

// Config holds every tuneable for a single gotube session.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host     string
	Port     int
	Listen   bool
	BindAddr string
	Timeout  time.Duration

	// ── TLS ──────────────────────────────────────────────────────────
	TLS        bool
	Insecure   bool // skip certificate verification (implies TLS)
	ServerName string

	// ── Proxies ──────────────────────────────────────────────────────
	Proxy  string // HTTP CONNECT proxy, "host:port"
	SOCKS5 string // SOCKS5 proxy, "host:port"

	// ── Alternate transports ─────────────────────────────────────────
	WSURL  string // dial a websocket URL instead of TCP
	SSH    string // SSH gateway, "user@host[:port]"
	SSHKey string // private key for the SSH gateway

	// ── Child process ────────────────────────────────────────────────
	Exec     string   // program to spawn and wire to the session
	ExecArgs []string // its argument vector

	// ── Behaviour ────────────────────────────────────────────────────
	Retry   int // redial attempts for failed connects (0 = no retry)
	Raw     bool
	Verbose int
}

// Normalize fills in derived fields.  Call before Validate.
func (c *Config) Normalize() {
	if c.Insecure {
		c.TLS = true
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultConnTimeout
	}
}

// Validate rejects contradictory or incomplete configurations.
func (c *Config) Validate() error {
	switch {
	case c.Listen:
		if c.Port == 0 {
			return fmt.Errorf("listen mode requires -p <port>")
		}
		if c.WSURL != "" {
			return fmt.Errorf("listen mode and --ws are mutually exclusive")
		}
		if c.Proxy != "" || c.SOCKS5 != "" {
			return fmt.Errorf("listen mode cannot use a proxy")
		}
	case c.WSURL != "":
		if c.Host != "" || c.Port != 0 {
			return fmt.Errorf("--ws replaces the HOST PORT arguments")
		}
		if c.Proxy != "" || c.SOCKS5 != "" {
			return fmt.Errorf("--ws cannot be combined with a proxy")
		}
	case c.Exec != "" && c.Host == "":
		// Spawn-only session: bridge a child process to the terminal.
	default:
		if c.Host == "" {
			return fmt.Errorf("hostname is required (use --help for usage)")
		}
		if c.Port == 0 {
			return fmt.Errorf("destination port is required")
		}
	}

	if c.Proxy != "" && c.SOCKS5 != "" {
		return fmt.Errorf("--proxy and --socks5 are mutually exclusive")
	}
	if c.SSH != "" {
		if c.Listen {
			return fmt.Errorf("--ssh cannot be used in listen mode")
		}
		if c.WSURL != "" {
			return fmt.Errorf("--ssh cannot be combined with --ws")
		}
		if c.Proxy != "" || c.SOCKS5 != "" {
			return fmt.Errorf("--ssh and a proxy are mutually exclusive")
		}
	}
	if c.SSHKey != "" && c.SSH == "" {
		return fmt.Errorf("--ssh-key requires --ssh")
	}
	if c.Proxy != "" {
		if _, _, err := net.SplitHostPort(c.Proxy); err != nil {
			return fmt.Errorf("invalid --proxy address %q (want host:port)", c.Proxy)
		}
	}
	if c.SOCKS5 != "" {
		if _, _, err := net.SplitHostPort(c.SOCKS5); err != nil {
			return fmt.Errorf("invalid --socks5 address %q (want host:port)", c.SOCKS5)
		}
	}
	if c.Retry < 0 {
		return fmt.Errorf("--retry must be >= 0")
	}
	if len(c.ExecArgs) > 0 && c.Exec == "" {
		return fmt.Errorf("--arg requires --exec")
	}
	return nil
}
