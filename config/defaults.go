package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags and environment variable loading.

const (
	// DefaultConnTimeout bounds TCP/TLS/proxy connection setup.
	DefaultConnTimeout = 30 * time.Second

	// DefaultBindAddress is used in listen mode when no --bind is
	// given; empty means all interfaces.
	DefaultBindAddress = ""

	// DefaultRetryAttempts is the attempt budget when --retry is
	// given without a count.
	DefaultRetryAttempts = 3
)
