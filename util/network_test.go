package util

import (
	"testing"
)

func TestFormatAddr(t *testing.T) {
	tests := []struct {
		host string
		port int
		want string
	}{
		{"1.2.3.4", 22, "1.2.3.4:22"},
		{"::1", 443, "[::1]:443"},
		{"example.com", 80, "example.com:80"},
		{"", 8080, ":8080"},
	}
	for _, tt := range tests {
		if got := FormatAddr(tt.host, tt.port); got != tt.want {
			t.Errorf("FormatAddr(%q,%d) = %q, want %q", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestHostOf(t *testing.T) {
	if got := HostOf("example.com:443"); got != "example.com" {
		t.Errorf("got %q, want %q", got, "example.com")
	}
	if got := HostOf("[::1]:443"); got != "::1" {
		t.Errorf("got %q, want %q", got, "::1")
	}
	// No port: returned unchanged.
	if got := HostOf("example.com"); got != "example.com" {
		t.Errorf("got %q, want %q", got, "example.com")
	}
}

func TestFindFreePort(t *testing.T) {
	port, err := FindFreePort()
	if err != nil {
		t.Fatal(err)
	}
	if port < 1 || port > 65535 {
		t.Errorf("port %d out of range", port)
	}
}

func TestBufPool(t *testing.T) {
	buf := GetBuf()
	if len(*buf) != DefaultBufSize {
		t.Errorf("buffer size = %d, want %d", len(*buf), DefaultBufSize)
	}
	PutBuf(buf)
	PutBuf(nil) // must not panic
}
