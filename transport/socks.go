package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/proxy"
)

// SOCKS5Dialer reaches its destination through a SOCKS5 proxy.  Like
// ProxyDialer, the proxy handshake names the true destination and is
// performed once per Dial.
type SOCKS5Dialer struct {
	ProxyAddr          string // proxy "host:port"
	Username, Password string // optional username/password auth
	Timeout            time.Duration
}

// Dial connects to address through the SOCKS5 proxy.
func (d *SOCKS5Dialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	var auth *proxy.Auth
	if d.Username != "" {
		auth = &proxy.Auth{User: d.Username, Password: d.Password}
	}

	base := &net.Dialer{Timeout: d.Timeout}
	pd, err := proxy.SOCKS5("tcp", d.ProxyAddr, auth, base)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy %s: %w", d.ProxyAddr, err)
	}

	if cd, ok := pd.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, address)
	}
	return pd.Dial(network, address)
}

// Close is a no-op; the SOCKS5 handshake holds no long-lived state.
func (d *SOCKS5Dialer) Close() error { return nil }
