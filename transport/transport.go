// Package transport provides abstractions for network connection
// establishment.  Dialers handle the "how" of reaching a peer — plain
// TCP, TLS, a CONNECT or SOCKS5 proxy hop, or an SSH gateway —
// independent of what happens over the connection (which is the tube
// layer's job).
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound network connections.  Implementations compose:
// a TLSDialer can wrap a ProxyDialer to negotiate TLS through the
// established tunnel.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH session).  Stateless dialers return nil.
	Close() error
}
