package tube

import (
	"context"
	"net"

	"gotube/transport"
	"gotube/util"
)

// Remote is a TCP-backed tube.  It owns exactly one connection handle
// (raw or TLS-wrapped) acquired at construction and released once by
// Close.
type Remote struct {
	stream
	conn net.Conn
	addr string
}

// Dial connects to (host, port) and returns a usable tube or a
// *ConnectError.  By default the connection is plain TCP; options add
// TLS, an HTTP CONNECT or SOCKS5 proxy hop, or a custom dialer.
func Dial(host string, port int, opts ...Option) (*Remote, error) {
	return DialContext(context.Background(), host, port, opts...)
}

// DialContext is Dial with caller-controlled cancellation.
func DialContext(ctx context.Context, host string, port int, opts ...Option) (*Remote, error) {
	o := newOptions(opts)
	addr := util.FormatAddr(host, port)

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	dialer := o.buildDialer(host)
	conn, err := dialer.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDial(addr, err)
	}

	r := adopt(conn, addr, o)
	r.log.Debug("connected")
	return r, nil
}

// Adopt wraps an already-established connection in a Remote.
// Ownership of conn transfers to the tube; the caller must not touch
// the connection afterwards.  Used by Listener after accept and by
// the websocket dial, and available for any transport that produces a
// net.Conn.
func Adopt(conn net.Conn, opts ...Option) *Remote {
	return adopt(conn, conn.RemoteAddr().String(), newOptions(opts))
}

func adopt(conn net.Conn, addr string, o *options) *Remote {
	return &Remote{
		stream: newStream(conn, conn, addr, o),
		conn:   conn,
		addr:   addr,
	}
}

// buildDialer assembles the transport chain for one connection: base
// transport (TCP, proxy hop, or custom), then optional TLS on top.
func (o *options) buildDialer(host string) transport.Dialer {
	var d transport.Dialer
	switch {
	case o.dialer != nil:
		d = o.dialer
	case o.socksAddr != "":
		d = &transport.SOCKS5Dialer{
			ProxyAddr: o.socksAddr,
			Username:  o.proxyUser,
			Password:  o.proxyPass,
			Timeout:   o.timeout,
		}
	case o.proxyAddr != "":
		d = &transport.ProxyDialer{
			ProxyAddr: o.proxyAddr,
			Username:  o.proxyUser,
			Password:  o.proxyPass,
			Timeout:   o.timeout,
		}
	default:
		d = &transport.TCPDialer{Timeout: o.timeout}
	}

	if o.useTLS {
		name := o.serverName
		if name == "" {
			name = host
		}
		d = &transport.TLSDialer{
			ServerName:         name,
			InsecureSkipVerify: o.insecure,
			Timeout:            o.timeout,
			Forward:            d,
		}
	}
	return d
}

// RemoteAddr returns the peer's network address.
func (r *Remote) RemoteAddr() net.Addr { return r.conn.RemoteAddr() }

// IsAlive reports whether the tube has not been closed locally.
func (r *Remote) IsAlive() bool { return !r.closed.Load() }

// Close releases the connection.  It is idempotent and never fails
// outward.
func (r *Remote) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.conn.Close(); err != nil {
		r.log.WithError(err).Debug("close")
	} else {
		r.log.Debug("closed")
	}
	return nil
}

// Interactive bridges the tube with the local terminal until the
// session ends.
func (r *Remote) Interactive() error { return interactive(&r.stream) }

var _ Tube = (*Remote)(nil)
