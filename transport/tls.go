package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"gotube/util"
)

// TLSDialer wraps the connections of a forward dialer in TLS.
// Certificate verification is on unless InsecureSkipVerify is set.
type TLSDialer struct {
	ServerName         string // SNI / verification name; defaults to the dialed host
	InsecureSkipVerify bool
	Timeout            time.Duration
	Forward            Dialer // underlying transport; defaults to a plain TCPDialer
}

// HandshakeError reports a failed TLS handshake, as opposed to a
// failure to reach the peer at all.
type HandshakeError struct {
	Addr string
	Err  error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("tls handshake with %s: %v", e.Addr, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// Dial connects via the forward dialer and negotiates TLS on top.
func (d *TLSDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	forward := d.Forward
	if forward == nil {
		forward = &TCPDialer{Timeout: d.Timeout}
	}

	raw, err := forward.Dial(ctx, network, address)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		ServerName:         d.ServerName,
		InsecureSkipVerify: d.InsecureSkipVerify, //nolint:gosec // explicit caller opt-out
	}
	if cfg.ServerName == "" {
		cfg.ServerName = util.HostOf(address)
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, &HandshakeError{Addr: address, Err: err}
	}
	return conn, nil
}

// Close closes the forward dialer, if any.
func (d *TLSDialer) Close() error {
	if d.Forward != nil {
		return d.Forward.Close()
	}
	return nil
}
