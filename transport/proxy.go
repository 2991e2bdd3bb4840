package transport

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ProxyDialer reaches its destination through an HTTP proxy using a
// CONNECT tunnel: it dials the proxy, asks it to open a raw TCP relay
// to the true destination, and hands the tunneled connection to the
// caller.  The tunnel exchange happens exactly once, during Dial.
type ProxyDialer struct {
	ProxyAddr          string // proxy "host:port"
	Username, Password string // optional Proxy-Authorization (basic)
	Timeout            time.Duration
	Forward            Dialer // transport used to reach the proxy itself
}

// RejectedError reports that the proxy refused to establish the tunnel.
type RejectedError struct {
	Proxy  string
	Status string // e.g. "403 Forbidden"
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("proxy %s rejected CONNECT: %s", e.Proxy, e.Status)
}

// Dial tunnels a TCP connection to address through the proxy.
func (d *ProxyDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	forward := d.Forward
	if forward == nil {
		forward = &TCPDialer{Timeout: d.Timeout}
	}

	conn, err := forward.Dial(ctx, "tcp", d.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("dial proxy %s: %w", d.ProxyAddr, err)
	}

	req := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: address},
		Host:   address,
		Header: make(http.Header),
	}
	if d.Username != "" {
		cred := base64.StdEncoding.EncodeToString([]byte(d.Username + ":" + d.Password))
		req.Header.Set("Proxy-Authorization", "Basic "+cred)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline) //nolint:errcheck
		defer conn.SetDeadline(time.Time{})
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write CONNECT to %s: %w", d.ProxyAddr, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read CONNECT response from %s: %w", d.ProxyAddr, err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		conn.Close()
		return nil, &RejectedError{Proxy: d.ProxyAddr, Status: resp.Status}
	}

	// The proxy may have sent tunneled bytes that landed in the
	// bufio reader; keep them ahead of further reads.
	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

// Close closes the forward dialer, if any.
func (d *ProxyDialer) Close() error {
	if d.Forward != nil {
		return d.Forward.Close()
	}
	return nil
}

// bufferedConn drains bytes the response reader buffered past the
// CONNECT status line before reading from the socket again.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	if c.r.Buffered() > 0 {
		return c.r.Read(p)
	}
	return c.Conn.Read(p)
}

var _ io.Reader = (*bufferedConn)(nil)
