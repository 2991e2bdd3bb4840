package tube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"

	"gotube/transport"
)

// ErrClosed is returned by every operation on a tube that has been
// closed locally.
var ErrClosed = errors.New("tube is closed")

// ErrTruncated is returned by RecvUntil together with the bytes read
// so far when the peer closed before the delimiter appeared.  It is a
// recoverable end-of-stream condition and satisfies
// errors.Is(err, io.EOF).
var ErrTruncated = fmt.Errorf("end of stream before delimiter: %w", io.EOF)

// ── connection setup ─────────────────────────────────────────────────

// ConnectKind classifies why establishing a connection failed.
type ConnectKind int

const (
	ConnectUnknown ConnectKind = iota
	ConnectDNS
	ConnectRefused
	ConnectTimeout
	ConnectTLSHandshake
	ConnectProxyRejected
)

func (k ConnectKind) String() string {
	switch k {
	case ConnectDNS:
		return "dns"
	case ConnectRefused:
		return "refused"
	case ConnectTimeout:
		return "timeout"
	case ConnectTLSHandshake:
		return "tls-handshake"
	case ConnectProxyRejected:
		return "proxy-rejected"
	default:
		return "unknown"
	}
}

// ConnectError reports a failure to establish a tube.
type ConnectError struct {
	Kind ConnectKind
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %s: %v", e.Addr, e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Retryable reports whether dialing again could plausibly succeed.
// Handshake and proxy rejections are deterministic and not retryable.
func (e *ConnectError) Retryable() bool {
	switch e.Kind {
	case ConnectRefused, ConnectTimeout, ConnectDNS:
		return true
	}
	return false
}

// classifyDial maps a transport-level dial failure onto a ConnectError.
func classifyDial(addr string, err error) *ConnectError {
	kind := ConnectUnknown

	var (
		rejected  *transport.RejectedError
		handshake *transport.HandshakeError
		dnsErr    *net.DNSError
	)
	switch {
	case errors.As(err, &rejected):
		kind = ConnectProxyRejected
	case errors.As(err, &handshake):
		kind = ConnectTLSHandshake
	case errors.As(err, &dnsErr):
		kind = ConnectDNS
	case errors.Is(err, syscall.ECONNREFUSED):
		kind = ConnectRefused
	case os.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		kind = ConnectTimeout
	}

	return &ConnectError{Kind: kind, Addr: addr, Err: err}
}

// ── process spawning ─────────────────────────────────────────────────

// SpawnKind classifies why spawning a child process failed.
type SpawnKind int

const (
	SpawnPipe SpawnKind = iota // pipe creation failed
	SpawnExec                  // executable lookup or process creation failed
)

func (k SpawnKind) String() string {
	if k == SpawnPipe {
		return "pipe-create"
	}
	return "process-create"
}

// SpawnError reports a failure to spawn a child process.
type SpawnError struct {
	Kind SpawnKind
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// ── established-stream failures ──────────────────────────────────────

// ConnectionKind classifies a mid-stream failure.
type ConnectionKind int

const (
	ConnUnknown ConnectionKind = iota
	ConnReset
	ConnBrokenPipe
)

func (k ConnectionKind) String() string {
	switch k {
	case ConnReset:
		return "reset"
	case ConnBrokenPipe:
		return "broken-pipe"
	default:
		return "unknown"
	}
}

// ConnectionError reports an unrecoverable failure on an established
// tube.  The tube is left in an unspecified state; callers should
// close and discard it.
type ConnectionError struct {
	Op   string // "send" or "recv"
	Kind ConnectionKind
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s: connection %s: %v", e.Op, e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// classifyIO maps a read/write failure on an established stream.
// Errors caused by a local close surface as ErrClosed.
func classifyIO(op string, err error) error {
	switch {
	case errors.Is(err, net.ErrClosed),
		errors.Is(err, os.ErrClosed),
		errors.Is(err, io.ErrClosedPipe):
		return ErrClosed
	case errors.Is(err, syscall.ECONNRESET):
		return &ConnectionError{Op: op, Kind: ConnReset, Err: err}
	case errors.Is(err, syscall.EPIPE):
		return &ConnectionError{Op: op, Kind: ConnBrokenPipe, Err: err}
	}
	return &ConnectionError{Op: op, Kind: ConnUnknown, Err: err}
}

// ── listener setup ───────────────────────────────────────────────────

// BindError reports a failure to bind or listen on a local address.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }
