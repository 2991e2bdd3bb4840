// Package tube implements the uniform byte-stream abstraction at the
// heart of gotube: a Tube is anything bytes can be pushed into and
// pulled out of, whether the peer is a remote host reached over TCP,
// TLS, a proxy tunnel, or a websocket, or a child process wired up
// over pipes.  Callers obtain a tube by dialing out (Dial), spawning
// (Spawn), or accepting (Listen + Accept), and never branch on the
// transport afterwards.
package tube

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"gotube/transport"
	"gotube/util"
)

// DefaultRecvSize is the read size used when Recv is called with a
// non-positive bound.
const DefaultRecvSize = 4096

// DefaultDialTimeout bounds connection setup when no timeout option is
// given.
const DefaultDialTimeout = 30 * time.Second

// Tube is the transport-independent byte-channel contract.  All
// operations are synchronous and blocking; the one concurrent
// primitive is Interactive.  A tube is not safe for concurrent sends
// from multiple goroutines — callers serialize their own writes.
type Tube interface {
	// Send writes every byte of data to the peer, blocking until the
	// transport has accepted all of it.
	Send(data []byte) error

	// SendLine sends data followed by a single "\n".
	SendLine(data []byte) error

	// Recv returns up to max currently-available bytes, blocking until
	// at least one byte arrives.  A clean peer close yields io.EOF; an
	// abrupt reset yields a *ConnectionError.  max <= 0 means
	// DefaultRecvSize.
	Recv(max int) ([]byte, error)

	// RecvUntil reads until the accumulated data ends with delim and
	// returns everything read including the delimiter.  Bytes arriving
	// after the first occurrence stay queued for later receives.  If
	// the peer closes first, it returns what was read plus
	// ErrTruncated.
	RecvUntil(delim []byte) ([]byte, error)

	// RecvLine is RecvUntil("\n").
	RecvLine() ([]byte, error)

	// RecvAll reads until the peer closes (or the tube is closed
	// locally) and returns every byte seen.
	RecvAll() ([]byte, error)

	// IsAlive is a non-blocking liveness check.
	IsAlive() bool

	// Close releases the transport resources.  It is idempotent and
	// never fails outward; later operations return ErrClosed.
	Close() error

	// Interactive bridges the tube with the local terminal until the
	// session ends.
	Interactive() error

	// Reader exposes the receive handle.  Bytes already buffered by
	// earlier receives are served before fresh transport reads.
	Reader() io.Reader

	// Writer exposes the raw send handle.
	Writer() io.Writer

	// Stats reports byte counters for the tube's lifetime.
	Stats() Stats
}

// ── construction options ─────────────────────────────────────────────

// Option tunes tube construction.  Options that do not apply to a
// given constructor are ignored.
type Option func(*options)

type options struct {
	timeout    time.Duration
	useTLS     bool
	serverName string
	insecure   bool
	proxyAddr  string
	socksAddr  string
	proxyUser  string
	proxyPass  string
	dialer     transport.Dialer
	bindAddr   string
	raw        bool
	log        logrus.FieldLogger
}

func newOptions(opts []Option) *options {
	o := &options{
		timeout: DefaultDialTimeout,
		log:     nopLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithTLS negotiates TLS after the transport connects, with
// certificate verification enabled.
func WithTLS() Option {
	return func(o *options) { o.useTLS = true }
}

// WithTLSServerName overrides the name used for SNI and certificate
// verification (default: the dialed host).
func WithTLSServerName(name string) Option {
	return func(o *options) {
		o.useTLS = true
		o.serverName = name
	}
}

// WithInsecureTLS negotiates TLS but skips certificate verification.
func WithInsecureTLS() Option {
	return func(o *options) {
		o.useTLS = true
		o.insecure = true
	}
}

// WithProxy routes the connection through an HTTP CONNECT proxy.
func WithProxy(host string, port int) Option {
	return func(o *options) { o.proxyAddr = util.FormatAddr(host, port) }
}

// WithSOCKS5 routes the connection through a SOCKS5 proxy.
func WithSOCKS5(host string, port int) Option {
	return func(o *options) { o.socksAddr = util.FormatAddr(host, port) }
}

// WithProxyAuth sets credentials for WithProxy or WithSOCKS5.
func WithProxyAuth(username, password string) Option {
	return func(o *options) {
		o.proxyUser = username
		o.proxyPass = password
	}
}

// WithTimeout bounds connection setup.  Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDialer substitutes a custom transport (e.g. an SSH gateway) for
// the built-in TCP/proxy dialers.
func WithDialer(d transport.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithBindAddr sets the local address a Listener binds to (default:
// all interfaces).
func WithBindAddr(addr string) Option {
	return func(o *options) { o.bindAddr = addr }
}

// WithRawTerminal puts the local terminal into raw mode for the
// duration of Interactive, when stdin is a terminal.
func WithRawTerminal() Option {
	return func(o *options) { o.raw = true }
}

// WithLogger attaches a logger to the tube.  The library is silent
// without one.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// nopLogger keeps the library quiet unless a caller injects a logger.
var nopLogger logrus.FieldLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()
