package tube

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Listener accepts inbound TCP connections and yields a fresh Remote
// per connection.  The listening socket is bound at construction and
// owned until Close.
type Listener struct {
	ln     net.Listener
	o      *options
	closed atomic.Bool
	log    logrus.FieldLogger
}

// Listen binds and listens on port.  Port 0 picks an ephemeral port;
// use Port to discover it.  Setup failure surfaces as a *BindError.
func Listen(port int, opts ...Option) (*Listener, error) {
	o := newOptions(opts)
	addr := net.JoinHostPort(o.bindAddr, strconv.Itoa(port))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, &BindError{Addr: addr, Err: err}
	}

	log := o.log.WithField("listen", ln.Addr().String())
	log.Debug("listening")
	return &Listener{ln: ln, o: o, log: log}, nil
}

// Accept blocks until an inbound connection arrives and returns a new
// Remote owning it.  Once the listener is closed, in-flight and later
// calls fail with ErrClosed.
func (l *Listener) Accept() (*Remote, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		if l.closed.Load() || errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	l.log.WithField("peer", conn.RemoteAddr().String()).Debug("accepted")
	return adopt(conn, conn.RemoteAddr().String(), l.o), nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

// Port returns the bound TCP port, useful after listening on port 0.
func (l *Listener) Port() int {
	return l.ln.Addr().(*net.TCPAddr).Port
}

// Close stops accepting.  It is idempotent and never fails outward.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := l.ln.Close(); err != nil {
		l.log.WithError(err).Debug("close")
	}
	return nil
}
