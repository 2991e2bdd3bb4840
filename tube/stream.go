package tube

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"gotube/util"
)

var errEmptyDelim = errors.New("recvuntil: empty delimiter")

// stream is the shared engine behind Remote and Process: blocking
// send/recv over a reader/writer pair, with a pending buffer that
// keeps bytes read past what the caller has consumed.  Each tube
// embeds its own stream; streams are never shared.
type stream struct {
	r io.Reader
	w io.Writer

	// pending holds received bytes not yet handed to the caller.
	// Only the recv family touches it, so no locking is needed: the
	// contract already forbids concurrent receives.
	pending []byte

	closed   atomic.Bool
	raw      bool
	label    string // peer address or executable, for diagnostics
	log      logrus.FieldLogger
	bytesIn  atomic.Int64
	bytesOut atomic.Int64
	openedAt time.Time
}

func newStream(r io.Reader, w io.Writer, label string, o *options) stream {
	return stream{
		r:        r,
		w:        w,
		label:    label,
		raw:      o.raw,
		log:      o.log.WithField("tube", label),
		openedAt: time.Now(),
	}
}

// Send writes every byte of data to the peer.
func (s *stream) Send(data []byte) error {
	if s.closed.Load() {
		return ErrClosed
	}
	n, err := s.w.Write(data)
	s.bytesOut.Add(int64(n))
	if err != nil {
		return s.ioErr("send", err)
	}
	s.log.WithField("bytes", n).Trace("send")
	return nil
}

// SendLine sends data followed by a single newline.
func (s *stream) SendLine(data []byte) error {
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')
	return s.Send(line)
}

// Recv returns up to max currently-available bytes.
func (s *stream) Recv(max int) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if max <= 0 {
		max = DefaultRecvSize
	}

	if len(s.pending) > 0 {
		n := max
		if n > len(s.pending) {
			n = len(s.pending)
		}
		return s.take(n), nil
	}

	buf := make([]byte, max)
	for {
		n, err := s.r.Read(buf)
		s.bytesIn.Add(int64(n))
		if n > 0 {
			s.log.WithField("bytes", n).Trace("recv")
			return buf[:n:n], nil
		}
		if err == nil {
			// Zero-byte read without an error; keep blocking until
			// real bytes or a real error arrive.
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, s.ioErr("recv", err)
	}
}

// RecvUntil reads until the accumulated data ends with delim.
func (s *stream) RecvUntil(delim []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if len(delim) == 0 {
		return nil, errEmptyDelim
	}

	// Start scanning from the beginning; after each append only the
	// tail that could complete a new match needs rescanning.
	scanFrom := 0
	for {
		if i := bytes.Index(s.pending[scanFrom:], delim); i >= 0 {
			return s.take(scanFrom + i + len(delim)), nil
		}
		if tail := len(s.pending) - len(delim) + 1; tail > scanFrom {
			scanFrom = tail
		}

		buf := util.GetBuf()
		n, err := s.r.Read(*buf)
		if n > 0 {
			s.pending = append(s.pending, (*buf)[:n]...)
			s.bytesIn.Add(int64(n))
		}
		util.PutBuf(buf)

		if err != nil {
			if errors.Is(err, io.EOF) {
				out := s.pending
				s.pending = nil
				return out, ErrTruncated
			}
			return nil, s.ioErr("recv", err)
		}
	}
}

// RecvLine reads through the next newline.
func (s *stream) RecvLine() ([]byte, error) {
	return s.RecvUntil([]byte("\n"))
}

// RecvAll reads until the peer closes, or until the tube is closed
// locally, and returns everything seen.
func (s *stream) RecvAll() ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	out := s.pending
	s.pending = nil

	buf := util.GetBuf()
	defer util.PutBuf(buf)
	for {
		n, err := s.r.Read(*buf)
		if n > 0 {
			out = append(out, (*buf)[:n]...)
			s.bytesIn.Add(int64(n))
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return out, nil
		case s.closed.Load(),
			errors.Is(err, net.ErrClosed),
			errors.Is(err, os.ErrClosed),
			errors.Is(err, io.ErrClosedPipe):
			// Local close ends the read without failing it.
			return out, nil
		default:
			return out, s.ioErr("recv", err)
		}
	}
}

// Reader exposes the receive handle.  Bytes already buffered by the
// recv family are served first, so switching to raw reads after a
// RecvUntil never loses what arrived alongside the delimiter.
func (s *stream) Reader() io.Reader { return &rawReader{s: s} }

// rawReader drains the pending buffer before touching the transport.
type rawReader struct {
	s *stream
}

func (r *rawReader) Read(p []byte) (int, error) {
	if len(r.s.pending) > 0 {
		n := len(p)
		if n > len(r.s.pending) {
			n = len(r.s.pending)
		}
		copy(p, r.s.take(n))
		return n, nil
	}
	return r.s.r.Read(p)
}

// Writer exposes the raw send handle.
func (s *stream) Writer() io.Writer { return s.w }

// Stats reports the tube's lifetime byte counters.
func (s *stream) Stats() Stats {
	return Stats{
		BytesSent:     s.bytesOut.Load(),
		BytesReceived: s.bytesIn.Load(),
		OpenedAt:      s.openedAt,
	}
}

// take removes and returns the first n pending bytes.
func (s *stream) take(n int) []byte {
	out := s.pending[:n:n]
	s.pending = s.pending[n:]
	if len(s.pending) == 0 {
		s.pending = nil
	}
	return out
}

func (s *stream) ioErr(op string, err error) error {
	if s.closed.Load() {
		return ErrClosed
	}
	classified := classifyIO(op, err)
	if classified != ErrClosed {
		s.log.WithError(err).Debug(op + " failed")
	}
	return classified
}
