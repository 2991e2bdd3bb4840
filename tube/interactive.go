package tube

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"golang.org/x/term"

	"gotube/util"
)

// BridgeIO runs a live bidirectional session over t: bytes read from
// in go to the peer, bytes from the peer go to out.  The two copy
// loops run concurrently with separate buffers and end independently
// on their own EOF or error — neither is forcibly interrupted.
// BridgeIO returns once both loops have ended; shutdown-shaped errors
// (EOF, closed pipes and sockets) are swallowed.
func BridgeIO(t Tube, in io.Reader, out io.Writer) error {
	if !t.IsAlive() {
		return ErrClosed
	}
	return bridge(t.Writer(), t.Reader(), in, out)
}

// interactive bridges a stream with the local terminal, optionally in
// raw mode.
func interactive(s *stream) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if s.raw && term.IsTerminal(int(os.Stdin.Fd())) {
		old, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err == nil {
			defer term.Restore(int(os.Stdin.Fd()), old) //nolint:errcheck
		}
	}

	s.log.Debug("interactive session started")
	err := bridge(s.w, s.Reader(), os.Stdin, os.Stdout)
	s.log.Debug("interactive session ended")
	return err
}

func bridge(tubeW io.Writer, tubeR io.Reader, in io.Reader, out io.Writer) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	// peer → local output
	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- copyLoop(out, tubeR)
	}()

	// local input → peer
	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- copyLoop(tubeW, in)
	}()

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil && !isShutdownErr(err) {
			return err
		}
	}
	return nil
}

// copyLoop moves bytes from src to dst one blocking read at a time,
// writing exactly what was read.  The two directions of a bridge call
// this with their own buffers.
func copyLoop(dst io.Writer, src io.Reader) error {
	buf := util.GetBuf()
	defer util.PutBuf(buf)

	for {
		n, rerr := src.Read(*buf)
		if n > 0 {
			if _, werr := dst.Write((*buf)[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				return nil
			}
			return rerr
		}
	}
}

// isShutdownErr reports errors that are expected when either side of
// a session winds down.
func isShutdownErr(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, ErrClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
