package tube

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// scriptedReader replays a fixed sequence of reads, then EOF.  An
// empty entry produces a zero-byte read with a nil error.
type scriptedReader struct {
	reads [][]byte
	i     int
}

func (r *scriptedReader) Read(p []byte) (int, error) {
	if r.i >= len(r.reads) {
		return 0, io.EOF
	}
	b := r.reads[r.i]
	r.i++
	return copy(p, b), nil
}

func TestRecvSkipsZeroByteReads(t *testing.T) {
	src := &scriptedReader{reads: [][]byte{{}, {}, []byte("data")}}
	s := newStream(src, io.Discard, "test", newOptions(nil))

	out, err := s.Recv(0)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), out)
}

func TestReaderServesPendingFirst(t *testing.T) {
	src := &scriptedReader{reads: [][]byte{[]byte("head|tail"), []byte("more")}}
	s := newStream(src, io.Discard, "test", newOptions(nil))

	out, err := s.RecvUntil([]byte("|"))
	require.NoError(t, err)
	require.Equal(t, []byte("head|"), out)

	// The raw handle must hand over the buffered remainder before
	// touching the transport again.
	buf := make([]byte, 16)
	n, err := s.Reader().Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte("tail"), buf[:n])

	n, err = s.Reader().Read(buf)
	require.NoError(t, err)
	require.Equal(t, []byte("more"), buf[:n])
}
