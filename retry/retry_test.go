package retry

import (
	"context"
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gotube/tube"
)

func refusedErr() error {
	return &tube.ConnectError{
		Kind: tube.ConnectRefused,
		Addr: "127.0.0.1:1",
		Err:  syscall.ECONNREFUSED,
	}
}

// pipeTube backs a fake successful dial with an in-memory connection.
func pipeTube(t *testing.T) tube.Tube {
	t.Helper()
	c1, c2 := net.Pipe()
	t.Cleanup(func() { c1.Close(); c2.Close() })
	return tube.Adopt(c1)
}

func TestDialSucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context) (tube.Tube, error) {
		attempts++
		if attempts < 3 {
			return nil, refusedErr()
		}
		return pipeTube(t), nil
	}

	cfg := Config{Attempts: 5, Min: time.Millisecond, Max: 2 * time.Millisecond}
	tb, err := Dial(context.Background(), cfg, dial)
	require.NoError(t, err)
	require.NotNil(t, tb)
	require.Equal(t, 3, attempts)
}

func TestDialStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	fatal := &tube.ConnectError{
		Kind: tube.ConnectTLSHandshake,
		Addr: "host:443",
		Err:  errors.New("bad certificate"),
	}
	dial := func(ctx context.Context) (tube.Tube, error) {
		attempts++
		return nil, fatal
	}

	cfg := Config{Attempts: 5, Min: time.Millisecond}
	_, err := Dial(context.Background(), cfg, dial)
	require.ErrorIs(t, err, fatal)
	require.Equal(t, 1, attempts)
}

func TestDialReturnsLastErrorWhenBudgetSpent(t *testing.T) {
	attempts := 0
	dial := func(ctx context.Context) (tube.Tube, error) {
		attempts++
		return nil, refusedErr()
	}

	cfg := Config{Attempts: 3, Min: time.Millisecond, Max: 2 * time.Millisecond}
	_, err := Dial(context.Background(), cfg, dial)
	var ce *tube.ConnectError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, tube.ConnectRefused, ce.Kind)
	require.Equal(t, 3, attempts)
}

func TestDialHonoursContextDuringBackoff(t *testing.T) {
	dial := func(ctx context.Context) (tube.Tube, error) {
		return nil, refusedErr()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cfg := Config{Attempts: 3, Min: 10 * time.Second}
	start := time.Now()
	_, err := Dial(ctx, cfg, dial)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestRetryable(t *testing.T) {
	require.True(t, Retryable(refusedErr()))
	require.False(t, Retryable(&tube.ConnectError{Kind: tube.ConnectProxyRejected}))
	require.False(t, Retryable(errors.New("not a connect error")))
	require.False(t, Retryable(nil))
}
