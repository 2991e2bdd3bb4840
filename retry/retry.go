// Package retry implements caller-side redial policy.  The tube core
// deliberately never retries on its own; wrap a dial in [Dial] when
// reconnection behaviour is wanted.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"

	"gotube/tube"
)

// Config bounds the retry loop.
type Config struct {
	Attempts int           // maximum dial attempts; <= 0 means DefaultAttempts
	Min      time.Duration // first backoff delay
	Max      time.Duration // backoff cap
	Factor   float64       // backoff growth factor
	Jitter   bool          // randomize delays to avoid thundering herds
}

// DefaultAttempts is used when Config.Attempts is not set.
const DefaultAttempts = 3

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.Min <= 0 {
		c.Min = 250 * time.Millisecond
	}
	if c.Max <= 0 {
		c.Max = 10 * time.Second
	}
	if c.Factor <= 0 {
		c.Factor = 2
	}
	return c
}

// DialFunc performs one dial attempt.
type DialFunc func(ctx context.Context) (tube.Tube, error)

// Dial invokes dial until it succeeds, the error is not retryable,
// the attempt budget is spent, or ctx is cancelled.  The last dial
// error is returned when the budget runs out.
func Dial(ctx context.Context, cfg Config, dial DialFunc) (tube.Tube, error) {
	cfg = cfg.withDefaults()
	b := &backoff.Backoff{
		Min:    cfg.Min,
		Max:    cfg.Max,
		Factor: cfg.Factor,
		Jitter: cfg.Jitter,
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		t, err := dial(ctx)
		if err == nil {
			return t, nil
		}
		lastErr = err

		if attempt >= cfg.Attempts || !Retryable(err) {
			return nil, lastErr
		}

		select {
		case <-time.After(b.Duration()):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Retryable reports whether redialing after err could plausibly
// succeed.  Only transient connection-setup failures qualify;
// handshake and proxy rejections are deterministic.
func Retryable(err error) bool {
	var ce *tube.ConnectError
	if errors.As(err, &ce) {
		return ce.Retryable()
	}
	return false
}
