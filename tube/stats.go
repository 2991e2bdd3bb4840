package tube

import "time"

// Stats is a snapshot of a tube's lifetime I/O counters.  Counters
// cover the recv/send families; bytes moved through the raw handles
// (e.g. by an interactive session) are counted by the transport, not
// here.
type Stats struct {
	BytesSent     int64
	BytesReceived int64
	OpenedAt      time.Time
}

// Age returns how long the tube has been open.
func (s Stats) Age() time.Duration {
	return time.Since(s.OpenedAt)
}
