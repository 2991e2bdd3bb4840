package tube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpawnCat(t *testing.T) {
	p, err := Spawn("cat", nil)
	require.NoError(t, err)
	defer p.Close()

	require.NotZero(t, p.Pid())
	require.True(t, p.IsAlive())

	require.NoError(t, p.SendLine([]byte("ping")))
	line, err := p.RecvLine()
	require.NoError(t, err)
	require.Equal(t, []byte("ping\n"), line)

	require.NoError(t, p.Close())
	require.False(t, p.IsAlive())
}

func TestSpawnEchoRecvAll(t *testing.T) {
	p, err := Spawn("echo", []string{"hello"})
	require.NoError(t, err)
	defer p.Close()

	out, err := p.RecvAll()
	require.NoError(t, err)
	require.Equal(t, []byte("hello\n"), out)
}

func TestSpawnArgsAreNotShellParsed(t *testing.T) {
	p, err := Spawn("echo", []string{"hi; touch /tmp/x"})
	require.NoError(t, err)
	defer p.Close()

	out, err := p.RecvAll()
	require.NoError(t, err)
	require.Equal(t, []byte("hi; touch /tmp/x\n"), out)
}

func TestIsAliveObservesExit(t *testing.T) {
	p, err := Spawn("true", nil)
	require.NoError(t, err)
	defer p.Close()

	// The child exits on its own; IsAlive flips without Close.
	deadline := time.Now().Add(3 * time.Second)
	for p.IsAlive() {
		if time.Now().After(deadline) {
			t.Fatal("child never reported exit")
		}
		time.Sleep(10 * time.Millisecond)
	}

	status, ok := p.ExitStatus()
	require.True(t, ok)
	require.True(t, status.Exited())
	require.Equal(t, 0, status.ExitStatus())
}

func TestSpawnMissingExecutable(t *testing.T) {
	_, err := Spawn("definitely-not-a-real-binary-4a7f", nil)
	var se *SpawnError
	require.ErrorAs(t, err, &se)
	require.Equal(t, SpawnExec, se.Kind)
}

func TestProcessCloseIsIdempotent(t *testing.T) {
	p, err := Spawn("cat", nil)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	require.ErrorIs(t, p.Send([]byte("x")), ErrClosed)
	_, err = p.Recv(0)
	require.ErrorIs(t, err, ErrClosed)
}

func TestProcessCloseTerminatesChild(t *testing.T) {
	p, err := Spawn("sleep", []string{"60"})
	require.NoError(t, err)
	require.True(t, p.IsAlive())

	start := time.Now()
	require.NoError(t, p.Close())
	require.Less(t, time.Since(start), 3*time.Second)
	require.False(t, p.IsAlive())

	status, ok := p.ExitStatus()
	require.True(t, ok)
	require.True(t, status.Signaled())
}
