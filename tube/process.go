package tube

import (
	"os"
	"os/exec"
	"sync"

	"golang.org/x/sys/unix"
)

// Process is a pipe-backed tube wrapping a spawned child: sends feed
// the child's stdin, receives drain its stdout.  The child is started
// by direct executable-plus-argument-vector execution — never through
// a shell — so untrusted bytes in args cannot inject commands.
type Process struct {
	stream
	proc   *os.Process
	pid    int
	path   string
	stdin  *os.File // write end of the child's stdin pipe
	stdout *os.File // read end of the child's stdout pipe

	// mu guards the reap state; IsAlive and Close may race.
	mu     sync.Mutex
	reaped bool
	status unix.WaitStatus
}

// Spawn starts path with the given argument vector (argv[0] is set to
// the resolved executable) and returns a tube wired to its stdio.
// Failures surface as a *SpawnError; stderr passes through to the
// parent's.
func Spawn(path string, args []string, opts ...Option) (*Process, error) {
	o := newOptions(opts)

	exe, err := exec.LookPath(path)
	if err != nil {
		return nil, &SpawnError{Kind: SpawnExec, Path: path, Err: err}
	}

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Kind: SpawnPipe, Path: path, Err: err}
	}
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		stdinR.Close()
		stdinW.Close()
		return nil, &SpawnError{Kind: SpawnPipe, Path: path, Err: err}
	}

	argv := append([]string{exe}, args...)
	proc, err := os.StartProcess(exe, argv, &os.ProcAttr{
		Files: []*os.File{stdinR, stdoutW, os.Stderr},
	})
	// The child holds its own descriptor copies; the parent keeps
	// only the opposite ends.
	stdinR.Close()
	stdoutW.Close()
	if err != nil {
		stdinW.Close()
		stdoutR.Close()
		return nil, &SpawnError{Kind: SpawnExec, Path: path, Err: err}
	}

	p := &Process{
		stream: newStream(stdoutR, stdinW, path, o),
		proc:   proc,
		pid:    proc.Pid,
		path:   path,
		stdin:  stdinW,
		stdout: stdoutR,
	}
	p.log = p.log.WithField("pid", p.pid)
	p.log.Debug("spawned")
	return p, nil
}

// Pid returns the child's process ID.
func (p *Process) Pid() int { return p.pid }

// Path returns the executable name the process was spawned from.
func (p *Process) Path() string { return p.path }

// ExitStatus returns the child's wait status once it has been
// collected; ok is false while the child is still running.
func (p *Process) ExitStatus() (status unix.WaitStatus, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.reaped
}

// IsAlive reports whether the child is still running, reaping it
// without blocking if it has already exited.  It never reports true
// after a successful Close.
func (p *Process) IsAlive() bool {
	if p.closed.Load() {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.reap(false)
}

// reap waits for the child, blocking only when block is set.  It
// returns true once the child has been collected, now or earlier.
// A child collected elsewhere (ECHILD) counts as collected, not as an
// error.  Callers hold p.mu.
func (p *Process) reap(block bool) bool {
	if p.reaped {
		return true
	}
	flags := unix.WNOHANG
	if block {
		flags = 0
	}
	for {
		wpid, err := unix.Wait4(p.pid, &p.status, flags, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.ECHILD:
			p.reaped = true
			return true
		case err != nil:
			p.log.WithError(err).Debug("wait4")
			return p.reaped
		case wpid == 0:
			return false // still running
		default:
			p.reaped = true
			p.log.WithField("status", p.status.ExitStatus()).Debug("child exited")
			return true
		}
	}
}

// Close terminates and reaps the child exactly once: SIGTERM, a
// blocking wait (so no zombie outlives the tube), then release of
// both pipe descriptors.  Idempotent; never fails outward.
func (p *Process) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.mu.Lock()
	if !p.reap(false) {
		if err := unix.Kill(p.pid, unix.SIGTERM); err != nil && err != unix.ESRCH {
			p.log.WithError(err).Debug("kill")
		}
		p.reap(true)
	}
	p.mu.Unlock()

	if err := p.stdin.Close(); err != nil {
		p.log.WithError(err).Debug("close stdin pipe")
	}
	if err := p.stdout.Close(); err != nil {
		p.log.WithError(err).Debug("close stdout pipe")
	}
	p.log.Debug("closed")
	return nil
}

// Interactive bridges the child's stdio with the local terminal.
func (p *Process) Interactive() error { return interactive(&p.stream) }

var _ Tube = (*Process)(nil)
