package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"

	"gotube/util"
)

// ErrTunnelClosed is returned by Dial when the SSH gateway connection
// is not (or no longer) established.
var ErrTunnelClosed = errors.New("ssh tunnel is not connected")

// SSHConfig holds everything needed to dial an SSH gateway.
type SSHConfig struct {
	User          string
	Host          string
	Port          int // defaults to 22
	KeyPath       string
	PromptPass    bool // prompt for a password on stderr
	UseAgent      bool
	StrictHostKey bool
	KnownHosts    string // custom known_hosts path (StrictHostKey only)
	ConnTimeout   time.Duration
}

// SSHDialer forwards TCP connections through an SSH gateway.  Connect
// must succeed before Dial can be used; Close tears the gateway
// connection down and fails any later Dial with ErrTunnelClosed.
type SSHDialer struct {
	cfg *SSHConfig
	log logrus.FieldLogger

	mu     sync.RWMutex
	client *ssh.Client
	alive  bool
}

// NewSSHDialer creates a dialer that is ready to [SSHDialer.Connect].
func NewSSHDialer(cfg *SSHConfig, log logrus.FieldLogger) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SSHDialer{cfg: cfg, log: log}
}

// Connect dials the SSH gateway and completes the handshake.
func (d *SSHDialer) Connect(ctx context.Context) error {
	auth, err := d.cfg.authMethods()
	if err != nil {
		return fmt.Errorf("ssh auth for %s: %w", d.cfg.Host, err)
	}

	hostKey, err := d.cfg.hostKeyCallback()
	if err != nil {
		return fmt.Errorf("ssh hostkey for %s: %w", d.cfg.Host, err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            d.cfg.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         d.cfg.ConnTimeout,
	}

	addr := util.FormatAddr(d.cfg.Host, d.cfg.Port)
	d.log.WithField("addr", addr).Debug("dialing ssh gateway")

	// Context-aware TCP dial so callers can cancel the handshake setup.
	var dialer net.Dialer
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial ssh gateway %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, clientCfg)
	if err != nil {
		tcpConn.Close()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	d.mu.Lock()
	d.client = client
	d.alive = true
	d.mu.Unlock()

	go d.watch(client)
	return nil
}

// Dial forwards a connection to address through the gateway.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	d.mu.RLock()
	client, alive := d.client, d.alive
	d.mu.RUnlock()

	if !alive || client == nil {
		return nil, ErrTunnelClosed
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := client.Dial(network, address)
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("ssh forward to %s: %w", address, r.err)
		}
		return r.conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsAlive reports whether the gateway connection is still up.
func (d *SSHDialer) IsAlive() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.alive
}

// Close shuts down the gateway connection.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.alive = false
	if d.client != nil {
		err := d.client.Close()
		d.client = nil
		return err
	}
	return nil
}

// watch blocks until the gateway connection dies and flips the alive
// flag so later Dial calls fail fast.
func (d *SSHDialer) watch(client *ssh.Client) {
	err := client.Wait()

	d.mu.Lock()
	d.alive = false
	d.mu.Unlock()

	if err != nil {
		d.log.WithError(err).Debug("ssh gateway connection closed")
	}
}
