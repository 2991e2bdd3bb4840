// Package cmd wires up the CLI flags and dispatches to the tube core.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"gotube/config"
	"gotube/retry"
	"gotube/transport"
	"gotube/tube"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gotube/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate gotube mode.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{BindAddr: config.DefaultBindAddress}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gotube", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Listen for one inbound connection")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "Port to listen on (with -l)")
	fs.StringVar(&cfg.BindAddr, "bind", cfg.BindAddr, "Bind address for listen mode")

	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Connect timeout in seconds")

	// ── TLS ──────────────────────────────────────────────────────
	fs.BoolVar(&cfg.TLS, "tls", cfg.TLS, "Negotiate TLS after connecting")
	fs.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "Skip TLS certificate verification")
	fs.StringVar(&cfg.ServerName, "sni", "", "TLS server name override")

	// ── proxies / transports ─────────────────────────────────────
	fs.StringVar(&cfg.Proxy, "proxy", cfg.Proxy, "HTTP CONNECT proxy (host:port)")
	fs.StringVar(&cfg.SOCKS5, "socks5", cfg.SOCKS5, "SOCKS5 proxy (host:port)")
	fs.StringVar(&cfg.WSURL, "ws", "", "Dial a websocket URL instead of HOST PORT")
	fs.StringVar(&cfg.SSH, "ssh", cfg.SSH, "Dial through an SSH gateway (user@host[:port])")
	fs.StringVar(&cfg.SSHKey, "ssh-key", cfg.SSHKey, "Private key for --ssh")

	// ── child process ────────────────────────────────────────────
	fs.StringVarP(&cfg.Exec, "exec", "e", "", "Spawn program and wire it to the session")
	fs.StringArrayVar(&cfg.ExecArgs, "arg", nil, "Argument for --exec (repeatable)")

	// ── behaviour ────────────────────────────────────────────────
	fs.IntVar(&cfg.Retry, "retry", 0, "Retry failed dials up to N attempts")
	fs.BoolVar(&cfg.Raw, "raw", false, "Raw terminal mode for interactive sessions")
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")

	var showVersion, showHelp bool
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if showHelp || len(args) == 0 {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("gotube %s\n", version)
		return nil
	}

	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)

	switch {
	case cfg.Listen:
		return runListen(ctx, cfg, log)
	case cfg.Exec != "" && cfg.Host == "" && cfg.WSURL == "":
		return runSpawn(cfg, log)
	default:
		return runDial(ctx, cfg, log)
	}
}

// parsePositional handles the trailing HOST PORT arguments.
func parsePositional(cfg *config.Config, rest []string) error {
	if cfg.Listen || cfg.WSURL != "" {
		return nil
	}
	if len(rest) >= 1 {
		cfg.Host = rest[0]
	}
	if len(rest) >= 2 {
		port, err := strconv.Atoi(rest[1])
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port %q", rest[1])
		}
		cfg.Port = port
	}
	if len(rest) > 2 {
		return fmt.Errorf("unexpected arguments: %v", rest[2:])
	}
	return nil
}

// ── modes ────────────────────────────────────────────────────────────

func runListen(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	ln, err := tube.Listen(cfg.Port,
		tube.WithBindAddr(cfg.BindAddr),
		tube.WithLogger(log))
	if err != nil {
		return err
	}
	defer ln.Close()

	// Shut the listener down when the context expires.
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	t, err := ln.Accept()
	if err != nil {
		if errors.Is(err, tube.ErrClosed) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer t.Close()

	return session(ctx, cfg, log, t)
}

func runDial(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) error {
	opts := dialOptions(cfg, log)

	if cfg.SSH != "" {
		sshCfg, err := parseSSHSpec(cfg.SSH, cfg.SSHKey, cfg.Timeout)
		if err != nil {
			return err
		}
		gw := transport.NewSSHDialer(sshCfg, log)
		if err := gw.Connect(ctx); err != nil {
			return err
		}
		defer gw.Close()
		opts = append(opts, tube.WithDialer(gw))
	}

	dialOnce := func(ctx context.Context) (tube.Tube, error) {
		if cfg.WSURL != "" {
			return tube.DialWebSocket(cfg.WSURL, opts...)
		}
		return tube.DialContext(ctx, cfg.Host, cfg.Port, opts...)
	}

	var (
		t   tube.Tube
		err error
	)
	if cfg.Retry > 0 {
		t, err = retry.Dial(ctx, retry.Config{Attempts: cfg.Retry, Jitter: true}, dialOnce)
	} else {
		t, err = dialOnce(ctx)
	}
	if err != nil {
		return err
	}
	defer t.Close()

	return session(ctx, cfg, log, t)
}

func runSpawn(cfg *config.Config, log logrus.FieldLogger) error {
	p, err := tube.Spawn(cfg.Exec, cfg.ExecArgs, spawnOptions(cfg, log)...)
	if err != nil {
		return err
	}
	defer p.Close()
	return p.Interactive()
}

// session runs one established tube to completion: either bridged to
// a spawned child or interactive on the terminal.
func session(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, t tube.Tube) error {
	// Unblock pending reads when the context expires.
	go func() {
		<-ctx.Done()
		t.Close()
	}()

	var err error
	if cfg.Exec != "" {
		var p *tube.Process
		p, err = tube.Spawn(cfg.Exec, cfg.ExecArgs, spawnOptions(cfg, log)...)
		if err != nil {
			return err
		}
		defer p.Close()
		err = tube.BridgeIO(t, p.Reader(), p.Writer())
	} else {
		err = t.Interactive()
	}

	stats := t.Stats()
	log.WithFields(logrus.Fields{
		"sent":     stats.BytesSent,
		"received": stats.BytesReceived,
	}).Debug("session finished")
	return err
}

// ── option assembly ──────────────────────────────────────────────────

func dialOptions(cfg *config.Config, log logrus.FieldLogger) []tube.Option {
	opts := []tube.Option{
		tube.WithLogger(log),
		tube.WithTimeout(cfg.Timeout),
	}
	if cfg.Insecure {
		opts = append(opts, tube.WithInsecureTLS())
	} else if cfg.TLS {
		opts = append(opts, tube.WithTLS())
	}
	if cfg.ServerName != "" {
		opts = append(opts, tube.WithTLSServerName(cfg.ServerName))
	}
	if cfg.Proxy != "" {
		host, port, err := splitAddr(cfg.Proxy)
		if err == nil {
			opts = append(opts, tube.WithProxy(host, port))
		}
	}
	if cfg.SOCKS5 != "" {
		host, port, err := splitAddr(cfg.SOCKS5)
		if err == nil {
			opts = append(opts, tube.WithSOCKS5(host, port))
		}
	}
	if cfg.Raw {
		opts = append(opts, tube.WithRawTerminal())
	}
	return opts
}

func spawnOptions(cfg *config.Config, log logrus.FieldLogger) []tube.Option {
	opts := []tube.Option{tube.WithLogger(log)}
	if cfg.Raw {
		opts = append(opts, tube.WithRawTerminal())
	}
	return opts
}

// ── helpers ──────────────────────────────────────────────────────────

func newLogger(verbose int) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch verbose {
	case 0:
		log.SetLevel(logrus.WarnLevel)
	case 1:
		log.SetLevel(logrus.InfoLevel)
	case 2:
		log.SetLevel(logrus.DebugLevel)
	default:
		log.SetLevel(logrus.TraceLevel)
	}
	return log
}

// parseSSHSpec turns "user@host[:port]" into an SSH gateway config.
func parseSSHSpec(spec, keyPath string, timeout time.Duration) (*transport.SSHConfig, error) {
	user, hostPort, ok := strings.Cut(spec, "@")
	if !ok || user == "" || hostPort == "" {
		return nil, fmt.Errorf("invalid --ssh %q (want user@host[:port])", spec)
	}

	cfg := &transport.SSHConfig{
		User:        user,
		Host:        hostPort,
		KeyPath:     keyPath,
		ConnTimeout: timeout,
	}
	if host, port, err := splitAddr(hostPort); err == nil {
		cfg.Host = host
		cfg.Port = port
	}
	return cfg, nil
}

func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return host, port, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gotube %s - a tube toolkit for sockets and processes

Usage:
  gotube [options] HOST PORT        connect to a remote peer
  gotube -l -p PORT [options]       accept one inbound connection
  gotube --exec PROG [--arg A]...   spawn a program and talk to it
  gotube --ws URL [options]         dial a websocket endpoint

Options:
%s`, version, fs.FlagUsages())
}
