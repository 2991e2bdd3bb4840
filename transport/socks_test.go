package transport

import (
	"bufio"
	"context"
	"io"
	"log"
	"net"
	"testing"

	socks5 "github.com/armon/go-socks5"
	"github.com/stretchr/testify/require"
)

func startSOCKS5(t *testing.T) string {
	t.Helper()

	srv, err := socks5.New(&socks5.Config{
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go srv.Serve(ln) //nolint:errcheck
	return ln.Addr().String()
}

func TestSOCKS5DialerTunnel(t *testing.T) {
	target := startEcho(t)
	d := &SOCKS5Dialer{ProxyAddr: startSOCKS5(t)}

	conn, err := d.Dial(context.Background(), "tcp", target)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("via socks\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "via socks\n", line)
}

func TestSOCKS5DialerProxyDown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	d := &SOCKS5Dialer{ProxyAddr: addr}
	_, err = d.Dial(context.Background(), "tcp", "10.0.0.1:1")
	require.Error(t, err)
}
