package tube

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"gotube/util"
)

func startWSEcho(t *testing.T) string {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		for {
			mt, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			if err := ws.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDialWebSocketEcho(t *testing.T) {
	url := startWSEcho(t)

	r, err := DialWebSocket(url)
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SendLine([]byte("ping")))
	line, err := r.RecvLine()
	require.NoError(t, err)
	require.Equal(t, []byte("ping\n"), line)

	require.NoError(t, r.Close())
	require.False(t, r.IsAlive())
}

func TestDialWebSocketRefused(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)

	_, err = DialWebSocket(fmt.Sprintf("ws://127.0.0.1:%d/", port))
	var ce *ConnectError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, ConnectRefused, ce.Kind)
}

func TestDialWebSocketDelimitedReads(t *testing.T) {
	url := startWSEcho(t)

	r, err := DialWebSocket(url)
	require.NoError(t, err)
	defer r.Close()

	// Two logical lines inside a single frame come back out as two
	// RecvLine results.
	require.NoError(t, r.Send([]byte("one\ntwo\n")))

	first, err := r.RecvLine()
	require.NoError(t, err)
	require.Equal(t, []byte("one\n"), first)

	second, err := r.RecvLine()
	require.NoError(t, err)
	require.Equal(t, []byte("two\n"), second)
}
