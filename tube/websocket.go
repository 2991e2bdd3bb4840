package tube

import (
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// DialWebSocket opens a websocket connection to rawURL ("ws://..." or
// "wss://...") and wraps it in a Remote via handle adoption.  Binary
// messages carry the byte stream; message boundaries are not
// preserved, matching the tube contract's opaque-bytes semantics.
func DialWebSocket(rawURL string, opts ...Option) (*Remote, error) {
	o := newOptions(opts)

	dialer := websocket.Dialer{HandshakeTimeout: o.timeout}
	if o.insecure {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	ws, resp, err := dialer.Dial(rawURL, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, classifyDial(rawURL, err)
	}

	r := adopt(newWSConn(ws), rawURL, o)
	r.log.Debug("websocket connected")
	return r, nil
}

// wsConn adapts a message-based websocket connection to the net.Conn
// byte-stream contract: writes become binary messages, reads drain
// incoming messages with spill-over kept for the next read.
type wsConn struct {
	ws    *websocket.Conn
	frame io.Reader // remainder of the current incoming message
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws}
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.frame == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				if isWSClose(err) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.frame = r
		}
		n, err := c.frame.Read(p)
		if err == io.EOF {
			// Message drained; the stream continues with the next one.
			c.frame = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error {
	// Tell the peer first; best effort.
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)) //nolint:errcheck
	return c.ws.Close()
}

func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

// isWSClose reports whether err is a peer close, clean or abrupt
// enough to treat as end of stream.
func isWSClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived)
}

var _ net.Conn = (*wsConn)(nil)
