package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn adapts a websocket.Conn to net.Conn; the handshake layer streams
// bytes, so frames are binary and reads continue across message boundaries.
type wsConn struct {
	ws *websocket.Conn
	r  io.Reader
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			c.r = r
		}
		n, err := c.r.Read(p)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
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

func (c *wsConn) Close() error         { return c.ws.Close() }
func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

// DialWebSocket connects to a gateway behind a WebSocket upgrade endpoint
// and returns the conn plus its TLS channel-binding data (nil over ws://).
func DialWebSocket(ctx context.Context, url string, tlsConfig *tls.Config) (net.Conn, []byte, error) {
	d := websocket.Dialer{
		TLSClientConfig:  tlsConfig,
		HandshakeTimeout: dialTimeout,
	}
	ws, resp, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, nil, err
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	var bindings []byte
	if tlsc, ok := ws.NetConn().(*tls.Conn); ok {
		bindings = ChannelBindings(tlsc.ConnectionState())
	}
	return &wsConn{ws: ws}, bindings, nil
}
