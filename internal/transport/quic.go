package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/quic-go/quic-go"
)

// streamConn wraps quic.Stream as net.Conn for the channel layer.
type streamConn struct {
	*quic.Stream
	conn *quic.Conn
}

func (c *streamConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *streamConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// DefaultQUICTLS TLS for gateways reached over a QUIC transport (ALPN h3).
func DefaultQUICTLS(serverName string, insecure bool) *tls.Config {
	cfg := DefaultTLS(serverName, insecure)
	cfg.NextProtos = []string{"h3"}
	return cfg
}

// DialStream dials QUIC to addr, opens one stream, returns it as net.Conn.
// QUIC exposes no tls-server-end-point material, so channel bindings are nil.
func DialStream(ctx context.Context, addr string, tlsConfig *tls.Config) (net.Conn, error) {
	if tlsConfig == nil {
		tlsConfig = DefaultQUICTLS("", false)
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConfig, &quic.Config{
		MaxIdleTimeout: 30 * time.Second,
	})
	if err != nil {
		return nil, err
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		_ = conn.CloseWithError(0, "")
		return nil, err
	}
	return &streamConn{Stream: stream, conn: conn}, nil
}
