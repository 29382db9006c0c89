// rpctun: authenticates both channels of an RPC-over-HTTP gateway tunnel.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"time"

	"dev.c0redev.rpctun/internal/auth"
	"dev.c0redev.rpctun/internal/gateway"
	"dev.c0redev.rpctun/internal/ntlm"
	"dev.c0redev.rpctun/internal/transport"
)

func main() {
	addr := os.Getenv("RPCTUN_GATEWAY")
	if addr == "" {
		log.Fatal("RPCTUN_GATEWAY required (host:port)")
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
		addr = net.JoinHostPort(addr, "443")
	}
	uri := os.Getenv("RPCTUN_URI")
	if uri == "" {
		uri = "/rpc/rpcproxy.dll"
	}
	if target := os.Getenv("RPCTUN_TARGET"); target != "" {
		uri += "?" + target
	}
	settings := &gateway.Settings{
		Addr:     addr,
		Hostname: host,
		URI:      uri,
		Username: os.Getenv("RPCTUN_USER"),
		Domain:   os.Getenv("RPCTUN_DOMAIN"),
		Password: os.Getenv("RPCTUN_PASSWORD"),
	}
	insecure := os.Getenv("RPCTUN_INSECURE") == "1"

	dial := func(ctx context.Context) (net.Conn, []byte, error) {
		switch {
		case os.Getenv("RPCTUN_QUIC") == "1":
			conn, err := transport.DialStream(ctx, addr, transport.DefaultQUICTLS(host, insecure))
			return conn, nil, err
		case os.Getenv("RPCTUN_WS") != "":
			return transport.DialWebSocket(ctx, os.Getenv("RPCTUN_WS"), transport.DefaultTLS(host, insecure))
		default:
			return transport.Dial(ctx, addr, transport.DefaultTLS(host, insecure))
		}
	}

	c := &gateway.Client{
		Settings: settings,
		Dial:     dial,
		NewPackage: func(identity *auth.Identity, spn string, bindings []byte) auth.Package {
			return ntlm.New(identity, spn, bindings)
		},
	}
	if settings.Username == "" {
		c.Decide = func() auth.Decision { return auth.DecisionNoCredentials }
		log.Println("no credentials provided - using anonymous identity")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.Connect(ctx); err != nil {
		log.Fatal("connect: ", err)
	}
	defer c.Close()
	log.Println("tunnel established, virtual connection", c.Cookie)
}
