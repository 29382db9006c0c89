// Package gateway bootstraps an RPC-over-HTTP virtual connection: two
// channels, each authenticated against the gateway before it starts
// treating the HTTP connection as a raw byte tunnel.
package gateway

import (
	"bufio"
	"net"

	"github.com/google/uuid"

	"dev.c0redev.rpctun/internal/auth"
	"dev.c0redev.rpctun/internal/proto"
)

// Role of a channel within the virtual connection.
type Role int

const (
	RoleIn  Role = iota // client -> gateway stream
	RoleOut             // gateway -> client stream
)

// Method is the channel's HTTP method on the RPC proxy.
func (r Role) Method() string {
	if r == RoleOut {
		return proto.MethodOutData
	}
	return proto.MethodInData
}

func (r Role) String() string {
	if r == RoleOut {
		return "out"
	}
	return "in"
}

// Channel: one leg of the tunnel with its own auth handshake. The handshake
// is strictly sequential per channel; in and out channels are independent
// and may proceed concurrently.
type Channel struct {
	Role        Role
	Cookie      uuid.UUID
	Auth        *auth.Context
	Conn        net.Conn
	Replacement bool // out only: supersedes an earlier out channel

	URI  string
	Host string

	rd *bufio.Reader
}

// NewChannel binds a transport conn to a channel role.
func NewChannel(role Role, conn net.Conn, uri, host string) *Channel {
	return &Channel{
		Role:   role,
		Cookie: uuid.New(),
		Conn:   conn,
		URI:    uri,
		Host:   host,
		rd:     bufio.NewReader(conn),
	}
}

// Reader exposes the buffered response side of the conn.
func (ch *Channel) Reader() *bufio.Reader { return ch.rd }

// Close closes the transport conn.
func (ch *Channel) Close() error {
	if ch.Conn == nil {
		return nil
	}
	return ch.Conn.Close()
}
