package kconn

import (
	"crypto/tls"
	"net"
)

// tlsClient wraps nc in a TLS client connection. The handshake itself
// happens lazily on first Read/Write, same as any net.Conn.
func tlsClient(nc net.Conn, cfg *tls.Config) net.Conn {
	return tls.Client(nc, cfg)
}
