package transport

import (
	"context"
	"net"

	"github.com/ValentinKolb/kvproxy/proxy/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ConnHandler serves one accepted connection until the client leaves, an I/O
// error occurs or ctx is cancelled. The transport closes conn afterwards.
type ConnHandler func(ctx context.Context, conn net.Conn)

// IServerTransport is the interface for the listening side of the proxy
type IServerTransport interface {
	// RegisterHandler registers the handler called for every accepted connection
	RegisterHandler(handler ConnHandler)
	// Listen accepts connections until ctx is cancelled. Each connection is served
	// by the handler in its own goroutine. Listen returns after all handlers returned.
	Listen(ctx context.Context, config common.ServerConfig) error
	// Addr returns the address of the listener, nil before Listen was called
	Addr() net.Addr
}
