package base

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/ValentinKolb/kvproxy/proxy/common"
	"github.com/ValentinKolb/kvproxy/proxy/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// IConnUpgrader is implemented by connectors that tune accepted connections
type IConnUpgrader interface {
	// UpgradeConnection applies socket options to an accepted connection
	UpgradeConnection(conn net.Conn, config common.ServerConfig) error
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the accept loop shared by all socket transports
type serverTransport struct {
	connector IServerConnector
	handler   transport.ConnHandler
	addr      atomic.Pointer[net.Addr]
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a server transport on top of a connector
func NewBaseServerTransport(connector IServerConnector) transport.IServerTransport {
	return &serverTransport{connector: connector}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ConnHandler) {
	t.handler = handler
}

func (t *serverTransport) Addr() net.Addr {
	if addr := t.addr.Load(); addr != nil {
		return *addr
	}
	return nil
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return errors.New("no connection handler registered")
	}

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	addr := listener.Addr()
	t.addr.Store(&addr)

	Logger.Infof("Starting %s server on %s", t.connector.GetName(), addr)

	// closing the listener is what ends the accept loop
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	// Accept connections
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				Logger.Infof("Stopping %s server on %s", t.connector.GetName(), addr)
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		metrics.TCPAccept.Inc()
		wg.Add(1)

		// Handle the connection in a goroutine
		go func() {
			defer wg.Done()
			t.handleConnection(ctx, conn, config)
		}()
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleConnection runs the handler for one connection and closes it afterwards
func (t *serverTransport) handleConnection(ctx context.Context, conn net.Conn, config common.ServerConfig) {
	metrics.TCPConnCurrent.Inc()
	defer func() {
		_ = conn.Close()
		metrics.TCPConnCurrent.Dec()
		metrics.TCPClose.Inc()
	}()

	if upgrader, ok := t.connector.(IConnUpgrader); ok {
		if err := upgrader.UpgradeConnection(conn, config); err != nil {
			Logger.Warningf("Failed to apply socket options to %s: %v", conn.RemoteAddr(), err)
		}
	}

	// a blocked read of the handler ends when the connection is closed
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	Logger.Debugf("Connection from %s", conn.RemoteAddr())
	t.handler(ctx, conn)
	Logger.Debugf("Connection from %s closed", conn.RemoteAddr())
}
