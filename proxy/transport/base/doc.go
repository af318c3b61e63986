// Package base provides the protocol-independent part of the socket transports:
// the accept loop and the per-connection goroutine. Protocol specific operations
// (creating the listener, tuning accepted sockets) are injected as a connector.
//
// Key Components:
//
//   - IServerConnector: Creates the listener for one network type.
//
//   - IConnUpgrader: Optionally implemented by a connector to apply socket
//     options to every accepted connection.
//
//   - serverTransport: Accepts connections until the context passed to Listen is
//     cancelled, then closes the listener and all open connections and waits for
//     their handlers to return.
//
// Every accepted connection updates the tcp accept, close and current-connection
// counters of the metrics package.
package base
