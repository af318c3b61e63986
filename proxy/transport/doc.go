// Package transport defines the listening side of the proxy.
//
// A server transport accepts connections and hands each one to a ConnHandler in
// its own goroutine. The handler owns the connection for its whole lifetime,
// which is how commands of one client are processed strictly in order while
// different clients are served concurrently.
//
// Implementations:
//
//   - tcp:  TCP listener with socket tuning (TCP_NODELAY, keep-alive, linger,
//     buffer sizes)
//   - unix: Unix domain socket listener
//
// Both are built on the connector pattern of the base package. The http package
// is not a proxy transport: it serves the admin endpoint (/metrics, /healthz).
package transport
