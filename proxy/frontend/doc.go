// Package frontend defines the wire protocol side of the proxy. A frontend
// tokenizes client input, builds the typed requests of the commands package,
// runs them through a per-connection commands.Client and flushes the replies.
//
// Implementations:
//
//   - resp:     the Redis protocol (arrays and inline commands)
//   - memcache: the get/gets/set subset of the memcache text protocol
//
// Errors that belong to a single command are answered on the wire and never end
// the session. Only I/O failures and malformed protocol framing do.
package frontend
