// Package commands is the translation engine of the proxy. It turns typed client
// requests into calls against a backend.IBackend and writes protocol exact RESP
// replies.
//
// The package focuses on:
//   - One handler per supported command, all with the same shape
//   - Emulating what the backend cannot do natively: SDIFF, SINTER and SUNION
//     (through the setalg package), LINDEX (a one element list fetch) and the
//     counts returned by LPUSH, RPUSH, SADD and SREM
//   - Bounded latency: every backend call goes through backend.Invoke
//   - Accurate counters and one command log line per command
//
// Key Components:
//
//   - Request: The typed requests, one struct per command. Requests are built by
//     a frontend and only read here.
//
//   - Buffer: Collects the reply of one command. On every path, including errors,
//     a handler leaves exactly one top-level reply in the buffer.
//
//   - Client: The per-connection handle. It owns the backend client of a single
//     connection and the settings every handler needs (deadline, collection ttl,
//     command log).
//
//   - Client.Dispatch: Routes a request to its handler.
//
//   - Client.Get: The legacy GET path. Unlike all other handlers it writes its reply
//     to the connection itself, including the error reply for an invalid key.
//
// Emulated counts:
//
//	The backend does not report how many elements a mutation affected. LPUSH, RPUSH,
//	SADD and SREM therefore reply with the number of elements in the request, which
//	is an approximation and not an authoritative count.
//
// Thread Safety:
//
//	A Client must only be used by the goroutine serving its connection. Commands of
//	a connection are handled one after the other.
package commands
