// Package resp is the Redis protocol frontend of the proxy.
//
// Input is tokenized with github.com/tidwall/redcon, which accepts both RESP
// arrays and inline commands. Every argument vector is validated (command name,
// arity, integer arguments) and turned into a typed request of the commands
// package. Invalid input is answered with a -ERR reply without touching the
// backend. PING and QUIT are answered by the frontend itself.
//
// GET uses the legacy write path of commands.Client.Get, all other commands go
// through commands.Client.Dispatch. Replies are buffered and flushed once per
// read, so pipelined commands are answered with a single write.
package resp
