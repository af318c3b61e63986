// Package memcache is the memcache text protocol frontend of the proxy.
//
// Supported commands:
//
//	get <key>*                                    VALUE <key> 0 <bytes>\r\n<data>\r\n ... END\r\n
//	gets <key>*                                   like get, with a cas unique of 0
//	set <key> <flags> <exptime> <bytes> [noreply] STORED\r\n
//	quit
//
// Everything else is answered with ERROR. Flags are not stored, every value is
// returned with flags 0. Malformed input is answered with CLIENT_ERROR, backend
// failures with SERVER_ERROR (backend timeout, ratelimit exceed, backend error).
// Lookups and stores go through the same commands.Client as RESP clients use,
// so deadlines, counters and the command log are shared between both protocols.
package memcache
