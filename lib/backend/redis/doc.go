// Package redis implements backend.IBackend on top of a Redis server using go-redis.
//
// Only the coarse capability set of backend.IBackend is used, even where Redis
// would offer more (e.g. SINTER or LINDEX): the proxy emulates everything else.
// Each interface method results in exactly one round trip:
//
//   - Get / Set map to GET and SET (with EX if a ttl is given)
//   - DictionaryLength maps to HLEN (a length of 0 is a Miss, Redis drops empty hashes)
//   - ListFetch pipelines EXISTS and LRANGE, the exclusive end is converted to an
//     inclusive LRANGE stop
//   - ListConcatenateFront / ListConcatenateBack wrap LPUSH / RPUSH and EXPIRE in MULTI/EXEC
//   - SetFetch maps to SMEMBERS (an empty set is a Miss)
//   - SetAddElements wraps SADD and EXPIRE in MULTI/EXEC, SetRemoveElements maps to SREM
//
// When a cache name is configured, every key is namespaced as "<cache name>:<key>".
// Server replies signalling exhausted capacity (BUSY, LIMIT, max number of clients)
// are reported as backend.ErrLimitExceeded.
package redis
