// Package lstore implements backend.IBackend in process memory.
//
// The local store is not a replacement for a real cache. It exists so the proxy
// can be started without any external service (serve --backend=local) and so the
// command handlers can be tested against a backend with realistic semantics.
//
// Entries are kept in an xsync.MapOf. Every entry is immutable: mutations build a
// new entry inside MapOf.Compute, so readers never observe a partially applied
// change. Expired entries are dropped lazily when they are read. Keys with a time to
// live are also kept in an expiry queue (a binary heap indexed by key), and every
// write first reaps the keys whose expiry has passed, so entries that are never
// read again do not pile up.
//
// Options.Latency delays every call by a fixed duration (honouring context
// cancellation), which makes it possible to exercise the deadline handling of the
// proxy without a slow network.
//
// Unlike a backend client, a Store is safe for concurrent use; every connection can
// share the same Store through the factory returned by Store.Factory.
package lstore
