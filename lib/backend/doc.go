// Package backend defines the contract between the proxy and the remote cache
// it translates to. The remote cache only offers coarse, capability oriented
// operations: a scalar get/set, the length of a dictionary, fetching and
// concatenating lists, and fetching, adding to and removing from sets. It has
// no multi-key set algebra, no indexed list access and reports no mutation counts.
//
// The package focuses on:
//   - A unified interface (IBackend) implemented by every backend client
//   - A typed Hit/Miss outcome for read operations
//   - A small error taxonomy shared by the whole proxy
//   - Bounded latency for every backend call
//
// Key Components:
//
//   - IBackend: One method per backend capability. Implementations live in the
//     sub packages redis (a Redis server accessed through go-redis) and lstore
//     (an in-process store for development and tests).
//
//   - Outcome: Result of a read operation, either a Hit carrying a value or a Miss.
//
//   - Error / Kind: The error taxonomy. InvalidInput, Timeout, RateLimited,
//     BackendError and Custom. Classify converts any error into an *Error.
//
//   - Invoke: Issues exactly one backend call, races it against a deadline timer,
//     classifies the outcome and updates the backend counters. Invoke never retries.
//
// Thread Safety:
//
//	A backend client is owned by a single connection and is not required to be
//	safe for concurrent use. Invoke itself keeps no state.
package backend
