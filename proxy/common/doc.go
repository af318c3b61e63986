// Package common provides the configuration structures and the logging setup
// shared by the proxy packages and the command line.
//
// Key Components:
//
//   - ServerConfig: Everything the proxy needs at start-up: listener and socket
//     options, wire protocol, backend selection and credentials, the per-call
//     deadline, the collection ttl and the logging settings. It is immutable once
//     the server runs and String() renders it for the start-up banner.
//
//   - ClientConfig: Settings of the command line client (endpoint, network,
//     timeout, retries).
//
//   - Logger: Custom implementation of dragonboat's logger.ILogger. All packages
//     obtain their logger through logger.GetLogger and share one format:
//     "LEVEL | package | message".
package common
