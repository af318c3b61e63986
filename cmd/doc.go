// Package cmd implements the command-line interface for kvproxy. It provides a
// hierarchical command structure for running the proxy and for talking to a
// running proxy as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starting and configuring the proxy server
//   - cli: Client commands (get, set, lrange, sinter, ...) and a performance test
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See kvproxy -help for a list of all commands.
package cmd
