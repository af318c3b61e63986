// Package tcp implements the TCP server transport of the proxy on top of the
// base package. Accepted connections are tuned with the TCPConf and SocketConf
// options of the server configuration.
package tcp
