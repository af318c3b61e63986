// Package unix implements the Unix domain socket server transport of the proxy.
// An existing socket file at the endpoint path is removed before listening.
package unix
