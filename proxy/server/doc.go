// Package server wires the parts of the proxy together: a server transport
// accepts connections, every connection gets a backend client of its own from
// the backend factory, and a frontend serves the connection's commands through
// a commands.Client.
//
// Serve runs the listener, the optional admin endpoint and the optional stats
// log in one errgroup. Cancelling the context stops all of them and closes the
// open client connections.
//
// Usage Example:
//
//	config := common.ServerConfig{
//		Protocol:  common.ProtocolRESP,
//		Transport: common.ServerTransportConfig{Type: common.TransportTCP, Endpoint: ":6380"},
//		Backend:   common.BackendConfig{Type: common.BackendTypeRedis, RedisAddr: "localhost:6379"},
//		Timeout:   200 * time.Millisecond,
//	}
//
//	s, err := server.New(config)
//	if err != nil {
//		return err
//	}
//	return s.Serve(ctx)
package server
