package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Proxy server configuration struct
// --------------------------------------------------------------------------

type BackendType string

const (
	BackendTypeRedis BackendType = "redis"
	BackendTypeLocal BackendType = "local"
)

type TransportType string

const (
	TransportTCP  TransportType = "tcp"
	TransportUnix TransportType = "unix"
)

type ProtocolType string

const (
	ProtocolRESP     ProtocolType = "resp"
	ProtocolMemcache ProtocolType = "memcache"
)

// SocketConf holds the socket buffer sizes (0 keeps the OS default)
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds the TCP specific socket options
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec < 0 keeps the OS default
	TCPLingerSec int
}

// ServerTransportConfig configures the listener of the proxy
type ServerTransportConfig struct {
	Type TransportType
	// Endpoint is a host:port for tcp or a socket path for unix
	Endpoint string
	SocketConf
	TCPConf
}

// BackendConfig configures the cache backend every connection talks to
type BackendConfig struct {
	Type BackendType

	// CacheName namespaces all keys in the backend
	CacheName string

	// redis backend
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int

	// local backend
	LocalLatency time.Duration
}

// CommandLogConfig configures the command log
type CommandLogConfig struct {
	Path   string
	Sample uint64
}

// ServerConfig holds all configuration parameters of the proxy
type ServerConfig struct {
	Protocol  ProtocolType
	Transport ServerTransportConfig
	Backend   BackendConfig

	// Timeout is the deadline of a single backend call
	Timeout time.Duration
	// CollectionTTL is applied to lists and sets on every mutation
	CollectionTTL time.Duration

	// AdminEndpoint serves /metrics and /healthz, "" disables it
	AdminEndpoint string

	// Logging configuration
	LogLevel      string
	CommandLog    CommandLogConfig
	StatsInterval time.Duration
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Proxy settings
	addSection("Proxy")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Transport", string(c.Transport.Type))
	addField("Protocol", string(c.Protocol))
	addField("Backend Timeout", c.Timeout.String())
	addField("Collection TTL", c.CollectionTTL.String())
	if c.AdminEndpoint != "" {
		addField("Admin Endpoint", c.AdminEndpoint)
	} else {
		addField("Admin Endpoint", "disabled")
	}

	// Backend
	addSection("Backend")
	addField("Type", string(c.Backend.Type))
	addField("Cache Name", c.Backend.CacheName)
	switch c.Backend.Type {
	case BackendTypeRedis:
		addField("Redis Address", c.Backend.RedisAddr)
		addField("Redis DB", strconv.Itoa(c.Backend.RedisDB))
		addField("Redis Max Retries", strconv.Itoa(c.Backend.RedisMaxRetries))
		if c.Backend.RedisPassword != "" {
			addField("Redis Password", "********")
		}
	case BackendTypeLocal:
		addField("Injected Latency", c.Backend.LocalLatency.String())
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)
	if c.CommandLog.Sample > 0 {
		path := c.CommandLog.Path
		if path == "" {
			path = "stdout"
		}
		addField("Command Log", fmt.Sprintf("%s (1 in %d)", path, c.CommandLog.Sample))
	} else {
		addField("Command Log", "disabled")
	}
	if c.StatsInterval > 0 {
		addField("Stats Interval", c.StatsInterval.String())
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig configures the command line client talking to a running proxy
type ClientConfig struct {
	Endpoint string
	// Network is "tcp" or "unix"
	Network       string
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Network", c.Network)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}
