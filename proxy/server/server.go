package server

import (
	"context"
	"fmt"
	"net"

	"github.com/ValentinKolb/kvproxy/lib/backend"
	"github.com/ValentinKolb/kvproxy/lib/backend/lstore"
	"github.com/ValentinKolb/kvproxy/lib/backend/redis"
	"github.com/ValentinKolb/kvproxy/lib/commands"
	"github.com/ValentinKolb/kvproxy/lib/klog"
	"github.com/ValentinKolb/kvproxy/lib/metrics"
	"github.com/ValentinKolb/kvproxy/proxy/common"
	"github.com/ValentinKolb/kvproxy/proxy/frontend"
	"github.com/ValentinKolb/kvproxy/proxy/frontend/memcache"
	"github.com/ValentinKolb/kvproxy/proxy/frontend/resp"
	"github.com/ValentinKolb/kvproxy/proxy/transport"
	"github.com/ValentinKolb/kvproxy/proxy/transport/http"
	"github.com/ValentinKolb/kvproxy/proxy/transport/tcp"
	"github.com/ValentinKolb/kvproxy/proxy/transport/unix"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("server")

// ProxyServer accepts client connections and serves each one with its own
// backend client
type ProxyServer struct {
	config     common.ServerConfig
	transport  transport.IServerTransport
	frontend   frontend.IFrontend
	backends   backend.Factory
	commandLog *klog.Logger
}

// NewProxyServer creates a new proxy server from its parts
//
// Usage:
//
//	s := server.NewProxyServer(
//		config,
//		tcp.NewTCPServerTransport(),
//		resp.New(),
//		redis.NewFactory(redis.Config{Addr: "localhost:6379"}),
//		klog.Nop(),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewProxyServer(
	config common.ServerConfig,
	transport transport.IServerTransport,
	frontend frontend.IFrontend,
	backends backend.Factory,
	commandLog *klog.Logger,
) *ProxyServer {
	if commandLog == nil {
		commandLog = klog.Nop()
	}

	s := &ProxyServer{
		config:     config,
		transport:  transport,
		frontend:   frontend,
		backends:   backends,
		commandLog: commandLog,
	}
	transport.RegisterHandler(s.handleConnection)
	return s
}

// New creates a proxy server with the transport, frontend, backend and command
// log selected by config
func New(config common.ServerConfig) (*ProxyServer, error) {
	var t transport.IServerTransport
	switch config.Transport.Type {
	case common.TransportTCP, "":
		t = tcp.NewTCPServerTransport()
	case common.TransportUnix:
		t = unix.NewUnixServerTransport()
	default:
		return nil, fmt.Errorf("invalid transport %s", config.Transport.Type)
	}

	var f frontend.IFrontend
	switch config.Protocol {
	case common.ProtocolRESP, "":
		f = resp.New()
	case common.ProtocolMemcache:
		f = memcache.New()
	default:
		return nil, fmt.Errorf("invalid protocol %s", config.Protocol)
	}

	var b backend.Factory
	switch config.Backend.Type {
	case common.BackendTypeRedis:
		if config.Backend.RedisAddr == "" {
			return nil, fmt.Errorf("redis backend requires an address")
		}
		b = redis.NewFactory(redis.Config{
			Addr:       config.Backend.RedisAddr,
			Password:   config.Backend.RedisPassword,
			DB:         config.Backend.RedisDB,
			MaxRetries: config.Backend.RedisMaxRetries,
			CacheName:  config.Backend.CacheName,
		})
	case common.BackendTypeLocal:
		b = lstore.NewLocalStore(&lstore.Options{Latency: config.Backend.LocalLatency}).Factory()
	default:
		return nil, fmt.Errorf("invalid backend %s", config.Backend.Type)
	}

	l, err := klog.New(klog.Config{Path: config.CommandLog.Path, Sample: config.CommandLog.Sample})
	if err != nil {
		return nil, fmt.Errorf("failed to create command log: %w", err)
	}

	return NewProxyServer(config, t, f, b, l), nil
}

// Serve runs the proxy listener, the admin endpoint and the periodic stats log
// until ctx is cancelled or one of them fails
func (s *ProxyServer) Serve(ctx context.Context) error {
	Logger.Infof("Starting %s proxy", s.frontend.Name())
	Logger.Infof("%s", s.config.String())
	defer func() { _ = s.commandLog.Sync() }()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.transport.Listen(ctx, s.config)
	})

	if s.config.AdminEndpoint != "" {
		admin := http.NewAdminServer(s.config.AdminEndpoint, s.config.LogLevel == "debug")
		g.Go(func() error {
			return admin.Serve(ctx)
		})
	}

	if s.config.StatsInterval > 0 {
		g.Go(func() error {
			metrics.LogStats(ctx, s.config.StatsInterval, Logger)
			return nil
		})
	}

	return g.Wait()
}

// Addr returns the address of the proxy listener, nil before Serve started listening
func (s *ProxyServer) Addr() net.Addr {
	return s.transport.Addr()
}

// handleConnection serves one client with a backend client of its own
func (s *ProxyServer) handleConnection(ctx context.Context, conn net.Conn) {
	b, err := s.backends()
	if err != nil {
		Logger.Errorf("Failed to create backend client for %s: %v", conn.RemoteAddr(), err)
		return
	}

	client := commands.NewClient(b, commands.Config{
		Timeout:       s.config.Timeout,
		CollectionTTL: s.config.CollectionTTL,
	}, s.commandLog)
	defer func() {
		if err := client.Close(); err != nil {
			Logger.Warningf("Failed to close backend client: %v", err)
		}
	}()

	if err := s.frontend.Serve(ctx, conn, client); err != nil && ctx.Err() == nil {
		Logger.Warningf("Session %s ended: %v", conn.RemoteAddr(), err)
	}
}
