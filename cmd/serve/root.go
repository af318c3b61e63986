package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdUtil "github.com/ValentinKolb/kvproxy/cmd/util"
	"github.com/ValentinKolb/kvproxy/lib/commands"
	"github.com/ValentinKolb/kvproxy/proxy/common"
	"github.com/ValentinKolb/kvproxy/proxy/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the kvproxy server",
		Long:    `Start the kvproxy server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is KVPROXY_<flag> (e.g. KVPROXY_REDIS_ADDR=localhost:6379)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:6380", cmdUtil.WrapString("The address on which the proxy will listen (e.g. 0.0.0.0:6380 for tcp, /tmp/kvproxy.sock for unix)"))

	key = "transport"
	ServeCmd.PersistentFlags().String(key, "tcp", cmdUtil.WrapString("The transport of the proxy listener (tcp, unix)"))

	key = "protocol"
	ServeCmd.PersistentFlags().String(key, "resp", cmdUtil.WrapString("The wire protocol spoken with clients (resp, memcache)"))

	key = "backend"
	ServeCmd.PersistentFlags().String(key, "redis", cmdUtil.WrapString("The cache backend (redis, local). The local backend keeps all data in process memory and is meant for development"))

	key = "cache-name"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Namespace of all keys in the backend (keys are stored as <cache-name>:<key>)"))

	key = "redis-addr"
	ServeCmd.PersistentFlags().String(key, "localhost:6379", cmdUtil.WrapString("Address of the redis backend"))

	key = "redis-password"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Password of the redis backend"))

	key = "redis-db"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Database of the redis backend"))

	key = "redis-max-retries"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("Retries of the redis client for a failed call, all retries share the deadline of the call"))

	key = "timeout-ms"
	ServeCmd.PersistentFlags().Int(key, 200, cmdUtil.WrapString("Deadline of a single backend call in milliseconds"))

	key = "collection-ttl"
	ServeCmd.PersistentFlags().Duration(key, commands.DefaultCollectionTTL, cmdUtil.WrapString("Time to live set on lists and sets on every mutation"))

	key = "local-latency-ms"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("(local backend) Latency in milliseconds added to every backend call"))

	key = "admin-endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9180", cmdUtil.WrapString("The address of the admin endpoint serving /metrics and /healthz (empty to disable)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "klog-file"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Output file of the command log (empty for stdout)"))

	key = "klog-sample"
	ServeCmd.PersistentFlags().Uint64(key, 0, cmdUtil.WrapString("Write one command log line for every n commands (0 disables the command log)"))

	key = "stats-interval"
	ServeCmd.PersistentFlags().Duration(key, 0, cmdUtil.WrapString("Interval at which latency statistics are logged (0 disables them)"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY on client connections (only for tcp)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval of client connections (in seconds, only for tcp)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, -1, cmdUtil.WrapString("The linger time of client connections (in seconds, -1 keeps the OS default, only for tcp)"))

	key = "write-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The socket write buffer size of client connections (in KB, 0 keeps the OS default)"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The socket read buffer size of client connections (in KB, 0 keeps the OS default)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	config, err := readConfig()
	if err != nil {
		return err
	}
	*serveCmdConfig = *config
	return nil
}

// readConfig builds the server configuration from viper
func readConfig() (*common.ServerConfig, error) {
	config := &common.ServerConfig{
		Protocol: common.ProtocolType(viper.GetString("protocol")),
		Transport: common.ServerTransportConfig{
			Type:     common.TransportType(viper.GetString("transport")),
			Endpoint: viper.GetString("endpoint"),
			SocketConf: common.SocketConf{
				WriteBufferSize: viper.GetInt("write-buffer") * 1024,
				ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
			},
			TCPConf: common.TCPConf{
				TCPNoDelay:      viper.GetBool("tcp-nodelay"),
				TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
				TCPLingerSec:    viper.GetInt("tcp-linger"),
			},
		},
		Backend: common.BackendConfig{
			Type:            common.BackendType(viper.GetString("backend")),
			CacheName:       viper.GetString("cache-name"),
			RedisAddr:       viper.GetString("redis-addr"),
			RedisPassword:   viper.GetString("redis-password"),
			RedisDB:         viper.GetInt("redis-db"),
			RedisMaxRetries: viper.GetInt("redis-max-retries"),
			LocalLatency:    time.Duration(viper.GetInt("local-latency-ms")) * time.Millisecond,
		},
		Timeout:       time.Duration(viper.GetInt("timeout-ms")) * time.Millisecond,
		CollectionTTL: viper.GetDuration("collection-ttl"),
		AdminEndpoint: viper.GetString("admin-endpoint"),
		LogLevel:      viper.GetString("log-level"),
		CommandLog: common.CommandLogConfig{
			Path:   viper.GetString("klog-file"),
			Sample: viper.GetUint64("klog-sample"),
		},
		StatsInterval: viper.GetDuration("stats-interval"),
	}

	switch config.Transport.Type {
	case common.TransportTCP, common.TransportUnix:
	default:
		return nil, fmt.Errorf("invalid transport: %s (expected one of: tcp, unix)", config.Transport.Type)
	}

	switch config.Protocol {
	case common.ProtocolRESP, common.ProtocolMemcache:
	default:
		return nil, fmt.Errorf("invalid protocol: %s (expected one of: resp, memcache)", config.Protocol)
	}

	switch config.Backend.Type {
	case common.BackendTypeRedis, common.BackendTypeLocal:
	default:
		return nil, fmt.Errorf("invalid backend: %s (expected one of: redis, local)", config.Backend.Type)
	}

	if config.Timeout <= 0 {
		return nil, fmt.Errorf("timeout-ms must be positive")
	}
	if config.CollectionTTL <= 0 {
		return nil, fmt.Errorf("collection-ttl must be positive")
	}

	return config, nil
}

// run starts the proxy and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	if err := common.InitLoggers(*serveCmdConfig); err != nil {
		return err
	}

	s, err := server.New(*serveCmdConfig)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return s.Serve(ctx)
}
