package common

import (
	"testing"
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerConfig_String(t *testing.T) {
	config := ServerConfig{
		Protocol:      ProtocolRESP,
		Transport:     ServerTransportConfig{Endpoint: "0.0.0.0:6380"},
		Backend:       BackendConfig{Type: BackendTypeRedis, RedisAddr: "localhost:6379", RedisPassword: "secret", CacheName: "c1"},
		Timeout:       200 * time.Millisecond,
		CollectionTTL: 15 * time.Minute,
		LogLevel:      "info",
	}

	out := config.String()

	assert.Contains(t, out, "0.0.0.0:6380")
	assert.Contains(t, out, "200ms")
	assert.Contains(t, out, "localhost:6379")
	assert.Contains(t, out, "disabled")
	assert.NotContains(t, out, "secret")
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}
