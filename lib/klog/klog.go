// Package klog writes the command log: one structured line per completed
// command with the command name, its key(s), the outcome status and the size
// of the reply sent to the client.
package klog

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Status is the outcome of a command as recorded in the command log
type Status string

const (
	StatusHit          Status = "hit"
	StatusMiss         Status = "miss"
	StatusStored       Status = "stored"
	StatusDeleted      Status = "deleted"
	StatusInvalidInput Status = "invalid_input"
	StatusTimeout      Status = "timeout"
	StatusRateLimited  Status = "ratelimited"
	StatusServerError  Status = "server_error"
)

// Config configures the command log
type Config struct {
	// Path is the output file, "" or "stdout" writes to stdout
	Path string
	// Sample logs one in every Sample commands, 0 disables the command log
	Sample uint64
}

// Logger writes command log lines
type Logger struct {
	logger  *zap.Logger
	sample  uint64
	counter atomic.Uint64
}

// New creates a command log from config
func New(config Config) (*Logger, error) {
	if config.Sample == 0 {
		return Nop(), nil
	}

	path := config.Path
	if path == "" {
		path = "stdout"
	}

	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "ts"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder

	zc := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding:         "json",
		EncoderConfig:    encoder,
		OutputPaths:      []string{path},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return NewWithLogger(l, config.Sample), nil
}

// NewWithLogger creates a command log on top of an existing zap logger
func NewWithLogger(l *zap.Logger, sample uint64) *Logger {
	if sample == 0 {
		sample = 1
	}
	return &Logger{logger: l.Named("klog"), sample: sample}
}

// Nop returns a command log that discards everything
func Nop() *Logger {
	return &Logger{logger: zap.NewNop(), sample: 1}
}

// Log records a completed command.
// keys are the keys the command addressed, size the number of bytes of the reply.
func (l *Logger) Log(command string, keys [][]byte, status Status, size int) {
	if l == nil {
		return
	}
	if l.sample > 1 && l.counter.Add(1)%l.sample != 0 {
		return
	}

	ks := make([]string, len(keys))
	for i, k := range keys {
		ks[i] = string(k)
	}

	l.logger.Info(command,
		zap.Strings("keys", ks),
		zap.String("status", string(status)),
		zap.Int("size", size),
	)
}

// Sync flushes buffered log lines
func (l *Logger) Sync() error {
	if l == nil {
		return nil
	}
	return l.logger.Sync()
}
