package main

import "time"

type Config struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT,required=true"`

	LogLevel string `env:"LOG_LEVEL,required=true"`

	JWTSecret string `env:"JWT_SECRET,required=true"`
	JWTIssuer string `env:"JWT_ISSUER,default=chat-broker"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`

	// Per-connection outbound buffer; a full buffer drops events for
	// that connection only.
	SinkBufferSize  int           `env:"SINK_BUFFER_SIZE,default=256"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	MaxMessageBytes int64         `env:"MAX_MESSAGE_BYTES,default=4096"`

	LivenessInterval time.Duration `env:"LIVENESS_INTERVAL,default=10s"`
	HeartbeatTimeout time.Duration `env:"HEARTBEAT_TIMEOUT,default=30s"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
}
