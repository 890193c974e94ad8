package config

import "time"

// ChatConfig tunes the in-memory broadcaster.
type ChatConfig struct {
	// SendBuffer is the capacity of each user's delivery mailbox; messages
	// beyond it are dropped for that recipient.
	SendBuffer int `mapstructure:"send_buffer" yaml:"send_buffer"`
	// EchoSelf controls whether users receive their own content messages
	// and join notices.
	EchoSelf bool `mapstructure:"echo_self" yaml:"echo_self"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	MaxMessageBytes   int64         `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL            time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	Chat              ChatConfig    `mapstructure:"chat" yaml:"chat"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		MaxMessageBytes:   1 << 20,
		DatabasePath:      "roomchat.db",
		JWTSecret:         "change-me",
		JWTIssuer:         "roomchat",
		JWTAudience:       "roomchat",
		JWTTTL:            24 * time.Hour,
		Chat: ChatConfig{
			SendBuffer: 128,
			EchoSelf:   true,
		},
	}
}
