package crestdb

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Config defines the configuration for the client.
type Config struct {
	// Endpoint is the URL of the CrestDB server.
	Endpoint string `json:"endpoint"`
	// Database is the default database for requests. Optional.
	Database string `json:"database"`
	// User and Password are the credentials sent with each request.
	// Optional.
	User     string `json:"user"`
	Password string `json:"password"`
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration `json:"connect_timeout"`
	// ReadTimeout bounds a whole request/response exchange, including
	// streaming the insert body. Zero means no limit.
	ReadTimeout time.Duration `json:"read_timeout"`
	// Logger receives debug output. Optional; silent when nil.
	Logger *slog.Logger `json:"-"`
}

// LoadConfig builds a Config from CRESTDB_* environment variables
// (CRESTDB_ENDPOINT, CRESTDB_DATABASE, CRESTDB_USER, CRESTDB_PASSWORD,
// CRESTDB_CONNECT_TIMEOUT, CRESTDB_READ_TIMEOUT) and, when path is
// non-empty, a config file. Environment variables win over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CRESTDB")
	v.AutomaticEnv()
	v.SetDefault("endpoint", "http://localhost:8123")
	v.SetDefault("connect_timeout", "30s")
	v.SetDefault("read_timeout", "0")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return &Config{
		Endpoint:       v.GetString("endpoint"),
		Database:       v.GetString("database"),
		User:           v.GetString("user"),
		Password:       v.GetString("password"),
		ConnectTimeout: v.GetDuration("connect_timeout"),
		ReadTimeout:    v.GetDuration("read_timeout"),
	}, nil
}
