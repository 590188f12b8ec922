package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DriverSQL   = "sql"
	DriverMongo = "mongo"
)

type ServerConfig struct {
	Port     string `json:"port"`
	Origin   string `json:"origin"`
	CertFile string `json:"cert_file"`
	KeyFile  string `json:"key_file"`
}

type DatabaseConfig struct {
	DSN string `json:"dsn"`
}

// ChatDatabaseConfig selects where messages live. Users and channels always
// stay in the relational database.
type ChatDatabaseConfig struct {
	Driver             string `json:"driver"`
	URI                string `json:"uri"`
	Database           string `json:"database"`
	MessagesCollection string `json:"messages_collection"`
}

type AuthConfig struct {
	Secret        string `json:"secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

type RealtimeConfig struct {
	SendBuffer   int     `json:"send_buffer"`
	InboundRate  float64 `json:"inbound_rate"`
	InboundBurst int     `json:"inbound_burst"`
}

// TelemetryConfig controls metric export. Metrics are pushed over OTLP/gRPC
// only when OTLPEndpoint (host:port) is set.
type TelemetryConfig struct {
	ServiceName           string `json:"service_name"`
	OTLPEndpoint          string `json:"otlp_endpoint"`
	ExportIntervalSeconds int    `json:"export_interval_seconds"`
}

func (t TelemetryConfig) ExportInterval() time.Duration {
	return time.Duration(t.ExportIntervalSeconds) * time.Second
}

type Config struct {
	Server       ServerConfig       `json:"server"`
	Database     DatabaseConfig     `json:"database"`
	ChatDatabase ChatDatabaseConfig `json:"chat_database"`
	Auth         AuthConfig         `json:"auth"`
	Realtime     RealtimeConfig     `json:"realtime"`
	Telemetry    TelemetryConfig    `json:"telemetry"`
	DebugMode    bool               `json:"debug_mode"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:   "8747",
			Origin: "http://localhost:5173",
		},
		Database: DatabaseConfig{DSN: "livechat.db"},
		ChatDatabase: ChatDatabaseConfig{
			Driver:             DriverSQL,
			Database:           "livechat",
			MessagesCollection: "messages",
		},
		Auth: AuthConfig{TokenTTLHours: 72},
		Realtime: RealtimeConfig{
			SendBuffer:   256,
			InboundRate:  20,
			InboundBurst: 40,
		},
		Telemetry: TelemetryConfig{
			ServiceName:           "livechat",
			ExportIntervalSeconds: 30,
		},
	}
}

// Load reads the JSON file at path over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := json.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ORIGIN"); v != "" {
		c.Server.Origin = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("CHAT_DB_DRIVER"); v != "" {
		c.ChatDatabase.Driver = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.ChatDatabase.URI = v
	}
	if v := os.Getenv("APP_SECRET"); v != "" {
		c.Auth.Secret = v
	}
	if v := os.Getenv("OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.OTLPEndpoint = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DebugMode = b
		}
	}
}

func (c *Config) Validate() error {
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required (APP_SECRET)")
	}
	if c.Auth.TokenTTLHours <= 0 {
		return errors.New("auth token_ttl_hours must be positive")
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	switch c.ChatDatabase.Driver {
	case DriverSQL:
	case DriverMongo:
		if c.ChatDatabase.URI == "" {
			return errors.New("mongo uri is required when chat_database.driver is mongo")
		}
	default:
		return fmt.Errorf("unknown chat database driver %q", c.ChatDatabase.Driver)
	}
	if c.Realtime.SendBuffer <= 0 {
		return errors.New("realtime send_buffer must be positive")
	}
	if c.Telemetry.OTLPEndpoint != "" && c.Telemetry.ExportIntervalSeconds <= 0 {
		return errors.New("telemetry export_interval_seconds must be positive when exporting")
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

// TLS reports whether both certificate files are configured.
func (c *Config) TLS() bool {
	return c.Server.CertFile != "" && c.Server.KeyFile != ""
}
