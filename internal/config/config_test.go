package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"PORT", "ORIGIN", "DATABASE_DSN", "CHAT_DB_DRIVER", "MONGO_URI", "APP_SECRET", "DEBUG", "OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, "8747", cfg.Server.Port)
	assert.Equal(t, "livechat.db", cfg.Database.DSN)
	assert.Equal(t, DriverSQL, cfg.ChatDatabase.Driver)
	assert.Equal(t, 256, cfg.Realtime.SendBuffer)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL())
	assert.False(t, cfg.TLS())
	assert.Equal(t, "livechat", cfg.Telemetry.ServiceName)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, 30*time.Second, cfg.Telemetry.ExportInterval())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"server": {"port": "9000", "origin": "http://app.local"},
		"database": {"dsn": "file.db"},
		"auth": {"secret": "from-file"},
		"realtime": {"send_buffer": 16},
		"debug_mode": true
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("PORT", "9100")
	t.Setenv("DEBUG", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, ":9100", cfg.Addr())
	assert.Equal(t, "http://app.local", cfg.Server.Origin)
	assert.Equal(t, "file.db", cfg.Database.DSN)
	assert.Equal(t, "from-file", cfg.Auth.Secret)
	assert.Equal(t, 16, cfg.Realtime.SendBuffer)
	assert.Equal(t, 40, cfg.Realtime.InboundBurst)
	assert.False(t, cfg.DebugMode)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "missing secret", body: `{}`},
		{name: "bad json", body: `{"server":`, env: map[string]string{"APP_SECRET": "x"}},
		{name: "unknown driver", body: `{"chat_database": {"driver": "redis"}}`, env: map[string]string{"APP_SECRET": "x"}},
		{name: "mongo without uri", body: `{"chat_database": {"driver": "mongo"}}`, env: map[string]string{"APP_SECRET": "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MongoFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_SECRET", "x")
	t.Setenv("CHAT_DB_DRIVER", DriverMongo)
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMongo, cfg.ChatDatabase.Driver)
	assert.Equal(t, "mongodb://localhost:27017", cfg.ChatDatabase.URI)
	assert.Equal(t, "messages", cfg.ChatDatabase.MessagesCollection)
}

func TestLoad_TelemetryFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_SECRET", "x")
	t.Setenv("OTEL_SERVICE_NAME", "livechat-eu")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "livechat-eu", cfg.Telemetry.ServiceName)
	assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)

	cfg.Telemetry.ExportIntervalSeconds = 0
	assert.Error(t, cfg.Validate())
}
