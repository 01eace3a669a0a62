package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, FeedNone, cfg.ChangeFeed)
	assert.Equal(t, 15, cfg.PageSize)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "document_changes", cfg.RabbitMQExchange)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("PAGE_SIZE", "25")
	t.Setenv("CHANGE_FEED", "redis")
	t.Setenv("TOKEN_TTL", "2h")

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, 25, cfg.PageSize)
	assert.Equal(t, FeedRedis, cfg.ChangeFeed)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "adminpanel.yaml")
	require.NoError(t, os.WriteFile(file, []byte("APP_PORT: \":9090\"\nPAGE_SIZE: 10\n"), 0o600))
	t.Setenv("CONFIG_FILE", file)

	cfg, err := LoadWith(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, 10, cfg.PageSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "STORE_DRIVER", "mongo"},
		{"unknown feed", "CHANGE_FEED", "kafka"},
		{"page size", "PAGE_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadWith(viper.New())
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := LoadWith(viper.New())
	assert.Error(t, err)
}
