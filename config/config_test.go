package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "SQLite")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 20*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, "openai", cfg.LLMProvider)
}

func TestLoadRequiresSecretAndPostgresURI(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("POSTGRES_URI", "")
	_, err = Load()
	assert.ErrorContains(t, err, "POSTGRES_URI")
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDatabase(&Config{DBDriver: "oracle"})
	assert.ErrorContains(t, err, "unsupported")
}
