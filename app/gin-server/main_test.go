package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunFailsWithoutSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Equal(t, 1, run())
}

func TestRunReturnsAfterStartupFailure(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "yoodesk.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("REDIS_URL", "redis://:%zz@localhost:6379")

	assert.Equal(t, 1, run())
}
