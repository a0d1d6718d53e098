package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/artifact-cms/internal/config"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "artifacts.db")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")
	t.Setenv("BCRYPT_COST", "4")
	t.Setenv("LOG_LEVEL", "error")
	return dbPath
}

func TestMigrateCommands(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 0")

	out, err = run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "version 2 (dirty: false)")

	out, err = run(t, "migrate", "down", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1")

	out, err = run(t, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "version 0")
}

func TestMigrateDown_BadSteps(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "migrate", "down", "zero")
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "seed", "--users", "2", "--artifacts", "1", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "created 2 users, 2 artifacts")
	assert.Equal(t, 2, strings.Count(out, "/ password123"))
}

func TestInvalidConfigFails(t *testing.T) {
	setupEnv(t)
	t.Setenv("JWT_SECRET", "")

	out, err := run(t, "migrate", "version")
	assert.Error(t, err)
	assert.Contains(t, out, "JWT_SECRET")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&config.Config{LogLevel: "warn", LogFormat: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])

	buf.Reset()
	newLogger(&config.Config{Env: "production", LogLevel: "info", LogFormat: "text"}, &buf).Info("prod")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "production always logs JSON")

	buf.Reset()
	newLogger(&config.Config{LogLevel: "info", LogFormat: "text"}, &buf).Info("dev")
	assert.Contains(t, buf.String(), "msg=dev")
}
