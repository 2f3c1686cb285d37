package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/opsboard/internal/mock"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), args, &out)
	return out.String(), err
}

func useStorage(t *testing.T, driver string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	t.Setenv("OPSBOARD_STORAGE_DRIVER", driver)
	t.Setenv("OPSBOARD_STORAGE_PATH", t.TempDir())
	t.Setenv("OPSBOARD_BASE_URL", "")
	t.Setenv("OPSBOARD_LOG_LEVEL", "error")
	t.Setenv("OPSBOARD_BCRYPT_COST", "4")
}

func TestCommandsRequireSession(t *testing.T) {
	useStorage(t, "memory")

	_, err := run(t, "incidents", "list")
	require.ErrorContains(t, err, "not signed in")

	_, err = run(t, "deployments", "list")
	require.ErrorContains(t, err, "not signed in")
}

func TestLoginRejectsBadCode(t *testing.T) {
	useStorage(t, "memory")

	_, err := run(t, "login", "--email", "admin@test.com", "--password", "admin123", "--code", "000000")
	require.Error(t, err)
}

func TestSessionSurvivesBetweenRuns(t *testing.T) {
	useStorage(t, "badger")

	out, err := run(t, "login", "--email", "admin@test.com", "--password", "admin123", "--code", mock.MFACode)
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Admin User")

	out, err = run(t, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@test.com")

	out, err = run(t, "incidents", "list", "--severity", "critical")
	require.NoError(t, err)
	assert.Contains(t, out, "critical")
	assert.Contains(t, out, "(filtered)")

	// Filters are remembered.
	out, err = run(t, "incidents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "(filtered)")
	assert.NotContains(t, out, "medium")

	out, err = run(t, "audit", "list", "--action", "login")
	require.NoError(t, err)
	assert.Contains(t, out, "admin@test.com")

	_, err = run(t, "logout")
	require.NoError(t, err)
	_, err = run(t, "whoami")
	require.ErrorContains(t, err, "not signed in")
}

func TestLogsTailStopsAfterDuration(t *testing.T) {
	useStorage(t, "memory")

	_, err := run(t, "logs", "tail", "--for", "20ms")
	require.NoError(t, err)
}
