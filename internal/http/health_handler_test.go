package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/testsupport"
)

func TestHealthIndexAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	app := testsupport.CreateMinimalTestApp(t, dbManager.GetConnection())

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "ok", health["dbStatus"])
	assert.NotEmpty(t, health["timestamp"])
}

func TestNotFoundAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	app := testsupport.CreateMinimalTestApp(t, dbManager.GetConnection())

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/nothing?x=1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "Rota não encontrada: GET /api/nothing?x=1", decodeError(t, body))
}
