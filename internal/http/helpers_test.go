package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type requestOption func(*http.Request)

func withAuth(header string) requestOption {
	return func(req *http.Request) {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}
}

func withHeader(key, value string) requestOption {
	return func(req *http.Request) {
		req.Header.Set(key, value)
	}
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string, opts ...requestOption) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := app.Test(req, 30000)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeError(t *testing.T, body []byte) string {
	t.Helper()

	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload), "body: %s", body)
	msg, _ := payload["error"].(string)
	return msg
}
