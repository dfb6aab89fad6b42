package internal

import (
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge/testsupport"
	"github.com/stretchr/testify/require"
)

func findRoute(routes []fiber.Route, method, path string) *fiber.Route {
	for idx := range routes {
		if routes[idx].Method == method && routes[idx].Path == path {
			return &routes[idx]
		}
	}
	return nil
}

func TestLoginRouteRateLimited(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	loginRoute := findRoute(routes, fiber.MethodPost, "/api/auth/login")
	require.NotNil(t, loginRoute, "expected login route to be registered")

	// Outside production the limiter is wrapped in a pass-through closure
	hasRateLimiter := false
	var handlerNames []string
	for _, handler := range loginRoute.Handlers {
		name := runtime.FuncForPC(reflect.ValueOf(handler).Pointer()).Name()
		handlerNames = append(handlerNames, name)
		if strings.Contains(name, "middleware/limiter") || strings.Contains(name, "MountRoutesWithRecorder.func") {
			hasRateLimiter = true
			break
		}
	}

	require.Truef(t, hasRateLimiter, "expected rate limiter middleware for login route, handlers: %v", handlerNames)
}

func TestAnalyticsRoutesRegistered(t *testing.T) {
	srv := testsupport.NewTestServer(t, testsupport.TestServerOptions{
		RouteMountFunc: MountAppRoutes,
	})
	routes := srv.App.GetRoutes(true)

	for _, path := range []string{
		"/api/analytics/dashboard",
		"/api/analytics/visits",
		"/api/analytics/top-projects",
		"/api/analytics/devices",
		"/api/analytics/browsers",
		"/api/analytics/pages",
		"/api/analytics/countries",
		"/api/analytics/referrers",
		"/api/analytics/recent",
		"/api/analytics/export",
	} {
		require.NotNilf(t, findRoute(routes, fiber.MethodGet, path), "expected %s to be registered", path)
	}
}
