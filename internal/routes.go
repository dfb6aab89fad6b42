package internal

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"
	"gorm.io/gorm"

	"vitrine/internal/config"
	"vitrine/internal/http"
	"vitrine/internal/http/middleware"
	"vitrine/internal/pkg/geoip"
	"vitrine/internal/settings"
	"vitrine/internal/visits"
)

// publicCORSConfig is shared by the endpoints the portfolio site calls from the browser.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,POST,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referer, User-Agent",
}

// NewVisitRecorder builds the recorder the tracked routes share. Countries stay
// empty until the locator has a GeoLite database loaded.
func NewVisitRecorder(cfg *config.Config, db *gorm.DB, logger *slog.Logger, locator *geoip.Locator) *visits.Recorder {
	if locator == nil {
		locator = geoip.NewLocator(cfg.GeoDBPath, logger)
	}
	if !locator.Enabled() {
		logger.Info("GeoLite database not available, countries will not be recorded",
			slog.String("path", cfg.GeoDBPath))
	}

	return visits.NewRecorder(db, logger,
		visits.WithEnabled(cfg.TrackingEnabled),
		visits.WithExcluder(settings.NewIPExclusions(db, logger)),
		visits.WithCountryResolver(locator),
	)
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	recorder := NewVisitRecorder(cfg, srv.GetDBManager().GetConnection(), srv.GetLogger(), nil)
	MountRoutesWithRecorder(srv, recorder)
}

// MountRoutesWithRecorder mounts every route with an explicit visit recorder.
func MountRoutesWithRecorder(srv *cartridge.Server, recorder *visits.Recorder) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()

	// Rate limiting would interfere with development and tests
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// Prevents brute force login attempts
	loginRateLimit := cfg.LoginRatePerMinute
	if loginRateLimit <= 0 {
		loginRateLimit = 10
	}
	authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(loginRateLimit),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Public site endpoints record a visit after the handler runs
	trackedConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{middleware.TrackVisits(recorder)},
		CORSConfig:       publicCORSConfig,
	}

	publicConfig := &cartridge.RouteConfig{
		EnableCORS: true,
		CORSConfig: publicCORSConfig,
	}

	loginConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{authRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	adminConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{middleware.RequireAuth(http.TokenIssuer(cfg), logger)},
		CORSConfig:       publicCORSConfig,
	}

	preflight := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === HEALTH ===
	srv.Get("/api/health", http.HealthIndexAction)
	srv.Head("/api/health", http.HealthIndexAction)

	// === AUTHENTICATION ===
	srv.Post("/api/auth/login", http.LoginAction, loginConfig)
	srv.Get("/api/auth/me", http.MeAction, adminConfig)

	// === PUBLIC SITE ===
	srv.Get("/api/projects/public", http.PublicProjectsAction, trackedConfig)
	srv.Get("/api/projects/public/:slug", http.PublicProjectAction, trackedConfig)
	srv.Get("/api/banners/active", http.ActiveBannersAction, trackedConfig)
	srv.Post("/api/contacts", http.CreateContactAction, publicConfig)

	// === ADMIN ANALYTICS ===
	srv.Get("/api/analytics/dashboard", http.AnalyticsDashboardAction, adminConfig)
	srv.Get("/api/analytics/visits", http.AnalyticsVisitsAction, adminConfig)
	srv.Get("/api/analytics/top-projects", http.AnalyticsTopProjectsAction, adminConfig)
	srv.Get("/api/analytics/devices", http.AnalyticsDevicesAction, adminConfig)
	srv.Get("/api/analytics/browsers", http.AnalyticsBrowsersAction, adminConfig)
	srv.Get("/api/analytics/pages", http.AnalyticsPagesAction, adminConfig)
	srv.Get("/api/analytics/countries", http.AnalyticsCountriesAction, adminConfig)
	srv.Get("/api/analytics/referrers", http.AnalyticsReferrersAction, adminConfig)
	srv.Get("/api/analytics/recent", http.AnalyticsRecentAction, adminConfig)
	srv.Get("/api/analytics/export", http.AnalyticsExportAction, adminConfig)

	srv.Options("/api/*", preflight, publicConfig)

	srv.App().Use(http.NotFoundAction)
}
