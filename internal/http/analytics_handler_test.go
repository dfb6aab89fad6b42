package http_test

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vitrine/internal/analytics"
	"vitrine/internal/contacts"
	"vitrine/internal/projects"
	"vitrine/internal/testsupport"
	"vitrine/internal/timeframe"
	"vitrine/internal/visits"
)

func TestAnalyticsRequireAuth(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	app := testsupport.CreateMinimalTestApp(t, db)

	t.Run("missing header", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/dashboard", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Token não fornecido", decodeError(t, body))
	})

	t.Run("malformed header", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/dashboard", "", withAuth("Token abc"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Token mal formatado", decodeError(t, body))
	})

	t.Run("invalid token", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/dashboard", "", withAuth("Bearer not-a-jwt"))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Token inválido ou expirado", decodeError(t, body))
	})
}

func TestAnalyticsDashboardAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	user := testsupport.CreateTestUser(t, db, "admin@example.com", "secret-password")
	app := testsupport.CreateMinimalTestApp(t, db)
	auth := withAuth(testsupport.AuthHeader(t, user))

	testsupport.CreateTestProject(t, db, projects.Project{Status: projects.StatusPublished, Views: 7})
	testsupport.CreateTestProject(t, db, projects.Project{Status: projects.StatusDraft, Views: 3})
	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/api/projects/public"})
	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/api/projects/public", CreatedAt: time.Now().AddDate(-2, 0, 0)})
	require.NoError(t, db.Create(&contacts.Contact{Name: "Ana", Email: "ana@example.com", Message: "Olá, tudo bem?"}).Error)

	t.Run("returns the summary", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/dashboard", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var summary analytics.DashboardSummary
		require.NoError(t, json.Unmarshal(body, &summary))
		assert.Equal(t, int64(1), summary.Visits.Today)
		assert.Equal(t, int64(1), summary.Projects.Total, "only published projects count")
		assert.Equal(t, int64(10), summary.Projects.TotalViews)
		assert.Equal(t, int64(1), summary.Contacts.Total)
		assert.Equal(t, int64(1), summary.Contacts.Unread)
	})

	t.Run("rejects an unknown period", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/dashboard?period=decade", "", auth)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Período inválido", decodeError(t, body))
	})
}

func TestAnalyticsVisitsAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	user := testsupport.CreateTestUser(t, db, "admin@example.com", "secret-password")
	app := testsupport.CreateMinimalTestApp(t, db)
	auth := withAuth(testsupport.AuthHeader(t, user))

	testsupport.CreateTestVisit(t, db, visits.Visit{})
	testsupport.CreateTestVisit(t, db, visits.Visit{})

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/visits?period=week", "", auth)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var series []timeframe.DateStat
	require.NoError(t, json.Unmarshal(body, &series))
	require.NotEmpty(t, series)

	var total int64
	for i, point := range series {
		total += point.Visits
		if i > 0 {
			assert.Less(t, series[i-1].Date, point.Date, "series must be ascending")
		}
	}
	assert.Equal(t, int64(2), total)
	assert.Equal(t, time.Now().UTC().Format(timeframe.DayLayout), series[len(series)-1].Date)
}

func TestAnalyticsBreakdownActions(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	user := testsupport.CreateTestUser(t, db, "admin@example.com", "secret-password")
	app := testsupport.CreateMinimalTestApp(t, db)
	auth := withAuth(testsupport.AuthHeader(t, user))

	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/a", Device: visits.StringPtr("desktop"), Browser: visits.StringPtr("Chrome"), Country: visits.StringPtr("BR")})
	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/a", Device: visits.StringPtr("desktop"), Browser: visits.StringPtr("Firefox"), Country: visits.StringPtr("BR")})
	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/b", Device: visits.StringPtr("mobile"), Browser: visits.StringPtr("Chrome")})

	t.Run("devices", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/devices?period=month", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var stats []analytics.DeviceStat
		require.NoError(t, json.Unmarshal(body, &stats))
		require.Len(t, stats, 2)
		assert.Equal(t, "desktop", stats[0].Device)
		assert.Equal(t, int64(2), stats[0].Count)
		assert.InDelta(t, 66.7, stats[0].Percentage, 0.001)
		assert.InDelta(t, 33.3, stats[1].Percentage, 0.001)
	})

	t.Run("browsers", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/browsers", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var stats []analytics.BrowserStat
		require.NoError(t, json.Unmarshal(body, &stats))
		require.Len(t, stats, 2)
		assert.Equal(t, "Chrome", stats[0].Browser)
		assert.Equal(t, int64(2), stats[0].Count)
	})

	t.Run("pages", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/pages?period=today", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var stats []analytics.PageStat
		require.NoError(t, json.Unmarshal(body, &stats))
		require.Len(t, stats, 2)
		assert.Equal(t, "/a", stats[0].Page)
		assert.Equal(t, int64(2), stats[0].Visits)
	})

	t.Run("countries skip unknown", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/countries?period=year", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var stats []analytics.CountryStat
		require.NoError(t, json.Unmarshal(body, &stats))
		require.Len(t, stats, 1)
		assert.Equal(t, int64(2), stats[0].Visits)
	})

	t.Run("referrers", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/referrers", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var stats []analytics.ReferrerStat
		require.NoError(t, json.Unmarshal(body, &stats))
	})

	t.Run("invalid period", func(t *testing.T) {
		for _, path := range []string{"devices", "browsers", "pages", "countries", "referrers", "visits"} {
			resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/"+path+"?period=forever", "", auth)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
			assert.Equal(t, "Período inválido", decodeError(t, body), path)
		}
	})
}

func TestAnalyticsTopProjectsAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	user := testsupport.CreateTestUser(t, db, "admin@example.com", "secret-password")
	app := testsupport.CreateMinimalTestApp(t, db)
	auth := withAuth(testsupport.AuthHeader(t, user))

	testsupport.CreateTestProject(t, db, projects.Project{Slug: "low", Status: projects.StatusPublished, Views: 1})
	testsupport.CreateTestProject(t, db, projects.Project{Slug: "high", Status: projects.StatusPublished, Views: 50})
	testsupport.CreateTestProject(t, db, projects.Project{Slug: "hidden", Status: projects.StatusDraft, Views: 99})

	t.Run("ranks published projects", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/top-projects", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var ranked []analytics.ProjectRank
		require.NoError(t, json.Unmarshal(body, &ranked))
		require.Len(t, ranked, 2)
		assert.Equal(t, "high", ranked[0].Slug)
		assert.Equal(t, "low", ranked[1].Slug)
	})

	t.Run("honours limit", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/top-projects?limit=1", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		var ranked []analytics.ProjectRank
		require.NoError(t, json.Unmarshal(body, &ranked))
		assert.Len(t, ranked, 1)
	})

	t.Run("rejects a bad limit", func(t *testing.T) {
		for _, limit := range []string{"0", "-3", "ten"} {
			resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/top-projects?limit="+limit, "", auth)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, limit)
			assert.Equal(t, "Limite inválido", decodeError(t, body), limit)
		}
	})
}

func TestAnalyticsRecentAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	user := testsupport.CreateTestUser(t, db, "admin@example.com", "secret-password")
	app := testsupport.CreateMinimalTestApp(t, db)
	auth := withAuth(testsupport.AuthHeader(t, user))

	now := time.Now()
	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/old", CreatedAt: now.Add(-time.Hour)})
	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/new", CreatedAt: now})
	require.NoError(t, db.Create(&contacts.Contact{Name: "Ana", Email: "ana@example.com", Message: "Olá, tudo bem?"}).Error)

	resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/recent?limit=5", "", auth)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var activity analytics.RecentActivity
	require.NoError(t, json.Unmarshal(body, &activity))
	require.Len(t, activity.Visits, 2)
	assert.Equal(t, "/new", activity.Visits[0].Page)
	require.Len(t, activity.Contacts, 1)
	assert.Equal(t, "Ana", activity.Contacts[0].Name)
}

func TestAnalyticsExportAction(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	testsupport.CleanAllTables(db)

	user := testsupport.CreateTestUser(t, db, "admin@example.com", "secret-password")
	app := testsupport.CreateMinimalTestApp(t, db)
	auth := withAuth(testsupport.AuthHeader(t, user))

	testsupport.CreateTestVisit(t, db, visits.Visit{Page: "/a,b", Device: visits.StringPtr("desktop")})

	t.Run("csv by default", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/export", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
		assert.Equal(t, `attachment; filename="analytics-month.csv"`, resp.Header.Get(fiber.HeaderContentDisposition))

		records, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"ID", "Página", "Dispositivo", "Navegador", "País", "Data"}, records[0])
		assert.Equal(t, "/a,b", records[1][1])
		assert.Equal(t, "desktop", records[1][2])
		assert.Equal(t, "", records[1][3])
	})

	t.Run("json", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/export?format=json&period=week", "", auth)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

		assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get(fiber.HeaderContentType))
		assert.Empty(t, resp.Header.Get(fiber.HeaderContentDisposition))

		var rows []map[string]any
		require.NoError(t, json.Unmarshal(body, &rows))
		assert.Len(t, rows, 1)
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/export?format=xml", "", auth)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Formato inválido", decodeError(t, body))
	})

	t.Run("rejects unknown period", func(t *testing.T) {
		resp, body := doRequest(t, app, fiber.MethodGet, "/api/analytics/export?period=ever", "", auth)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Período inválido", decodeError(t, body))
	})
}
