package http

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"

	"vitrine/internal/analytics"
	"vitrine/internal/timeframe"
)

func analyticsService(ctx *cartridge.Context) *analytics.Service {
	return analytics.NewService(analytics.NewGormStore(ctx.DB()), nil, ctx.Logger)
}

func badRequest(ctx *cartridge.Context, msg string) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func serverError(ctx *cartridge.Context, msg string, err error) error {
	ctx.Logger.Error(msg,
		slog.String("path", ctx.Path()),
		slog.Any("error", err))
	return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}

// periodParam validates ?period. An absent value resolves to the 30 day window.
func periodParam(ctx *cartridge.Context) (timeframe.Period, bool) {
	period, err := timeframe.ParsePeriod(ctx.Query("period"))
	if err != nil {
		return "", false
	}
	return period, true
}

// limitParam validates ?limit. An absent value yields fallback.
func limitParam(ctx *cartridge.Context, fallback int) (int, bool) {
	raw := strings.TrimSpace(ctx.Query("limit"))
	if raw == "" {
		return fallback, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	return limit, true
}

// AnalyticsDashboardAction returns the headline counts. The period is
// validated but the counts always use their own anchors.
func AnalyticsDashboardAction(ctx *cartridge.Context) error {
	if _, ok := periodParam(ctx); !ok {
		return badRequest(ctx, "Período inválido")
	}

	summary, err := analyticsService(ctx).Dashboard(ctx.UserContext())
	if err != nil {
		return serverError(ctx, "Erro ao buscar estatísticas", err)
	}
	return ctx.JSON(summary)
}

func AnalyticsVisitsAction(ctx *cartridge.Context) error {
	period, ok := periodParam(ctx)
	if !ok {
		return badRequest(ctx, "Período inválido")
	}

	series, err := analyticsService(ctx).VisitsOverTime(ctx.UserContext(), period)
	if err != nil {
		return serverError(ctx, "Erro ao buscar dados de visitas", err)
	}
	return ctx.JSON(series)
}

func AnalyticsTopProjectsAction(ctx *cartridge.Context) error {
	limit, ok := limitParam(ctx, analytics.DefaultTopLimit)
	if !ok {
		return badRequest(ctx, "Limite inválido")
	}

	ranked, err := analyticsService(ctx).TopProjects(ctx.UserContext(), limit)
	if err != nil {
		return serverError(ctx, "Erro ao buscar projetos mais vistos", err)
	}
	return ctx.JSON(ranked)
}

func AnalyticsDevicesAction(ctx *cartridge.Context) error {
	period, ok := periodParam(ctx)
	if !ok {
		return badRequest(ctx, "Período inválido")
	}

	stats, err := analyticsService(ctx).Devices(ctx.UserContext(), period)
	if err != nil {
		return serverError(ctx, "Erro ao buscar estatísticas de dispositivos", err)
	}
	return ctx.JSON(stats)
}

func AnalyticsBrowsersAction(ctx *cartridge.Context) error {
	period, ok := periodParam(ctx)
	if !ok {
		return badRequest(ctx, "Período inválido")
	}

	stats, err := analyticsService(ctx).Browsers(ctx.UserContext(), period)
	if err != nil {
		return serverError(ctx, "Erro ao buscar estatísticas de navegadores", err)
	}
	return ctx.JSON(stats)
}

func AnalyticsPagesAction(ctx *cartridge.Context) error {
	period, ok := periodParam(ctx)
	if !ok {
		return badRequest(ctx, "Período inválido")
	}

	stats, err := analyticsService(ctx).Pages(ctx.UserContext(), period)
	if err != nil {
		return serverError(ctx, "Erro ao buscar estatísticas de páginas", err)
	}
	return ctx.JSON(stats)
}

func AnalyticsCountriesAction(ctx *cartridge.Context) error {
	period, ok := periodParam(ctx)
	if !ok {
		return badRequest(ctx, "Período inválido")
	}

	stats, err := analyticsService(ctx).Countries(ctx.UserContext(), period)
	if err != nil {
		return serverError(ctx, "Erro ao buscar estatísticas por país", err)
	}
	return ctx.JSON(stats)
}

// AnalyticsReferrersAction groups visits by the site that sent them.
func AnalyticsReferrersAction(ctx *cartridge.Context) error {
	period, ok := periodParam(ctx)
	if !ok {
		return badRequest(ctx, "Período inválido")
	}

	stats, err := analyticsService(ctx).Referrers(ctx.UserContext(), period)
	if err != nil {
		return serverError(ctx, "Erro ao buscar estatísticas de origem", err)
	}
	return ctx.JSON(stats)
}

func AnalyticsRecentAction(ctx *cartridge.Context) error {
	limit, ok := limitParam(ctx, analytics.DefaultRecentLimit)
	if !ok {
		return badRequest(ctx, "Limite inválido")
	}

	activity, err := analyticsService(ctx).Recent(ctx.UserContext(), limit)
	if err != nil {
		return serverError(ctx, "Erro ao buscar atividades recentes", err)
	}
	return ctx.JSON(activity)
}

// AnalyticsExportAction streams the visits of a period as CSV or JSON.
// The body is buffered so a failed query still answers with a JSON error.
func AnalyticsExportAction(ctx *cartridge.Context) error {
	period, err := analytics.ParseExportPeriod(ctx.Query("period"))
	if err != nil {
		return badRequest(ctx, "Período inválido")
	}
	format, err := analytics.ParseFormat(ctx.Query("format"))
	if err != nil {
		return badRequest(ctx, "Formato inválido")
	}

	var buf bytes.Buffer
	if err := analyticsService(ctx).Export(ctx.UserContext(), period, format, &buf); err != nil {
		if errors.Is(err, analytics.ErrInvalidFormat) || errors.Is(err, timeframe.ErrInvalidPeriod) {
			return badRequest(ctx, err.Error())
		}
		return serverError(ctx, "Erro ao exportar dados", err)
	}

	ctx.Set(fiber.HeaderContentType, format.ContentType()+"; charset=utf-8")
	if format == analytics.FormatCSV {
		ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="`+analytics.ExportFilename(period)+`"`)
	}
	return ctx.Send(buf.Bytes())
}
