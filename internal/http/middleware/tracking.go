package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"vitrine/internal/visits"
)

// TrackVisits records a visit for every request it wraps. The handler runs
// first and recording never changes its response.
func TrackVisits(recorder *visits.Recorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// fiber reuses request buffers once the handler returns
		hit := visits.Hit{
			Page:      utils.CopyString(c.Path()),
			UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
			Referrer:  utils.CopyString(c.Get(fiber.HeaderReferer)),
			IP:        visits.ClientIP(utils.CopyString(c.Get(fiber.HeaderXForwardedFor)), c.IP()),
		}

		err := c.Next()
		recorder.Record(hit)
		return err
	}
}
