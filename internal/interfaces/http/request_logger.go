package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/ventas-api/pkg/logger"
)

// RequestLogger middleware que registra cada petición y su respuesta.
// Para GET se registran los query params; para el resto, el tamaño del body.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		event := log.Info().
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("duration", time.Since(start))
		if c.Method() == fiber.MethodGet {
			event = event.Str("query", string(c.Request().URI().QueryString()))
		} else {
			event = event.Int("body_bytes", len(c.Body()))
		}
		event.Msg("petición atendida")

		return err
	}
}
