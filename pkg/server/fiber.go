package server

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"codearena/pkg/apperr"
	"codearena/pkg/middleware"
)

// NewApp builds the Fiber application with the shared middleware chain and
// the central error handler. All typed service errors resolve to their HTTP
// status here; anything else is logged and hidden behind a 500.
func NewApp(name string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:           name,
		ReduceMemoryUsage: true,
		ErrorHandler:      errorHandler,
	})

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(cors.New(middleware.CORSConfig()))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": name})
	})

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(appErr)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":   "REQUEST_ERROR",
			"message": fiberErr.Message,
		})
	}

	log.Printf("[HTTP] unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	internal := apperr.Internal()
	return c.Status(internal.Status).JSON(internal)
}
