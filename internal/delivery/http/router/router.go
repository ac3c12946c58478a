package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"signflow/internal/config"
	"signflow/internal/delivery/http/handler"
	"signflow/internal/domain/entity"
)

type Router struct {
	app             *fiber.App
	config          *config.Config
	envelopeHandler *handler.EnvelopeHandler
	signingHandler  *handler.SigningHandler
	healthHandler   *handler.HealthHandler
}

func NewRouter(
	cfg *config.Config,
	envelopeHandler *handler.EnvelopeHandler,
	signingHandler *handler.SigningHandler,
	healthHandler *handler.HealthHandler,
) *Router {
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: customErrorHandler,
		BodyLimit:    32 * 1024 * 1024,
	})

	return &Router{
		app:             app,
		config:          cfg,
		envelopeHandler: envelopeHandler,
		signingHandler:  signingHandler,
		healthHandler:   healthHandler,
	}
}

func (r *Router) Setup() *fiber.App {
	// Middleware
	r.app.Use(recover.New())
	r.app.Use(requestid.New())
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization," + handler.HeaderUserID,
	}))

	if r.config.IsDevelopment() {
		r.app.Use(logger.New(logger.Config{
			Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		}))
	}

	// Health check route
	r.app.Get("/health", r.healthHandler.Health)

	// API v1 routes
	api := r.app.Group("/api/v1")
	{
		// Envelope management
		envelopes := api.Group("/envelopes")
		{
			envelopes.Post("", r.envelopeHandler.CreateEnvelope)
			envelopes.Get("/:id", r.envelopeHandler.GetEnvelope)
			envelopes.Post("/:id/send", r.envelopeHandler.SendDocument)
			envelopes.Get("/:id/audit-logs", r.envelopeHandler.ListAuditLogs)
		}

		// Recipient actions, addressed by recipient token
		sign := api.Group("/sign/:token")
		{
			sign.Post("/complete", r.signingHandler.Complete)
			sign.Post("/reject", r.signingHandler.Reject)
			sign.Post("/2fa", r.signingHandler.RequestSecondFactor)
		}
	}

	return r.app
}

func (r *Router) GetApp() *fiber.App {
	return r.app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(entity.NewErrorResponse(errorCodeFor(code), err.Error()))
}

func errorCodeFor(code int) string {
	switch code {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		return "INTERNAL_ERROR"
	}
}
