package main

import (
	"go.uber.org/fx"

	"signflow/internal/config"
	deliveryhttp "signflow/internal/delivery/http"
	"signflow/internal/infrastructure/database"
	"signflow/internal/infrastructure/jobs"
	"signflow/internal/infrastructure/logger"
	"signflow/internal/infrastructure/pdf"
	"signflow/internal/infrastructure/redis"
	"signflow/internal/infrastructure/repository"
	"signflow/internal/infrastructure/twofactor"
	"signflow/internal/infrastructure/webhook"
	"signflow/internal/server"
	"signflow/internal/usecase"
)

func main() {
	fx.New(
		// Configuration
		config.Module,

		// Infrastructure
		logger.Module,
		database.Module,
		redis.Module,
		repository.Module,
		jobs.Module,
		webhook.Module,
		twofactor.Module,
		pdf.Module,

		// Business Logic
		usecase.Module,

		// Delivery
		deliveryhttp.Module,

		// Server
		server.Module,
	).Run()
}
