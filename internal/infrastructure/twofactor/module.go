package twofactor

import (
	"go.uber.org/fx"

	"signflow/internal/infrastructure/redis"
	"signflow/internal/usecase"
)

func provideCodeStore(client *redis.RedisClient) codeStore {
	return client
}

func provideAuthValidator(svc Service) usecase.AuthValidator {
	return svc
}

func provideSecondFactorIssuer(svc Service) usecase.SecondFactorIssuer {
	return svc
}

var Module = fx.Module("twofactor",
	fx.Provide(provideCodeStore),
	fx.Provide(NewService),
	fx.Provide(provideAuthValidator),
	fx.Provide(provideSecondFactorIssuer),
)
