package usecase

import "go.uber.org/fx"

var Module = fx.Module("usecase",
	fx.Provide(NewAutoSignResolver),
	fx.Provide(NewProgressionEngine),
	fx.Provide(NewSigningUsecase),
	fx.Provide(NewEnvelopeUsecase),
)
