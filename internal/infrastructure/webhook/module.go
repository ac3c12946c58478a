package webhook

import (
	"context"

	"go.uber.org/fx"

	"signflow/internal/usecase"
)

func provideWebhookEmitter(emitter Emitter) usecase.WebhookEmitter {
	return emitter
}

var Module = fx.Module("webhook",
	fx.Provide(NewEmitter),
	fx.Provide(provideWebhookEmitter),
	fx.Invoke(func(lc fx.Lifecycle, emitter Emitter) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				emitter.Wait()
				return nil
			},
		})
	}),
)
