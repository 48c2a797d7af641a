package components

import (
	"rota-claims/internal/handler"
	"rota-claims/internal/handler/api"
	"rota-claims/internal/handler/middleware"
	"rota-claims/internal/pkg/config"
	"rota-claims/internal/pkg/jwt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewOfferHandler,
		api.NewShiftHandler,
		func(svc *jwt.Service) middleware.TokenValidator { return svc },
		middleware.NewAuthMiddleware,
		func(client *redis.Client, cfg config.Config) *middleware.RateLimiter {
			return middleware.NewRateLimiter(client, cfg.RateLimit)
		},
	),
	fx.Invoke(handler.NewRouter),
)
