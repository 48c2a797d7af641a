package components

import (
	"rota-claims/internal/domain/eligibility"
	"rota-claims/internal/pkg/clock"
	"rota-claims/internal/pkg/config"
	"rota-claims/internal/usecase/commands"
	"rota-claims/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseQueriesModule,
	usecaseCommandsModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	eligibility.NewRuleset,
	func(cfg config.Config) config.OffersConfig {
		return cfg.Offers
	},
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewShiftQueries,
		queries.NewOfferQueries,
		queries.NewEligibilityQueries,
	),
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewOfferCommands,
		commands.NewShiftCommands,
	),
)
