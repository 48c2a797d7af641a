package components

import (
	"rota-claims/internal/infra/db"
	"rota-claims/internal/infra/events"
	"rota-claims/internal/infra/readstore"
	"rota-claims/internal/infra/uow"
	"rota-claims/internal/usecase/commands"
	"rota-claims/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		uow.NewPostgresUoW,
		fx.Annotate(
			readstore.NewShiftReadStore,
			fx.As(new(queries.ShiftReadStore)),
		),
		fx.Annotate(
			readstore.NewOfferReadStore,
			fx.As(new(queries.OfferReadStore)),
		),
		fx.Annotate(
			readstore.NewStaffReadStore,
			fx.As(new(queries.StaffReadStore)),
		),
		fx.Annotate(
			events.NewRedisPublisher,
			fx.As(new(commands.EventPublisher)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
