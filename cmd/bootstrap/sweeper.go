package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"rota-claims/internal/pkg/config"
	"rota-claims/internal/usecase/commands"
	"rota-claims/internal/usecase/shared"

	"go.uber.org/fx"
)

var SweeperModule = fx.Module("sweeper",
	fx.Invoke(StartSweeper),
)

// StartSweeper runs the offer expiry pass on a fixed interval and prunes
// stale idempotency keys while it is at it. Expiry also happens lazily on
// the accept path, so a missed tick delays cleanup but never correctness.
func StartSweeper(lc fx.Lifecycle, cfg config.Config, offerCommands commands.OfferCommands, uow shared.UnitOfWork) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(cfg.Offers.SweepInterval)
				defer ticker.Stop()

				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						sweep(ctx, offerCommands, uow)
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func sweep(ctx context.Context, offerCommands commands.OfferCommands, uow shared.UnitOfWork) {
	expired, err := offerCommands.ExpireOverdue(ctx)
	if err != nil {
		slog.Error("offer expiry sweep failed", "error", err.Error())
	} else if expired > 0 {
		slog.Info("expired overdue offers", "count", expired)
	}

	err = uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		deleted, err := tx.Idempotency().DeleteExpired(ctx, tx.DB())
		if err != nil {
			return err
		}
		if deleted > 0 {
			slog.Info("pruned expired idempotency keys", "count", deleted)
		}
		return nil
	})
	if err != nil {
		slog.Error("idempotency key prune failed", "error", err.Error())
	}
}
