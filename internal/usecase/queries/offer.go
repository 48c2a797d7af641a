package queries

import (
	"context"

	"rota-claims/internal/infra"
	"rota-claims/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrOfferNotFound = errs.New("offer not found")

type OfferReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*OfferView, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*OfferView, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*OfferView, error)
}

type OfferQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*OfferView, error)
	ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*OfferView, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*OfferView, error)
}

type offerQueriesImpl struct {
	store OfferReadStore
}

func NewOfferQueries(store OfferReadStore) OfferQueries {
	return &offerQueriesImpl{store: store}
}

func (q *offerQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*OfferView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, errs.Wrap(err, "failed to find offer")
	}
	return view, nil
}

func (q *offerQueriesImpl) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*OfferView, error) {
	views, err := q.store.ListByShift(ctx, shiftID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list shift offers")
	}
	return views, nil
}

func (q *offerQueriesImpl) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*OfferView, error) {
	views, err := q.store.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list batch offers")
	}
	return views, nil
}
