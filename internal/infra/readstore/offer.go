package readstore

import (
	"context"

	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"
	"rota-claims/internal/pkg/pgconv"
	"rota-claims/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OfferReadStore struct {
	db db.DBTX
}

func NewOfferReadStore(db db.DBTX) *OfferReadStore {
	return &OfferReadStore{db: db}
}

const findOfferByIDSQL = `
SELECT id, shift_id, recipient_id, batch_id, ruleset_version, status, sent_at, accepted_at
FROM offers
WHERE id = $1
`

func (r *OfferReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.OfferView, error) {
	row := r.db.QueryRow(ctx, findOfferByIDSQL, id)
	view, err := scanOfferView(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("offer not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find offer by ID", err)
	}
	return view, nil
}

const listOffersByShiftSQL = `
SELECT id, shift_id, recipient_id, batch_id, ruleset_version, status, sent_at, accepted_at
FROM offers
WHERE shift_id = $1
ORDER BY sent_at, id
`

func (r *OfferReadStore) ListByShift(ctx context.Context, shiftID uuid.UUID) ([]*queries.OfferView, error) {
	rows, err := r.db.Query(ctx, listOffersByShiftSQL, shiftID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list shift offers", err)
	}
	defer rows.Close()

	views := make([]*queries.OfferView, 0)
	for rows.Next() {
		view, err := scanOfferView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan offer row", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read offer rows", err)
	}
	return views, nil
}

const listOffersByBatchSQL = `
SELECT id, shift_id, recipient_id, batch_id, ruleset_version, status, sent_at, accepted_at
FROM offers
WHERE batch_id = $1
ORDER BY sent_at, id
`

func (r *OfferReadStore) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]*queries.OfferView, error) {
	rows, err := r.db.Query(ctx, listOffersByBatchSQL, batchID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list batch offers", err)
	}
	defer rows.Close()

	views := make([]*queries.OfferView, 0)
	for rows.Next() {
		view, err := scanOfferView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan offer row", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read offer rows", err)
	}
	return views, nil
}

func scanOfferView(row pgx.Row) (*queries.OfferView, error) {
	var view queries.OfferView
	err := row.Scan(
		&view.ID, &view.ShiftID, &view.RecipientID, &view.BatchID, &view.RulesetVersion,
		&view.Status, &view.SentAt, &view.AcceptedAt,
	)
	if err != nil {
		return nil, err
	}
	return &view, nil
}
