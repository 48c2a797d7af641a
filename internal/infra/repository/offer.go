package repository

import (
	"context"
	"time"

	"rota-claims/internal/domain/offer"
	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"

	"github.com/google/uuid"
)

type OfferRepository struct{}

func NewOfferRepository() *OfferRepository {
	return &OfferRepository{}
}

const insertOfferSQL = `
INSERT INTO offers (id, shift_id, recipient_id, batch_id, ruleset_version, status, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// CreateBatch runs inside the caller's transaction; a failing insert rolls
// back every offer in the round.
func (r *OfferRepository) CreateBatch(ctx context.Context, tx db.DBTX, offers []*offer.Offer) error {
	for _, o := range offers {
		if _, err := tx.Exec(ctx, insertOfferSQL,
			o.ID(), o.ShiftID(), o.RecipientID(), o.BatchID(), o.RulesetVersion(),
			o.Status().String(), o.SentAt()); err != nil {
			return infra.WrapRepoErr("failed to create offer", err, pgErrorKind(err))
		}
	}
	return nil
}

const markOfferAcceptedSQL = `
UPDATE offers
SET status = 'accepted', accepted_at = $2
WHERE id = $1 AND status = 'sent'
`

func (r *OfferRepository) MarkAccepted(ctx context.Context, tx db.DBTX, offerID uuid.UUID, at time.Time) error {
	if _, err := tx.Exec(ctx, markOfferAcceptedSQL, offerID, at); err != nil {
		return infra.WrapRepoErr("failed to mark offer accepted", err, pgErrorKind(err))
	}
	return nil
}

// Only a sent offer can close; settled rows are untouched so the call is
// safe to repeat.
const closeOfferSQL = `
UPDATE offers
SET status = 'closed'
WHERE id = $1 AND status = 'sent'
`

func (r *OfferRepository) Close(ctx context.Context, tx db.DBTX, offerID uuid.UUID) error {
	if _, err := tx.Exec(ctx, closeOfferSQL, offerID); err != nil {
		return infra.WrapRepoErr("failed to close offer", err, pgErrorKind(err))
	}
	return nil
}

const closeSiblingOffersSQL = `
UPDATE offers
SET status = 'closed'
WHERE shift_id = $1 AND id <> $2 AND status = 'sent'
`

func (r *OfferRepository) CloseSiblings(ctx context.Context, tx db.DBTX, shiftID, excludeOfferID uuid.UUID) (int64, error) {
	tag, err := tx.Exec(ctx, closeSiblingOffersSQL, shiftID, excludeOfferID)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to close sibling offers", err, pgErrorKind(err))
	}
	return tag.RowsAffected(), nil
}

const markOfferExpiredSQL = `
UPDATE offers
SET status = 'expired'
WHERE id = $1 AND status = 'sent'
`

func (r *OfferRepository) MarkExpired(ctx context.Context, tx db.DBTX, offerID uuid.UUID) error {
	if _, err := tx.Exec(ctx, markOfferExpiredSQL, offerID); err != nil {
		return infra.WrapRepoErr("failed to mark offer expired", err, pgErrorKind(err))
	}
	return nil
}

const expireOverdueOffersSQL = `
UPDATE offers
SET status = 'expired'
WHERE status = 'sent' AND sent_at < $1
`

func (r *OfferRepository) ExpireOverdue(ctx context.Context, tx db.DBTX, cutoff time.Time) (int64, error) {
	tag, err := tx.Exec(ctx, expireOverdueOffersSQL, cutoff)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to expire overdue offers", err, pgErrorKind(err))
	}
	return tag.RowsAffected(), nil
}
