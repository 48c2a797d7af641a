package repository

import (
	"context"

	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"
	"rota-claims/internal/pkg/pgconv"
	"rota-claims/internal/usecase/shared"

	"github.com/google/uuid"
)

// CommandReads serves the minimal snapshots commands validate against. It is
// bound to an executor at construction so the same reads run against the
// pool or inside a transaction.
type CommandReads struct {
	db db.DBTX
}

func NewCommandReads(db db.DBTX) *CommandReads {
	return &CommandReads{db: db}
}

const shiftSnapshotSQL = `
SELECT id, site_id, role, starts_at, ends_at, status, assigned_staff_id, source
FROM shifts
WHERE id = $1
`

func (r *CommandReads) ShiftByID(ctx context.Context, id uuid.UUID) (*shared.ShiftSnapshot, error) {
	var snap shared.ShiftSnapshot
	err := r.db.QueryRow(ctx, shiftSnapshotSQL, id).Scan(
		&snap.ID, &snap.SiteID, &snap.Role,
		&snap.StartsAt, &snap.EndsAt,
		&snap.Status, &snap.AssignedStaffID, &snap.Source,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("shift not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find shift by ID", err)
	}
	return &snap, nil
}

// The snapshot carries the shift's site so publishers can address the
// site topic without a second read.
const offerSnapshotSQL = `
SELECT o.id, o.shift_id, s.site_id, o.recipient_id, o.batch_id, o.ruleset_version,
       o.status, o.sent_at, o.accepted_at
FROM offers o
JOIN shifts s ON s.id = o.shift_id
WHERE o.id = $1
`

func (r *CommandReads) OfferByID(ctx context.Context, id uuid.UUID) (*shared.OfferSnapshot, error) {
	var snap shared.OfferSnapshot
	err := r.db.QueryRow(ctx, offerSnapshotSQL, id).Scan(
		&snap.ID, &snap.ShiftID, &snap.SiteID, &snap.RecipientID, &snap.BatchID, &snap.RulesetVersion,
		&snap.Status, &snap.SentAt, &snap.AcceptedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("offer not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find offer by ID", err)
	}
	return &snap, nil
}

const idempotencyKeySQL = `
SELECT key, user_id, status, request_hash, result_id, expires_at
FROM idempotency_keys
WHERE key = $1 AND user_id = $2
`

func (r *CommandReads) IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	var rec shared.IdempotencyRecord
	err := r.db.QueryRow(ctx, idempotencyKeySQL, key, userID).Scan(
		&rec.Key, &rec.UserID, &rec.Status,
		&rec.RequestHash, &rec.ResultID, &rec.ExpiresAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("idempotency key not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find idempotency key", err)
	}
	return &rec, nil
}
