package repository

import (
	"context"
	"time"

	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"

	"github.com/google/uuid"
)

type IdempotencyRepository struct{}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{}
}

const tryInsertIdempotencyKeySQL = `
INSERT INTO idempotency_keys (key, user_id, endpoint, request_hash, status, expires_at)
VALUES ($1, $2, $3, $4, 'processing', $5)
ON CONFLICT (key, user_id) DO NOTHING
`

func (r *IdempotencyRepository) TryInsert(
	ctx context.Context,
	tx db.DBTX,
	key, userID uuid.UUID,
	endpoint, requestHash string,
	expiresAt time.Time,
) (bool, error) {
	tag, err := tx.Exec(ctx, tryInsertIdempotencyKeySQL, key, userID, endpoint, requestHash, expiresAt)
	if err != nil {
		return false, infra.WrapRepoErr("failed to try insert idempotency key", err, pgErrorKind(err))
	}
	return tag.RowsAffected() == 1, nil
}

const updateIdempotencyCompletedSQL = `
UPDATE idempotency_keys
SET status = 'completed', response_hash = $3, result_id = $4
WHERE key = $1 AND user_id = $2
`

func (r *IdempotencyRepository) UpdateStatusCompleted(
	ctx context.Context,
	tx db.DBTX,
	key, userID uuid.UUID,
	responseHash string,
	resultID uuid.UUID,
) error {
	if _, err := tx.Exec(ctx, updateIdempotencyCompletedSQL, key, userID, responseHash, resultID); err != nil {
		return infra.WrapRepoErr("failed to update idempotency key status", err, pgErrorKind(err))
	}
	return nil
}

// A processing key whose window lapsed belongs to a dead attempt; the retry
// resets it and carries on.
const claimExpiredIdempotencyKeySQL = `
UPDATE idempotency_keys
SET request_hash = $3, expires_at = $4, created_at = now()
WHERE key = $1 AND user_id = $2 AND status = 'processing' AND expires_at < now()
`

func (r *IdempotencyRepository) ClaimExpired(
	ctx context.Context,
	tx db.DBTX,
	key, userID uuid.UUID,
	requestHash string,
	expiresAt time.Time,
) (int64, error) {
	tag, err := tx.Exec(ctx, claimExpiredIdempotencyKeySQL, key, userID, requestHash, expiresAt)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to claim expired idempotency key", err, pgErrorKind(err))
	}
	return tag.RowsAffected(), nil
}

const deleteExpiredIdempotencyKeysSQL = `
DELETE FROM idempotency_keys
WHERE expires_at < now()
`

func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, tx db.DBTX) (int64, error) {
	tag, err := tx.Exec(ctx, deleteExpiredIdempotencyKeysSQL)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to delete expired idempotency keys", err, pgErrorKind(err))
	}
	return tag.RowsAffected(), nil
}
