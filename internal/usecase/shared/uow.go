package shared

import (
	"context"
	"time"

	"rota-claims/internal/domain/offer"
	"rota-claims/internal/domain/shift"
	"rota-claims/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: Full transaction for write operations with retry logic
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: Single query operations using implicit transactions
	WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
	// CommandReads: Direct access to command reads for validation outside transactions
	CommandReads() CommandReads
}

type Tx interface {
	Shifts() ShiftRepository
	Offers() OfferRepository
	Idempotency() IdempotencyRepository
	Audit() AuditRepository
	Reads() CommandReads
	DB() db.DBTX
}

type CommandReads interface {
	ShiftByID(ctx context.Context, id uuid.UUID) (*ShiftSnapshot, error)
	OfferByID(ctx context.Context, id uuid.UUID) (*OfferSnapshot, error)
	IdempotencyByKey(ctx context.Context, key, userID uuid.UUID) (*IdempotencyRecord, error)
}

type ShiftRepository interface {
	Create(ctx context.Context, tx db.DBTX, s *shift.Shift) (uuid.UUID, error)
	Update(ctx context.Context, tx db.DBTX, s *shift.Shift) error
	// AssignIfUnassigned is the compare-and-swap at the heart of claim
	// arbitration: one conditional UPDATE that fills the shift only while
	// assigned_staff_id is still NULL. Returns whether this call won.
	AssignIfUnassigned(ctx context.Context, tx db.DBTX, shiftID, staffID uuid.UUID) (bool, error)
	MarkSickness(ctx context.Context, tx db.DBTX, shiftID uuid.UUID) error
}

type OfferRepository interface {
	// CreateBatch inserts every offer or none; callers run it inside Within.
	CreateBatch(ctx context.Context, tx db.DBTX, offers []*offer.Offer) error
	MarkAccepted(ctx context.Context, tx db.DBTX, offerID uuid.UUID, at time.Time) error
	Close(ctx context.Context, tx db.DBTX, offerID uuid.UUID) error
	// CloseSiblings closes every still-open offer for the shift except the
	// winner's. Returns the number of offers closed.
	CloseSiblings(ctx context.Context, tx db.DBTX, shiftID, excludeOfferID uuid.UUID) (int64, error)
	MarkExpired(ctx context.Context, tx db.DBTX, offerID uuid.UUID) error
	// ExpireOverdue transitions sent offers older than cutoff to expired.
	ExpireOverdue(ctx context.Context, tx db.DBTX, cutoff time.Time) (int64, error)
}

type IdempotencyRepository interface {
	// TryInsert claims the key for this request (ON CONFLICT DO NOTHING)
	// and reports whether this call inserted it.
	TryInsert(ctx context.Context, tx db.DBTX, key, userID uuid.UUID, endpoint, requestHash string, expiresAt time.Time) (bool, error)
	UpdateStatusCompleted(ctx context.Context, tx db.DBTX, key, userID uuid.UUID, responseHash string, resultID uuid.UUID) error
	// ClaimExpired lets a retry take over a key whose previous attempt's
	// window lapsed without completing. Returns affected rows.
	ClaimExpired(ctx context.Context, tx db.DBTX, key, userID uuid.UUID, requestHash string, expiresAt time.Time) (int64, error)
	DeleteExpired(ctx context.Context, tx db.DBTX) (int64, error)
}

type AuditRepository interface {
	Record(ctx context.Context, tx db.DBTX, event AuditEvent) error
}
