package repository

import (
	"context"

	"rota-claims/internal/domain/shift"
	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"

	"github.com/google/uuid"
)

type ShiftRepository struct{}

func NewShiftRepository() *ShiftRepository {
	return &ShiftRepository{}
}

const insertShiftSQL = `
INSERT INTO shifts (id, site_id, role, starts_at, ends_at, status, source)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

func (r *ShiftRepository) Create(ctx context.Context, tx db.DBTX, s *shift.Shift) (uuid.UUID, error) {
	_, err := tx.Exec(ctx, insertShiftSQL,
		s.ID(), s.SiteID(), s.Role(),
		s.TimeRange().Start(), s.TimeRange().End(),
		s.Status().String(), s.Source().String(),
	)
	if err != nil {
		return uuid.Nil, infra.WrapRepoErr("failed to create shift", err, pgErrorKind(err))
	}
	return s.ID(), nil
}

// updateShiftSQL deliberately excludes assigned_staff_id: planning edits may
// never move an assignment. Filled and cancelled rows are frozen.
const updateShiftSQL = `
UPDATE shifts
SET role = $2, starts_at = $3, ends_at = $4, status = $5, updated_at = now()
WHERE id = $1 AND status IN ('draft', 'published')
`

func (r *ShiftRepository) Update(ctx context.Context, tx db.DBTX, s *shift.Shift) error {
	tag, err := tx.Exec(ctx, updateShiftSQL,
		s.ID(), s.Role(),
		s.TimeRange().Start(), s.TimeRange().End(),
		s.Status().String(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update shift", err, pgErrorKind(err))
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("shift not found or not editable", nil, infra.KindNotFound)
	}
	return nil
}

// assignShiftSQL is the arbitration point. The WHERE clause admits exactly
// one writer per shift: once assigned_staff_id is non-null every later
// attempt affects zero rows, no matter how the calls interleave.
const assignShiftSQL = `
UPDATE shifts
SET assigned_staff_id = $2, status = 'filled', updated_at = now()
WHERE id = $1 AND assigned_staff_id IS NULL AND status = 'published'
`

func (r *ShiftRepository) AssignIfUnassigned(ctx context.Context, tx db.DBTX, shiftID, staffID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, assignShiftSQL, shiftID, staffID)
	if err != nil {
		return false, infra.WrapRepoErr("failed to assign shift", err, pgErrorKind(err))
	}
	return tag.RowsAffected() == 1, nil
}

const markSicknessSQL = `
UPDATE shifts
SET status = 'cancelled', updated_at = now()
WHERE id = $1 AND status IN ('published', 'filled')
`

func (r *ShiftRepository) MarkSickness(ctx context.Context, tx db.DBTX, shiftID uuid.UUID) error {
	tag, err := tx.Exec(ctx, markSicknessSQL, shiftID)
	if err != nil {
		return infra.WrapRepoErr("failed to mark shift sickness", err, pgErrorKind(err))
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("shift not found or not active", nil, infra.KindConflict)
	}
	return nil
}
