package readstore

import (
	"context"
	"time"

	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"
	"rota-claims/internal/pkg/pgconv"
	"rota-claims/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type ShiftReadStore struct {
	db db.DBTX
}

func NewShiftReadStore(db db.DBTX) *ShiftReadStore {
	return &ShiftReadStore{db: db}
}

const findShiftByIDSQL = `
SELECT id, site_id, role, starts_at, ends_at, status, assigned_staff_id, source, created_at, updated_at
FROM shifts
WHERE id = $1
`

func (r *ShiftReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ShiftView, error) {
	row := r.db.QueryRow(ctx, findShiftByIDSQL, id)
	view, err := scanShiftView(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("shift not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find shift by ID", err)
	}
	return view, nil
}

// Null range bounds widen the filter to everything; the handler passes them
// straight from optional query params.
const listShiftsBySiteSQL = `
SELECT id, site_id, role, starts_at, ends_at, status, assigned_staff_id, source, created_at, updated_at
FROM shifts
WHERE site_id = $1
  AND ($2::timestamptz IS NULL OR starts_at >= $2)
  AND ($3::timestamptz IS NULL OR starts_at < $3)
ORDER BY starts_at
`

func (r *ShiftReadStore) ListBySite(ctx context.Context, siteID uuid.UUID, from, to *time.Time) ([]*queries.ShiftView, error) {
	rows, err := r.db.Query(ctx, listShiftsBySiteSQL, siteID, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list site shifts", err)
	}
	defer rows.Close()

	return collectShiftViews(rows)
}

const listAssignedShiftsSQL = `
SELECT id, site_id, role, starts_at, ends_at, status, assigned_staff_id, source, created_at, updated_at
FROM shifts
WHERE assigned_staff_id = $1
  AND starts_at >= $2
  AND starts_at < $3
  AND status = 'filled'
ORDER BY starts_at
`

func (r *ShiftReadStore) ListAssignedToStaffBetween(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]*queries.ShiftView, error) {
	rows, err := r.db.Query(ctx, listAssignedShiftsSQL, staffID, from, to)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list assigned shifts", err)
	}
	defer rows.Close()

	return collectShiftViews(rows)
}

func collectShiftViews(rows pgx.Rows) ([]*queries.ShiftView, error) {
	views := make([]*queries.ShiftView, 0)
	for rows.Next() {
		view, err := scanShiftView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan shift row", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read shift rows", err)
	}
	return views, nil
}

func scanShiftView(row pgx.Row) (*queries.ShiftView, error) {
	var view queries.ShiftView
	err := row.Scan(
		&view.ID, &view.SiteID, &view.Role,
		&view.StartsAt, &view.EndsAt,
		&view.Status, &view.AssignedStaffID, &view.Source,
		&view.CreatedAt, &view.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &view, nil
}
