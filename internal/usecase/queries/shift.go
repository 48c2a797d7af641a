package queries

import (
	"context"
	"time"

	"rota-claims/internal/infra"
	"rota-claims/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrShiftNotFound = errs.New("shift not found")

type ShiftReadStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ShiftView, error)
	ListBySite(ctx context.Context, siteID uuid.UUID, from, to *time.Time) ([]*ShiftView, error)
	// ListAssignedToStaffBetween returns shifts already assigned to the
	// staff member that start within [from, to); the eligibility rules use
	// the windows for rest-period and weekly-cap checks.
	ListAssignedToStaffBetween(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]*ShiftView, error)
}

type ShiftQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ShiftView, error)
	ListBySite(ctx context.Context, siteID uuid.UUID, from, to *time.Time) ([]*ShiftView, error)
}

type shiftQueriesImpl struct {
	store ShiftReadStore
}

func NewShiftQueries(store ShiftReadStore) ShiftQueries {
	return &shiftQueriesImpl{store: store}
}

func (q *shiftQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*ShiftView, error) {
	view, err := q.store.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, errs.Wrap(err, "failed to find shift")
	}
	return view, nil
}

func (q *shiftQueriesImpl) ListBySite(ctx context.Context, siteID uuid.UUID, from, to *time.Time) ([]*ShiftView, error) {
	views, err := q.store.ListBySite(ctx, siteID, from, to)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list site shifts")
	}
	return views, nil
}
