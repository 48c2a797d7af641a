package queries

import (
	"context"
	"time"

	"rota-claims/internal/domain/eligibility"
	"rota-claims/internal/domain/shift"
	"rota-claims/internal/domain/staff"
	"rota-claims/internal/infra"
	"rota-claims/internal/pkg/errs"

	"github.com/google/uuid"
)

type StaffReadStore interface {
	ListBySite(ctx context.Context, siteID uuid.UUID) ([]staff.Staff, error)
}

// EligibilityQueries runs the versioned ruleset against every staff member
// of the shift's site. The batch issuer consumes only the all-checks-pass
// subset; the inspection endpoint exposes the full per-check output.
type EligibilityQueries interface {
	Evaluate(ctx context.Context, shiftID uuid.UUID) ([]eligibility.Result, int32, error)
}

type eligibilityQueriesImpl struct {
	shiftStore ShiftReadStore
	staffStore StaffReadStore
	ruleset    *eligibility.Ruleset
}

func NewEligibilityQueries(shiftStore ShiftReadStore, staffStore StaffReadStore, ruleset *eligibility.Ruleset) EligibilityQueries {
	return &eligibilityQueriesImpl{
		shiftStore: shiftStore,
		staffStore: staffStore,
		ruleset:    ruleset,
	}
}

func (q *eligibilityQueriesImpl) Evaluate(ctx context.Context, shiftID uuid.UUID) ([]eligibility.Result, int32, error) {
	shiftView, err := q.shiftStore.FindByID(ctx, shiftID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, 0, ErrShiftNotFound
		}
		return nil, 0, errs.Wrap(err, "failed to find shift for eligibility")
	}

	window, err := shift.NewTimeRange(shiftView.StartsAt, shiftView.EndsAt)
	if err != nil {
		return nil, 0, errs.Wrap(err, "stored shift has invalid time range")
	}

	candidates, err := q.staffStore.ListBySite(ctx, shiftView.SiteID)
	if err != nil {
		return nil, 0, errs.Wrap(err, "failed to list site staff")
	}

	// Rest and cap rules look one week either side of the shift.
	from := shiftView.StartsAt.Add(-7 * 24 * time.Hour)
	to := shiftView.EndsAt.Add(7 * 24 * time.Hour)

	results := make([]eligibility.Result, 0, len(candidates))
	for _, candidate := range candidates {
		assigned, err := q.assignedRanges(ctx, candidate.ID, from, to)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, q.ruleset.Evaluate(window, candidate, assigned))
	}

	return results, q.ruleset.Version(), nil
}

func (q *eligibilityQueriesImpl) assignedRanges(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]shift.TimeRange, error) {
	views, err := q.shiftStore.ListAssignedToStaffBetween(ctx, staffID, from, to)
	if err != nil {
		return nil, errs.Wrap(err, "failed to list assigned shifts")
	}

	ranges := make([]shift.TimeRange, 0, len(views))
	for _, v := range views {
		tr, err := shift.NewTimeRange(v.StartsAt, v.EndsAt)
		if err != nil {
			continue
		}
		ranges = append(ranges, tr)
	}
	return ranges, nil
}
