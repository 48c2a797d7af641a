package commands

import (
	"context"
	"time"

	"rota-claims/internal/domain/shift"
	"rota-claims/internal/infra"
	"rota-claims/internal/pkg/clock"
	"rota-claims/internal/pkg/errs"
	"rota-claims/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrShiftInputInvalid     = errs.New("invalid shift input")
	ErrShiftNotEditable      = errs.New("shift can no longer be edited")
	ErrSicknessNotApplicable = errs.New("shift cannot be flagged as sickness")
)

type UpsertShiftInput struct {
	ID       *uuid.UUID
	Role     string
	StartsAt time.Time
	EndsAt   time.Time
	Status   string
}

type SicknessResult struct {
	ShiftID            uuid.UUID
	ReplacementShiftID uuid.UUID
}

type ShiftCommands interface {
	Upsert(ctx context.Context, siteID uuid.UUID, input UpsertShiftInput, actorID uuid.UUID) (uuid.UUID, error)
	ReportSickness(ctx context.Context, shiftID, actorID uuid.UUID) (*SicknessResult, error)
}

type shiftCommandsImpl struct {
	uow       shared.UnitOfWork
	publisher EventPublisher
	clock     clock.Clock
}

func NewShiftCommands(uow shared.UnitOfWork, publisher EventPublisher, clock clock.Clock) ShiftCommands {
	return &shiftCommandsImpl{uow: uow, publisher: publisher, clock: clock}
}

// Upsert is the rota planning input path. It only ever writes draft or
// published shifts and never touches the assignment column; filling a shift
// is the claim arbiter's job alone.
func (c *shiftCommandsImpl) Upsert(
	ctx context.Context,
	siteID uuid.UUID,
	input UpsertShiftInput,
	actorID uuid.UUID,
) (uuid.UUID, error) {
	status, err := shift.NewStatus(input.Status)
	if err != nil || (status != shift.StatusDraft && status != shift.StatusPublished) {
		return uuid.Nil, ErrShiftInputInvalid
	}
	if input.Role == "" {
		return uuid.Nil, ErrShiftInputInvalid
	}
	timeRange, err := shift.NewTimeRange(input.StartsAt, input.EndsAt)
	if err != nil {
		return uuid.Nil, ErrShiftInputInvalid
	}

	if input.ID == nil {
		return c.create(ctx, siteID, input.Role, timeRange, status, actorID)
	}
	return c.update(ctx, siteID, *input.ID, input.Role, timeRange, status, actorID)
}

func (c *shiftCommandsImpl) create(
	ctx context.Context,
	siteID uuid.UUID,
	role string,
	timeRange shift.TimeRange,
	status shift.Status,
	actorID uuid.UUID,
) (uuid.UUID, error) {
	s, err := shift.NewShift(siteID, role, timeRange, status, shift.SourceRota)
	if err != nil {
		return uuid.Nil, ErrShiftInputInvalid
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if _, err := tx.Shifts().Create(ctx, tx.DB(), s); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return tx.Audit().Record(ctx, tx.DB(), shared.AuditEvent{
			ActorType: actorType(actorID),
			ActorID:   uuidPtrOrNil(actorID),
			EventType: "shift.created",
			Entity:    "shift",
			EntityID:  s.ID().String(),
			Details:   map[string]any{"site_id": siteID, "status": status.String()},
		})
	})
	if err != nil {
		return uuid.Nil, err
	}
	return s.ID(), nil
}

func (c *shiftCommandsImpl) update(
	ctx context.Context,
	siteID, shiftID uuid.UUID,
	role string,
	timeRange shift.TimeRange,
	status shift.Status,
	actorID uuid.UUID,
) (uuid.UUID, error) {
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		current, err := tx.Reads().ShiftByID(ctx, shiftID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrShiftNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if current.SiteID != siteID {
			return ErrShiftNotFound
		}
		if current.Status == shift.StatusFilled.String() || current.Status == shift.StatusCancelled.String() {
			return ErrShiftNotEditable
		}

		source, err := shift.NewSource(current.Source)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		updated := shift.ReconstructShift(
			shiftID, siteID, role, timeRange, status, nil, source,
			time.Time{}, c.clock.Now(),
		)
		if err := tx.Shifts().Update(ctx, tx.DB(), updated); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		return tx.Audit().Record(ctx, tx.DB(), shared.AuditEvent{
			ActorType: actorType(actorID),
			ActorID:   uuidPtrOrNil(actorID),
			EventType: "shift.updated",
			Entity:    "shift",
			EntityID:  shiftID.String(),
			Details:   map[string]any{"site_id": siteID, "status": status.String()},
		})
	})
	if err != nil {
		return uuid.Nil, err
	}
	return shiftID, nil
}

// ReportSickness retires a shift whose assignee called in sick and reopens
// the slot as a fresh published shift so a new offer round can target it.
// Both writes land in one transaction.
func (c *shiftCommandsImpl) ReportSickness(
	ctx context.Context,
	shiftID, actorID uuid.UUID,
) (*SicknessResult, error) {
	current, err := c.uow.CommandReads().ShiftByID(ctx, shiftID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if current.Status != shift.StatusFilled.String() && current.Status != shift.StatusPublished.String() {
		return nil, ErrSicknessNotApplicable
	}

	timeRange, err := shift.NewTimeRange(current.StartsAt, current.EndsAt)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	replacement, err := shift.NewShift(current.SiteID, current.Role, timeRange, shift.StatusPublished, shift.SourceSickness)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	result := &SicknessResult{ShiftID: shiftID, ReplacementShiftID: replacement.ID()}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Shifts().MarkSickness(ctx, tx.DB(), shiftID); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if _, err := tx.Shifts().Create(ctx, tx.DB(), replacement); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return tx.Audit().Record(ctx, tx.DB(), shared.AuditEvent{
			ActorType: actorType(actorID),
			ActorID:   uuidPtrOrNil(actorID),
			EventType: "shift.sickness",
			Entity:    "shift",
			EntityID:  shiftID.String(),
			Details: map[string]any{
				"replacement_shift_id": replacement.ID(),
				"assigned_staff_id":    current.AssignedStaffID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	c.publisher.Publish(siteOffersTopic(current.SiteID), "shift.sickness", map[string]any{
		"shiftId":            shiftID,
		"replacementShiftId": replacement.ID(),
	})

	return result, nil
}
