package shift

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotClaimable     = errors.New("shift is not open for assignment")
	ErrAlreadyAssigned  = errors.New("shift already has an assigned staff member")
	ErrAssigneeRequired = errors.New("assignee staff ID is required")
	ErrNotCancellable   = errors.New("shift cannot be cancelled in its current status")
)

// Shift is the single serialization point of the claim flow: assignedStaffID
// moves from nil to a staff ID exactly once, and only while the shift is
// published. The durable CAS in the store enforces the same rule across
// processes; this entity enforces it for in-process callers and test doubles.
type Shift struct {
	id              uuid.UUID
	siteID          uuid.UUID
	role            string
	timeRange       TimeRange
	status          Status
	assignedStaffID *uuid.UUID
	source          Source
	createdAt       time.Time
	updatedAt       time.Time
}

func NewShift(siteID uuid.UUID, role string, timeRange TimeRange, status Status, source Source) (*Shift, error) {
	if status != StatusDraft && status != StatusPublished {
		return nil, ErrInvalidStatus
	}

	return &Shift{
		id:        uuid.New(),
		siteID:    siteID,
		role:      role,
		timeRange: timeRange,
		status:    status,
		source:    source,
	}, nil
}

func ReconstructShift(
	id, siteID uuid.UUID,
	role string,
	timeRange TimeRange,
	status Status,
	assignedStaffID *uuid.UUID,
	source Source,
	createdAt, updatedAt time.Time,
) *Shift {
	return &Shift{
		id:              id,
		siteID:          siteID,
		role:            role,
		timeRange:       timeRange,
		status:          status,
		assignedStaffID: assignedStaffID,
		source:          source,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// Assign performs the null-to-winner transition. It fails if the shift is not
// published or already carries an assignee; it never overwrites.
func (s *Shift) Assign(staffID uuid.UUID) error {
	if staffID == uuid.Nil {
		return ErrAssigneeRequired
	}
	if s.assignedStaffID != nil {
		return ErrAlreadyAssigned
	}
	if s.status != StatusPublished {
		return ErrNotClaimable
	}

	id := staffID
	s.assignedStaffID = &id
	s.status = StatusFilled
	return nil
}

func (s *Shift) Cancel() error {
	if s.status == StatusFilled || s.status == StatusCancelled {
		return ErrNotCancellable
	}
	s.status = StatusCancelled
	return nil
}

// Claimable reports whether a new offer round may target this shift.
func (s *Shift) Claimable() bool {
	return s.status == StatusPublished && s.assignedStaffID == nil
}

func (s *Shift) ID() uuid.UUID               { return s.id }
func (s *Shift) SiteID() uuid.UUID           { return s.siteID }
func (s *Shift) Role() string                { return s.role }
func (s *Shift) TimeRange() TimeRange        { return s.timeRange }
func (s *Shift) Status() Status              { return s.status }
func (s *Shift) AssignedStaffID() *uuid.UUID { return s.assignedStaffID }
func (s *Shift) Source() Source              { return s.source }
func (s *Shift) CreatedAt() time.Time        { return s.createdAt }
func (s *Shift) UpdatedAt() time.Time        { return s.updatedAt }
