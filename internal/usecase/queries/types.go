package queries

import (
	"time"

	"github.com/google/uuid"
)

type ShiftView struct {
	ID              uuid.UUID
	SiteID          uuid.UUID
	Role            string
	StartsAt        time.Time
	EndsAt          time.Time
	Status          string
	AssignedStaffID *uuid.UUID
	Source          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OfferView struct {
	ID             uuid.UUID
	ShiftID        uuid.UUID
	RecipientID    uuid.UUID
	BatchID        uuid.UUID
	RulesetVersion int32
	Status         string
	SentAt         time.Time
	AcceptedAt     *time.Time
}
