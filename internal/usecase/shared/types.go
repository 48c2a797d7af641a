package shared

import (
	"time"

	"github.com/google/uuid"
)

// Minimal snapshots for command-side reads. Queries own the richer views.

type ShiftSnapshot struct {
	ID              uuid.UUID
	SiteID          uuid.UUID
	Role            string
	StartsAt        time.Time
	EndsAt          time.Time
	Status          string
	AssignedStaffID *uuid.UUID
	Source          string
}

type OfferSnapshot struct {
	ID             uuid.UUID
	ShiftID        uuid.UUID
	SiteID         uuid.UUID
	RecipientID    uuid.UUID
	BatchID        uuid.UUID
	RulesetVersion int32
	Status         string
	SentAt         time.Time
	AcceptedAt     *time.Time
}

type IdempotencyRecord struct {
	Key         uuid.UUID
	UserID      uuid.UUID
	Status      string
	RequestHash string
	ResultID    *uuid.UUID
	ExpiresAt   time.Time
}

// AuditEvent is one row of the compliance trail, written in the same
// transaction as the state change it describes.
type AuditEvent struct {
	ActorType string
	ActorID   *uuid.UUID
	EventType string
	Entity    string
	EntityID  string
	Details   map[string]any
}
