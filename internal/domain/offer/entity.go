package offer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadySettled = errors.New("offer already settled")
	ErrNotSent        = errors.New("offer is not in sent status")
)

// Offer is an invitation for one staff member to claim one shift. The status
// machine is sent → accepted | closed | expired; every transition out of
// sent is final.
type Offer struct {
	id             uuid.UUID
	shiftID        uuid.UUID
	recipientID    uuid.UUID
	batchID        uuid.UUID
	rulesetVersion int32
	status         Status
	sentAt         time.Time
	acceptedAt     *time.Time
}

// NewOffer creates a sent offer belonging to one issuing round. Every offer
// of a round shares the batch ID and the ruleset version the candidates
// were evaluated under.
func NewOffer(shiftID, recipientID, batchID uuid.UUID, rulesetVersion int32, sentAt time.Time) *Offer {
	return &Offer{
		id:             uuid.New(),
		shiftID:        shiftID,
		recipientID:    recipientID,
		batchID:        batchID,
		rulesetVersion: rulesetVersion,
		status:         StatusSent,
		sentAt:         sentAt,
	}
}

func ReconstructOffer(
	id, shiftID, recipientID, batchID uuid.UUID,
	rulesetVersion int32,
	status Status,
	sentAt time.Time,
	acceptedAt *time.Time,
) *Offer {
	return &Offer{
		id:             id,
		shiftID:        shiftID,
		recipientID:    recipientID,
		batchID:        batchID,
		rulesetVersion: rulesetVersion,
		status:         status,
		sentAt:         sentAt,
		acceptedAt:     acceptedAt,
	}
}

func (o *Offer) Accept(at time.Time) error {
	if o.status != StatusSent {
		return ErrNotSent
	}
	o.status = StatusAccepted
	t := at
	o.acceptedAt = &t
	return nil
}

func (o *Offer) Close() error {
	if o.status.Settled() {
		return ErrAlreadySettled
	}
	o.status = StatusClosed
	return nil
}

func (o *Offer) Expire() error {
	if o.status != StatusSent {
		return ErrNotSent
	}
	o.status = StatusExpired
	return nil
}

// Overdue reports whether a sent offer has outlived the claim window.
func (o *Offer) Overdue(now time.Time, ttl time.Duration) bool {
	return o.status == StatusSent && now.Sub(o.sentAt) > ttl
}

func (o *Offer) ID() uuid.UUID          { return o.id }
func (o *Offer) ShiftID() uuid.UUID     { return o.shiftID }
func (o *Offer) RecipientID() uuid.UUID { return o.recipientID }
func (o *Offer) BatchID() uuid.UUID     { return o.batchID }
func (o *Offer) RulesetVersion() int32  { return o.rulesetVersion }
func (o *Offer) Status() Status         { return o.status }
func (o *Offer) SentAt() time.Time      { return o.sentAt }
func (o *Offer) AcceptedAt() *time.Time { return o.acceptedAt }
