package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"rota-claims/internal/domain/offer"
	"rota-claims/internal/domain/shift"
	"rota-claims/internal/infra"
	"rota-claims/internal/infra/telemetry"
	"rota-claims/internal/pkg/clock"
	"rota-claims/internal/pkg/config"
	"rota-claims/internal/pkg/errs"
	"rota-claims/internal/usecase/queries"
	"rota-claims/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrShiftNotFound           = errs.New("shift not found")
	ErrShiftNotEligible        = errs.New("shift not eligible for offers")
	ErrNoCandidates            = errs.New("no eligible candidates")
	ErrOfferNotFound           = errs.New("offer not found")
	ErrOfferExpired            = errs.New("offer expired")
	ErrRecipientMismatch       = errs.New("acting staff does not match offer recipient")
	ErrDuplicateRequest        = errs.New("duplicate request with different parameters")
	ErrRequestInProgress       = errs.New("request is already being processed")
	ErrIdempotencyCheckFailed  = errs.New("idempotency check failed")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

type IssueBatchResult struct {
	ShiftID        uuid.UUID
	OfferIDs       []uuid.UUID
	RulesetVersion int32
	IsReplayed     bool
}

type AcceptResult struct {
	ShiftID       uuid.UUID
	OfferID       uuid.UUID
	WinnerStaffID *uuid.UUID
	Won           bool
	IsReplayed    bool
}

type OfferCommands interface {
	IssueBatch(ctx context.Context, shiftID uuid.UUID, size int, actorID, idempotencyKey uuid.UUID) (*IssueBatchResult, error)
	Accept(ctx context.Context, offerID, actingStaffID, idempotencyKey uuid.UUID) (*AcceptResult, error)
	Close(ctx context.Context, offerID, actorID uuid.UUID) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

type offerCommandsImpl struct {
	uow         shared.UnitOfWork
	eligibility queries.EligibilityQueries
	offerViews  queries.OfferQueries
	publisher   EventPublisher
	clock       clock.Clock
	cfg         config.OffersConfig
}

func NewOfferCommands(
	uow shared.UnitOfWork,
	eligibility queries.EligibilityQueries,
	offerViews queries.OfferQueries,
	publisher EventPublisher,
	clock clock.Clock,
	cfg config.OffersConfig,
) OfferCommands {
	return &offerCommandsImpl{
		uow:         uow,
		eligibility: eligibility,
		offerViews:  offerViews,
		publisher:   publisher,
		clock:       clock,
		cfg:         cfg,
	}
}

// IssueBatch creates one offer per eligible candidate, capped to size, as a
// single atomic batch: either every offer row exists afterwards or none do.
// The offers.batch publish is best effort and never rolls back the batch.
func (c *offerCommandsImpl) IssueBatch(
	ctx context.Context,
	shiftID uuid.UUID,
	size int,
	actorID, idempotencyKey uuid.UUID,
) (*IssueBatchResult, error) {
	requestHash := calculateRequestHash(map[string]any{"shift_id": shiftID, "size": size})

	replay, err := c.beginIdempotent(ctx, idempotencyKey, actorID, "POST /shifts/:id/offers/batch", requestHash)
	if err != nil {
		return nil, err
	}
	if replay != nil {
		telemetry.IdempotentReplays.Inc()
		return c.replayBatch(ctx, replay)
	}

	shiftSnap, err := c.claimableShift(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	results, rulesetVersion, err := c.eligibility.Evaluate(ctx, shiftID)
	if err != nil {
		if errors.Is(err, queries.ErrShiftNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	candidates := make([]uuid.UUID, 0, size)
	for _, r := range results {
		if !r.Eligible() {
			continue
		}
		candidates = append(candidates, r.StaffID)
		if len(candidates) == size {
			break
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}

	// The batch ID ties the round's offers to its idempotency record, so a
	// replay can recover exactly this round's result later.
	batchID := uuid.New()
	sentAt := c.clock.Now()
	offers := make([]*offer.Offer, len(candidates))
	offerIDs := make([]uuid.UUID, len(candidates))
	for i, staffID := range candidates {
		offers[i] = offer.NewOffer(shiftID, staffID, batchID, rulesetVersion, sentAt)
		offerIDs[i] = offers[i].ID()
	}

	result := &IssueBatchResult{
		ShiftID:        shiftID,
		OfferIDs:       offerIDs,
		RulesetVersion: rulesetVersion,
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		// Re-check inside the transaction: the shift may have been filled
		// between the validation read and now.
		current, err := tx.Reads().ShiftByID(ctx, shiftID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if current.Status != shift.StatusPublished.String() || current.AssignedStaffID != nil {
			return ErrShiftNotEligible
		}

		if err := tx.Offers().CreateBatch(ctx, tx.DB(), offers); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := c.completeIdempotent(ctx, tx, idempotencyKey, actorID, result, batchID); err != nil {
			return err
		}

		return tx.Audit().Record(ctx, tx.DB(), shared.AuditEvent{
			ActorType: actorType(actorID),
			ActorID:   uuidPtrOrNil(actorID),
			EventType: "offers.batch",
			Entity:    "shift",
			EntityID:  shiftID.String(),
			Details:   map[string]any{"offer_count": len(offerIDs), "ruleset_version": rulesetVersion},
		})
	})
	if err != nil {
		return nil, err
	}

	telemetry.OffersIssued.Add(float64(len(offerIDs)))
	c.publisher.Publish(siteOffersTopic(shiftSnap.SiteID), "offers.batch", map[string]any{
		"shiftId":        shiftID,
		"offerIds":       offerIDs,
		"rulesetVersion": rulesetVersion,
	})

	return result, nil
}

// Accept is the claim arbiter. Correctness rests on one store-level
// conditional write: the shift's assigned_staff_id is set only while it is
// still NULL, so exactly one of N concurrent accepts for the same shift
// observes won=true regardless of interleaving or process count.
func (c *offerCommandsImpl) Accept(
	ctx context.Context,
	offerID, actingStaffID, idempotencyKey uuid.UUID,
) (*AcceptResult, error) {
	requestHash := calculateRequestHash(map[string]any{"offer_id": offerID, "staff_id": actingStaffID})

	replay, err := c.beginIdempotent(ctx, idempotencyKey, actingStaffID, "POST /offers/:id/accept", requestHash)
	if err != nil {
		return nil, err
	}

	offerSnap, err := c.uow.CommandReads().OfferByID(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if offerSnap.Status == offer.StatusExpired.String() {
		return nil, ErrOfferExpired
	}

	// Re-submitting a settled offer returns the original outcome and
	// mutates nothing; this is what makes the endpoint safe to retry and
	// to compose with the replay guard.
	if offerSnap.Status != offer.StatusSent.String() {
		if replay != nil {
			telemetry.IdempotentReplays.Inc()
		}
		return c.settledOutcome(ctx, offerSnap, replay != nil)
	}

	// Identity: the offer's recorded recipient is authoritative. An
	// authenticated caller must be that recipient; the bare acting ID is
	// only a fallback when no auth context exists.
	winnerStaffID := offerSnap.RecipientID
	if actingStaffID != uuid.Nil && actingStaffID != offerSnap.RecipientID {
		return nil, ErrRecipientMismatch
	}

	now := c.clock.Now()
	if now.Sub(offerSnap.SentAt) > c.cfg.TTL {
		return nil, c.expireOnAccept(ctx, offerID)
	}

	result := &AcceptResult{
		ShiftID:    offerSnap.ShiftID,
		OfferID:    offerID,
		IsReplayed: false,
	}

	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		won, err := tx.Shifts().AssignIfUnassigned(ctx, tx.DB(), offerSnap.ShiftID, winnerStaffID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if !won {
			// Someone already holds the shift. If it is this same
			// recipient, a concurrent duplicate of this request won the
			// race; report their win rather than a loss.
			current, err := tx.Reads().ShiftByID(ctx, offerSnap.ShiftID)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			if current.AssignedStaffID != nil && *current.AssignedStaffID == winnerStaffID {
				won = true
			} else {
				result.Won = false
				result.WinnerStaffID = current.AssignedStaffID
				if err := tx.Offers().Close(ctx, tx.DB(), offerID); err != nil {
					return errs.Mark(err, ErrDatabaseOperationFailed)
				}
			}
		}

		if won {
			result.Won = true
			result.WinnerStaffID = &winnerStaffID
			if err := tx.Offers().MarkAccepted(ctx, tx.DB(), offerID, now); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			if _, err := tx.Offers().CloseSiblings(ctx, tx.DB(), offerSnap.ShiftID, offerID); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		if err := c.completeIdempotent(ctx, tx, idempotencyKey, actingStaffID, result, offerID); err != nil {
			return err
		}

		return tx.Audit().Record(ctx, tx.DB(), shared.AuditEvent{
			ActorType: "staff",
			ActorID:   &winnerStaffID,
			EventType: acceptEventType(result.Won),
			Entity:    "offer",
			EntityID:  offerID.String(),
			Details:   map[string]any{"shift_id": offerSnap.ShiftID},
		})
	})
	if err != nil {
		return nil, err
	}

	if result.Won {
		telemetry.ClaimsWon.Inc()
	} else {
		telemetry.ClaimsLost.Inc()
	}

	c.publishAccepted(offerSnap.SiteID, result)

	return result, nil
}

// Close settles a single still-open offer without a winner, e.g. when an
// operator withdraws it.
func (c *offerCommandsImpl) Close(ctx context.Context, offerID, actorID uuid.UUID) error {
	offerSnap, err := c.uow.CommandReads().OfferByID(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return ErrOfferNotFound
		}
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Offers().Close(ctx, tx.DB(), offerID); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return tx.Audit().Record(ctx, tx.DB(), shared.AuditEvent{
			ActorType: actorType(actorID),
			ActorID:   uuidPtrOrNil(actorID),
			EventType: "offer.closed",
			Entity:    "offer",
			EntityID:  offerID.String(),
			Details:   map[string]any{"shift_id": offerSnap.ShiftID},
		})
	})
}

// ExpireOverdue sweeps sent offers past the claim window. The sweeper runs
// on a timer; the accept path applies the same cutoff on read, so a not yet
// swept offer cannot be claimed late.
func (c *offerCommandsImpl) ExpireOverdue(ctx context.Context) (int64, error) {
	cutoff := c.clock.Now().Add(-c.cfg.TTL)

	var expired int64
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		n, err := tx.Offers().ExpireOverdue(ctx, tx.DB(), cutoff)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		expired = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	if expired > 0 {
		telemetry.OffersExpired.Add(float64(expired))
	}
	return expired, nil
}

func (c *offerCommandsImpl) claimableShift(ctx context.Context, shiftID uuid.UUID) (*shared.ShiftSnapshot, error) {
	shiftSnap, err := c.uow.CommandReads().ShiftByID(ctx, shiftID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrShiftNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if shiftSnap.Status != shift.StatusPublished.String() || shiftSnap.AssignedStaffID != nil {
		return nil, ErrShiftNotEligible
	}
	return shiftSnap, nil
}

// settledOutcome rebuilds the accept response for an offer that already
// reached a terminal state, without touching the store's write path.
func (c *offerCommandsImpl) settledOutcome(ctx context.Context, offerSnap *shared.OfferSnapshot, replayed bool) (*AcceptResult, error) {
	won := offerSnap.Status == offer.StatusAccepted.String()

	var winner *uuid.UUID
	if won {
		id := offerSnap.RecipientID
		winner = &id
	} else {
		shiftSnap, err := c.uow.CommandReads().ShiftByID(ctx, offerSnap.ShiftID)
		if err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		winner = shiftSnap.AssignedStaffID
	}

	return &AcceptResult{
		ShiftID:       offerSnap.ShiftID,
		OfferID:       offerSnap.ID,
		WinnerStaffID: winner,
		Won:           won,
		IsReplayed:    replayed,
	}, nil
}

func (c *offerCommandsImpl) expireOnAccept(ctx context.Context, offerID uuid.UUID) error {
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Offers().MarkExpired(ctx, tx.DB(), offerID)
	})
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return ErrOfferExpired
}

// replayBatch rebuilds the recorded response from the batch the completed
// idempotency record points at. Offers issued by later rounds on the same
// shift carry a different batch ID and stay out of the replay.
func (c *offerCommandsImpl) replayBatch(ctx context.Context, record *shared.IdempotencyRecord) (*IssueBatchResult, error) {
	if record.ResultID == nil {
		return nil, errs.Mark(errs.New("completed batch record has no result"), ErrIdempotencyCheckFailed)
	}

	views, err := c.offerViews.ListByBatch(ctx, *record.ResultID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if len(views) == 0 {
		return nil, errs.Mark(errs.New("recorded batch has no offers"), ErrIdempotencyCheckFailed)
	}

	offerIDs := make([]uuid.UUID, len(views))
	for i, v := range views {
		offerIDs[i] = v.ID
	}

	return &IssueBatchResult{
		ShiftID:        views[0].ShiftID,
		OfferIDs:       offerIDs,
		RulesetVersion: views[0].RulesetVersion,
		IsReplayed:     true,
	}, nil
}

// beginIdempotent claims the key and decides whether to proceed. A nil
// return with nil error means this call owns the request; a non-nil record
// means a completed duplicate should be replayed.
func (c *offerCommandsImpl) beginIdempotent(
	ctx context.Context,
	key, userID uuid.UUID,
	endpoint, requestHash string,
) (*shared.IdempotencyRecord, error) {
	if key == uuid.Nil {
		return nil, nil
	}

	expiresAt := c.clock.Now().Add(c.cfg.IdempotencyTTL)

	var replay *shared.IdempotencyRecord
	err := c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		inserted, err := tx.Idempotency().TryInsert(ctx, tx.DB(), key, userID, endpoint, requestHash, expiresAt)
		if err != nil {
			return errs.Mark(err, ErrIdempotencyCheckFailed)
		}
		if inserted {
			return nil
		}

		existing, err := tx.Reads().IdempotencyByKey(ctx, key, userID)
		if err != nil {
			return errs.Mark(err, ErrIdempotencyCheckFailed)
		}

		switch existing.Status {
		case "completed":
			if existing.RequestHash != requestHash {
				return ErrDuplicateRequest
			}
			replay = existing
			return nil

		case "processing":
			if existing.RequestHash != requestHash {
				return ErrDuplicateRequest
			}
			if c.clock.Now().After(existing.ExpiresAt) {
				// Previous attempt died without completing; take the key over.
				claimed, err := tx.Idempotency().ClaimExpired(ctx, tx.DB(), key, userID, requestHash, expiresAt)
				if err != nil {
					return errs.Mark(err, ErrIdempotencyCheckFailed)
				}
				if claimed == 1 {
					return nil
				}
			}
			return ErrRequestInProgress

		default:
			return errs.Mark(errs.New("invalid idempotency key status"), ErrIdempotencyCheckFailed)
		}
	})
	if err != nil {
		return nil, err
	}
	return replay, nil
}

func (c *offerCommandsImpl) completeIdempotent(
	ctx context.Context,
	tx shared.Tx,
	key, userID uuid.UUID,
	response any,
	resultID uuid.UUID,
) error {
	if key == uuid.Nil {
		return nil
	}
	responseHash := calculateRequestHash(response)
	if err := tx.Idempotency().UpdateStatusCompleted(ctx, tx.DB(), key, userID, responseHash, resultID); err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return nil
}

func (c *offerCommandsImpl) publishAccepted(siteID uuid.UUID, result *AcceptResult) {
	c.publisher.Publish(siteOffersTopic(siteID), "offers.accepted", map[string]any{
		"shiftId":       result.ShiftID,
		"offerId":       result.OfferID,
		"winnerStaffId": result.WinnerStaffID,
		"won":           result.Won,
	})
}

func acceptEventType(won bool) string {
	if won {
		return "offer.accept_won"
	}
	return "offer.accept_lost"
}

func actorType(actorID uuid.UUID) string {
	if actorID == uuid.Nil {
		return "system"
	}
	return "staff"
}

func uuidPtrOrNil(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func siteOffersTopic(siteID uuid.UUID) string {
	return fmt.Sprintf("site:%s:offers", siteID)
}

func calculateRequestHash(v any) string {
	data, _ := json.Marshal(v)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
