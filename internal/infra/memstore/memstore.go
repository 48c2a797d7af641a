// Package memstore is an in-memory UnitOfWork used by usecase tests. A
// mutex held for the whole transaction gives the same winner-take-all
// behavior as the store-level conditional UPDATE, so command tests can race
// goroutines against it without a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"rota-claims/internal/domain/offer"
	"rota-claims/internal/domain/shift"
	"rota-claims/internal/domain/staff"
	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"
	"rota-claims/internal/usecase/queries"
	"rota-claims/internal/usecase/shared"

	"github.com/google/uuid"
)

type idemKey struct {
	key    uuid.UUID
	userID uuid.UUID
}

type Store struct {
	mu sync.Mutex

	shifts      map[uuid.UUID]shared.ShiftSnapshot
	offers      map[uuid.UUID]shared.OfferSnapshot
	staff       map[uuid.UUID]staff.Staff
	idempotency map[idemKey]shared.IdempotencyRecord
	audits      []shared.AuditEvent
}

func New() *Store {
	return &Store{
		shifts:      make(map[uuid.UUID]shared.ShiftSnapshot),
		offers:      make(map[uuid.UUID]shared.OfferSnapshot),
		staff:       make(map[uuid.UUID]staff.Staff),
		idempotency: make(map[idemKey]shared.IdempotencyRecord),
	}
}

// Seed helpers for test setup.

func (s *Store) PutShift(snap shared.ShiftSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shifts[snap.ID] = snap
}

func (s *Store) PutOffer(snap shared.OfferSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[snap.ID] = snap
}

func (s *Store) PutStaff(member staff.Staff) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staff[member.ID] = member
}

func (s *Store) Shift(id uuid.UUID) (shared.ShiftSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.shifts[id]
	return snap, ok
}

func (s *Store) Offer(id uuid.UUID) (shared.OfferSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.offers[id]
	return snap, ok
}

func (s *Store) Audits() []shared.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]shared.AuditEvent, len(s.audits))
	copy(out, s.audits)
	return out
}

// Within serializes transactions on one mutex and restores the pre-tx state
// when fn fails, matching the rollback semantics commands rely on.
func (s *Store) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	backup := s.snapshot()
	tx := &memTx{store: s}
	if err := fn(ctx, tx); err != nil {
		s.restore(backup)
		return err
	}
	return nil
}

func (s *Store) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

func (s *Store) CommandReads() shared.CommandReads {
	return &memReads{store: s, locked: false}
}

type memSnapshot struct {
	shifts      map[uuid.UUID]shared.ShiftSnapshot
	offers      map[uuid.UUID]shared.OfferSnapshot
	idempotency map[idemKey]shared.IdempotencyRecord
	auditLen    int
}

func (s *Store) snapshot() memSnapshot {
	snap := memSnapshot{
		shifts:      make(map[uuid.UUID]shared.ShiftSnapshot, len(s.shifts)),
		offers:      make(map[uuid.UUID]shared.OfferSnapshot, len(s.offers)),
		idempotency: make(map[idemKey]shared.IdempotencyRecord, len(s.idempotency)),
		auditLen:    len(s.audits),
	}
	for k, v := range s.shifts {
		snap.shifts[k] = v
	}
	for k, v := range s.offers {
		snap.offers[k] = v
	}
	for k, v := range s.idempotency {
		snap.idempotency[k] = v
	}
	return snap
}

func (s *Store) restore(snap memSnapshot) {
	s.shifts = snap.shifts
	s.offers = snap.offers
	s.idempotency = snap.idempotency
	s.audits = s.audits[:snap.auditLen]
}

type memTx struct {
	store *Store
}

func (t *memTx) DB() db.DBTX                            { return nil }
func (t *memTx) Shifts() shared.ShiftRepository         { return &memShiftRepo{store: t.store} }
func (t *memTx) Offers() shared.OfferRepository         { return &memOfferRepo{store: t.store} }
func (t *memTx) Idempotency() shared.IdempotencyRepository {
	return &memIdempotencyRepo{store: t.store}
}
func (t *memTx) Audit() shared.AuditRepository { return &memAuditRepo{store: t.store} }
func (t *memTx) Reads() shared.CommandReads    { return &memReads{store: t.store, locked: true} }

type memShiftRepo struct {
	store *Store
}

func (r *memShiftRepo) Create(_ context.Context, _ db.DBTX, sh *shift.Shift) (uuid.UUID, error) {
	r.store.shifts[sh.ID()] = shared.ShiftSnapshot{
		ID:              sh.ID(),
		SiteID:          sh.SiteID(),
		Role:            sh.Role(),
		StartsAt:        sh.TimeRange().Start(),
		EndsAt:          sh.TimeRange().End(),
		Status:          sh.Status().String(),
		AssignedStaffID: sh.AssignedStaffID(),
		Source:          sh.Source().String(),
	}
	return sh.ID(), nil
}

func (r *memShiftRepo) Update(_ context.Context, _ db.DBTX, sh *shift.Shift) error {
	current, ok := r.store.shifts[sh.ID()]
	if !ok || (current.Status != shift.StatusDraft.String() && current.Status != shift.StatusPublished.String()) {
		return infra.WrapRepoErr("shift not found or not editable", nil, infra.KindNotFound)
	}
	current.Role = sh.Role()
	current.StartsAt = sh.TimeRange().Start()
	current.EndsAt = sh.TimeRange().End()
	current.Status = sh.Status().String()
	r.store.shifts[sh.ID()] = current
	return nil
}

func (r *memShiftRepo) AssignIfUnassigned(_ context.Context, _ db.DBTX, shiftID, staffID uuid.UUID) (bool, error) {
	current, ok := r.store.shifts[shiftID]
	if !ok || current.AssignedStaffID != nil || current.Status != shift.StatusPublished.String() {
		return false, nil
	}
	id := staffID
	current.AssignedStaffID = &id
	current.Status = shift.StatusFilled.String()
	r.store.shifts[shiftID] = current
	return true, nil
}

func (r *memShiftRepo) MarkSickness(_ context.Context, _ db.DBTX, shiftID uuid.UUID) error {
	current, ok := r.store.shifts[shiftID]
	if !ok || (current.Status != shift.StatusPublished.String() && current.Status != shift.StatusFilled.String()) {
		return infra.WrapRepoErr("shift not found or not active", nil, infra.KindConflict)
	}
	current.Status = shift.StatusCancelled.String()
	r.store.shifts[shiftID] = current
	return nil
}

type memOfferRepo struct {
	store *Store
}

func (r *memOfferRepo) CreateBatch(_ context.Context, _ db.DBTX, offers []*offer.Offer) error {
	for _, o := range offers {
		r.store.offers[o.ID()] = shared.OfferSnapshot{
			ID:             o.ID(),
			ShiftID:        o.ShiftID(),
			RecipientID:    o.RecipientID(),
			BatchID:        o.BatchID(),
			RulesetVersion: o.RulesetVersion(),
			Status:         o.Status().String(),
			SentAt:         o.SentAt(),
		}
	}
	return nil
}

func (r *memOfferRepo) MarkAccepted(_ context.Context, _ db.DBTX, offerID uuid.UUID, at time.Time) error {
	current, ok := r.store.offers[offerID]
	if !ok || current.Status != offer.StatusSent.String() {
		return nil
	}
	t := at
	current.Status = offer.StatusAccepted.String()
	current.AcceptedAt = &t
	r.store.offers[offerID] = current
	return nil
}

func (r *memOfferRepo) Close(_ context.Context, _ db.DBTX, offerID uuid.UUID) error {
	current, ok := r.store.offers[offerID]
	if !ok || current.Status != offer.StatusSent.String() {
		return nil
	}
	current.Status = offer.StatusClosed.String()
	r.store.offers[offerID] = current
	return nil
}

func (r *memOfferRepo) CloseSiblings(_ context.Context, _ db.DBTX, shiftID, excludeOfferID uuid.UUID) (int64, error) {
	var closed int64
	for id, current := range r.store.offers {
		if current.ShiftID != shiftID || id == excludeOfferID || current.Status != offer.StatusSent.String() {
			continue
		}
		current.Status = offer.StatusClosed.String()
		r.store.offers[id] = current
		closed++
	}
	return closed, nil
}

func (r *memOfferRepo) MarkExpired(_ context.Context, _ db.DBTX, offerID uuid.UUID) error {
	current, ok := r.store.offers[offerID]
	if !ok || current.Status != offer.StatusSent.String() {
		return nil
	}
	current.Status = offer.StatusExpired.String()
	r.store.offers[offerID] = current
	return nil
}

func (r *memOfferRepo) ExpireOverdue(_ context.Context, _ db.DBTX, cutoff time.Time) (int64, error) {
	var expired int64
	for id, current := range r.store.offers {
		if current.Status != offer.StatusSent.String() || !current.SentAt.Before(cutoff) {
			continue
		}
		current.Status = offer.StatusExpired.String()
		r.store.offers[id] = current
		expired++
	}
	return expired, nil
}

type memIdempotencyRepo struct {
	store *Store
}

func (r *memIdempotencyRepo) TryInsert(_ context.Context, _ db.DBTX, key, userID uuid.UUID, _, requestHash string, expiresAt time.Time) (bool, error) {
	k := idemKey{key: key, userID: userID}
	if _, exists := r.store.idempotency[k]; exists {
		return false, nil
	}
	r.store.idempotency[k] = shared.IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		Status:      "processing",
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return true, nil
}

func (r *memIdempotencyRepo) UpdateStatusCompleted(_ context.Context, _ db.DBTX, key, userID uuid.UUID, _ string, resultID uuid.UUID) error {
	k := idemKey{key: key, userID: userID}
	current, ok := r.store.idempotency[k]
	if !ok {
		return nil
	}
	id := resultID
	current.Status = "completed"
	current.ResultID = &id
	r.store.idempotency[k] = current
	return nil
}

func (r *memIdempotencyRepo) ClaimExpired(_ context.Context, _ db.DBTX, key, userID uuid.UUID, requestHash string, expiresAt time.Time) (int64, error) {
	k := idemKey{key: key, userID: userID}
	current, ok := r.store.idempotency[k]
	if !ok || current.Status != "processing" || !current.ExpiresAt.Before(time.Now()) {
		return 0, nil
	}
	current.RequestHash = requestHash
	current.ExpiresAt = expiresAt
	r.store.idempotency[k] = current
	return 1, nil
}

func (r *memIdempotencyRepo) DeleteExpired(_ context.Context, _ db.DBTX) (int64, error) {
	var deleted int64
	now := time.Now()
	for k, rec := range r.store.idempotency {
		if rec.ExpiresAt.Before(now) {
			delete(r.store.idempotency, k)
			deleted++
		}
	}
	return deleted, nil
}

type memAuditRepo struct {
	store *Store
}

func (r *memAuditRepo) Record(_ context.Context, _ db.DBTX, event shared.AuditEvent) error {
	r.store.audits = append(r.store.audits, event)
	return nil
}

// memReads serves CommandReads both inside a transaction (lock already
// held) and outside one.
type memReads struct {
	store  *Store
	locked bool
}

func (r *memReads) lock() func() {
	if r.locked {
		return func() {}
	}
	r.store.mu.Lock()
	return r.store.mu.Unlock
}

func (r *memReads) ShiftByID(_ context.Context, id uuid.UUID) (*shared.ShiftSnapshot, error) {
	defer r.lock()()
	snap, ok := r.store.shifts[id]
	if !ok {
		return nil, infra.WrapRepoErr("shift not found", nil, infra.KindNotFound)
	}
	return &snap, nil
}

func (r *memReads) OfferByID(_ context.Context, id uuid.UUID) (*shared.OfferSnapshot, error) {
	defer r.lock()()
	snap, ok := r.store.offers[id]
	if !ok {
		return nil, infra.WrapRepoErr("offer not found", nil, infra.KindNotFound)
	}
	if shiftSnap, ok := r.store.shifts[snap.ShiftID]; ok {
		snap.SiteID = shiftSnap.SiteID
	}
	return &snap, nil
}

func (r *memReads) IdempotencyByKey(_ context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	defer r.lock()()
	rec, ok := r.store.idempotency[idemKey{key: key, userID: userID}]
	if !ok {
		return nil, infra.WrapRepoErr("idempotency key not found", nil, infra.KindNotFound)
	}
	return &rec, nil
}

// Read-store adapters so query services run against the same data.

func (s *Store) ShiftReads() queries.ShiftReadStore {
	return &shiftReads{store: s}
}

func (s *Store) OfferReads() queries.OfferReadStore {
	return &offerReads{store: s}
}

type shiftReads struct {
	store *Store
}

func (r *shiftReads) FindByID(_ context.Context, id uuid.UUID) (*queries.ShiftView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.shifts[id]
	if !ok {
		return nil, infra.WrapRepoErr("shift not found", nil, infra.KindNotFound)
	}
	view := shiftSnapshotToView(snap)
	return &view, nil
}

func (r *shiftReads) ListBySite(_ context.Context, siteID uuid.UUID, from, to *time.Time) ([]*queries.ShiftView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]*queries.ShiftView, 0)
	for _, snap := range s.shifts {
		if snap.SiteID != siteID {
			continue
		}
		if from != nil && snap.StartsAt.Before(*from) {
			continue
		}
		if to != nil && !snap.StartsAt.Before(*to) {
			continue
		}
		view := shiftSnapshotToView(snap)
		views = append(views, &view)
	}
	sortShiftViews(views)
	return views, nil
}

func (r *shiftReads) ListAssignedToStaffBetween(_ context.Context, staffID uuid.UUID, from, to time.Time) ([]*queries.ShiftView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]*queries.ShiftView, 0)
	for _, snap := range s.shifts {
		if snap.AssignedStaffID == nil || *snap.AssignedStaffID != staffID {
			continue
		}
		if snap.Status != shift.StatusFilled.String() {
			continue
		}
		if snap.StartsAt.Before(from) || !snap.StartsAt.Before(to) {
			continue
		}
		view := shiftSnapshotToView(snap)
		views = append(views, &view)
	}
	sortShiftViews(views)
	return views, nil
}

type offerReads struct {
	store *Store
}

func (r *offerReads) FindByID(_ context.Context, id uuid.UUID) (*queries.OfferView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.offers[id]
	if !ok {
		return nil, infra.WrapRepoErr("offer not found", nil, infra.KindNotFound)
	}
	view := offerViewFromSnapshot(snap)
	return &view, nil
}

func (r *offerReads) ListByShift(_ context.Context, shiftID uuid.UUID) ([]*queries.OfferView, error) {
	return r.list(func(snap shared.OfferSnapshot) bool { return snap.ShiftID == shiftID })
}

func (r *offerReads) ListByBatch(_ context.Context, batchID uuid.UUID) ([]*queries.OfferView, error) {
	return r.list(func(snap shared.OfferSnapshot) bool { return snap.BatchID == batchID })
}

func (r *offerReads) list(match func(shared.OfferSnapshot) bool) ([]*queries.OfferView, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]*queries.OfferView, 0)
	for _, snap := range s.offers {
		if !match(snap) {
			continue
		}
		view := offerViewFromSnapshot(snap)
		views = append(views, &view)
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].SentAt.Equal(views[j].SentAt) {
			return views[i].ID.String() < views[j].ID.String()
		}
		return views[i].SentAt.Before(views[j].SentAt)
	})
	return views, nil
}

func offerViewFromSnapshot(snap shared.OfferSnapshot) queries.OfferView {
	return queries.OfferView{
		ID:             snap.ID,
		ShiftID:        snap.ShiftID,
		RecipientID:    snap.RecipientID,
		BatchID:        snap.BatchID,
		RulesetVersion: snap.RulesetVersion,
		Status:         snap.Status,
		SentAt:         snap.SentAt,
		AcceptedAt:     snap.AcceptedAt,
	}
}

// StaffReads adapts the store to the staff read interface; the method name
// would otherwise collide with the shift list.
func (s *Store) StaffReads() queries.StaffReadStore {
	return &staffReads{store: s}
}

type staffReads struct {
	store *Store
}

func (r *staffReads) ListBySite(_ context.Context, siteID uuid.UUID) ([]staff.Staff, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]staff.Staff, 0)
	for _, member := range s.staff {
		if member.SiteID == siteID {
			members = append(members, member)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].FullName == members[j].FullName {
			return members[i].ID.String() < members[j].ID.String()
		}
		return strings.Compare(members[i].FullName, members[j].FullName) < 0
	})
	return members, nil
}

func shiftSnapshotToView(snap shared.ShiftSnapshot) queries.ShiftView {
	return queries.ShiftView{
		ID:              snap.ID,
		SiteID:          snap.SiteID,
		Role:            snap.Role,
		StartsAt:        snap.StartsAt,
		EndsAt:          snap.EndsAt,
		Status:          snap.Status,
		AssignedStaffID: snap.AssignedStaffID,
		Source:          snap.Source,
	}
}

func sortShiftViews(views []*queries.ShiftView) {
	sort.Slice(views, func(i, j int) bool {
		if views[i].StartsAt.Equal(views[j].StartsAt) {
			return views[i].ID.String() < views[j].ID.String()
		}
		return views[i].StartsAt.Before(views[j].StartsAt)
	})
}
