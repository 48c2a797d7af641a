package repository

import (
	"context"
	"encoding/json"

	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"
	"rota-claims/internal/usecase/shared"
)

type AuditRepository struct{}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

const insertAuditEventSQL = `
INSERT INTO audit_events (actor_type, actor_id, event_type, entity, entity_id, details)
VALUES ($1, $2, $3, $4, $5, $6)
`

// Record writes one trail row in the caller's transaction so the audit entry
// commits or rolls back together with the change it describes.
func (r *AuditRepository) Record(ctx context.Context, tx db.DBTX, event shared.AuditEvent) error {
	details := event.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return infra.WrapRepoErr("failed to encode audit details", err)
	}

	if _, err := tx.Exec(ctx, insertAuditEventSQL,
		event.ActorType, event.ActorID, event.EventType,
		event.Entity, event.EntityID, payload,
	); err != nil {
		return infra.WrapRepoErr("failed to record audit event", err, pgErrorKind(err))
	}
	return nil
}
