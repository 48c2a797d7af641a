package readstore

import (
	"context"

	"rota-claims/internal/domain/staff"
	"rota-claims/internal/infra"
	"rota-claims/internal/infra/db"

	"github.com/google/uuid"
)

// StaffReadStore is the only access this service has to staff data; HR owns
// the write path.
type StaffReadStore struct {
	db db.DBTX
}

func NewStaffReadStore(db db.DBTX) *StaffReadStore {
	return &StaffReadStore{db: db}
}

const listStaffBySiteSQL = `
SELECT id, site_id, full_name, age_years, contract_type, skills, hourly_rate_cents, tronc_eligible, whatsapp_opt_in
FROM staff
WHERE site_id = $1
ORDER BY full_name, id
`

func (r *StaffReadStore) ListBySite(ctx context.Context, siteID uuid.UUID) ([]staff.Staff, error) {
	rows, err := r.db.Query(ctx, listStaffBySiteSQL, siteID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list site staff", err)
	}
	defer rows.Close()

	members := make([]staff.Staff, 0)
	for rows.Next() {
		var (
			member       staff.Staff
			contractType string
		)
		err := rows.Scan(
			&member.ID, &member.SiteID, &member.FullName,
			&member.AgeYears, &contractType, &member.Skills,
			&member.HourlyRateCent, &member.TroncEligible, &member.WhatsappOptIn,
		)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan staff row", err)
		}
		ct, err := staff.NewContractType(contractType)
		if err != nil {
			return nil, infra.WrapRepoErr("stored staff has invalid contract type", err)
		}
		member.ContractType = ct
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read staff rows", err)
	}
	return members, nil
}
