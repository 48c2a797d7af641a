package staff

import (
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidContractType = errors.New("invalid contract type")

// ContractType mirrors the HR system's employment categories. It feeds the
// eligibility rules (weekly hour caps differ per contract).
type ContractType string

const (
	ContractIrregular ContractType = "irregular"
	ContractPartYear  ContractType = "part_year"
	ContractFixed     ContractType = "fixed"
	ContractFullTime  ContractType = "full_time"
)

func NewContractType(s string) (ContractType, error) {
	switch ContractType(s) {
	case ContractIrregular, ContractPartYear, ContractFixed, ContractFullTime:
		return ContractType(s), nil
	default:
		return "", ErrInvalidContractType
	}
}

func (c ContractType) String() string { return string(c) }

// Role is the API caller role carried in JWT claims.
type Role string

const (
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

func (r Role) String() string { return string(r) }

// Staff is read-only input to this service; HR/admin systems own the write
// path. It is a plain snapshot rather than a guarded aggregate.
type Staff struct {
	ID             uuid.UUID
	SiteID         uuid.UUID
	FullName       string
	AgeYears       int
	ContractType   ContractType
	Skills         []string
	HourlyRateCent int64
	TroncEligible  bool
	WhatsappOptIn  bool
}
