package request

import (
	"github.com/google/uuid"
)

type IssueOfferBatchRequest struct {
	Size int `json:"size" binding:"required,min=1"`
}

// AcceptOfferRequest carries the recipient's claimed identity for callers
// without a session; an authenticated caller's token wins over this field.
type AcceptOfferRequest struct {
	StaffID *uuid.UUID `json:"staffId,omitempty"`
}

func (r AcceptOfferRequest) ActingStaffID() uuid.UUID {
	if r.StaffID == nil {
		return uuid.Nil
	}
	return *r.StaffID
}
