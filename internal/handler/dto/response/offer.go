package response

import (
	"time"

	"rota-claims/internal/usecase/commands"
	"rota-claims/internal/usecase/queries"

	"github.com/google/uuid"
)

type IssueOfferBatchResponse struct {
	ShiftID        uuid.UUID   `json:"shiftId"`
	OfferIDs       []uuid.UUID `json:"offerIds"`
	RulesetVersion int32       `json:"rulesetVersion"`
}

func FromIssueBatchResult(result *commands.IssueBatchResult) *IssueOfferBatchResponse {
	return &IssueOfferBatchResponse{
		ShiftID:        result.ShiftID,
		OfferIDs:       result.OfferIDs,
		RulesetVersion: result.RulesetVersion,
	}
}

type AcceptOfferResponse struct {
	ShiftID       uuid.UUID  `json:"shiftId"`
	OfferID       uuid.UUID  `json:"offerId"`
	WinnerStaffID *uuid.UUID `json:"winnerStaffId,omitempty"`
	Won           bool       `json:"won"`
}

func FromAcceptResult(result *commands.AcceptResult) *AcceptOfferResponse {
	return &AcceptOfferResponse{
		ShiftID:       result.ShiftID,
		OfferID:       result.OfferID,
		WinnerStaffID: result.WinnerStaffID,
		Won:           result.Won,
	}
}

type CloseOfferResponse struct {
	OK bool `json:"ok"`
}

type OfferResponse struct {
	ID          uuid.UUID  `json:"id"`
	ShiftID     uuid.UUID  `json:"shiftId"`
	RecipientID uuid.UUID  `json:"recipientId"`
	Status      string     `json:"status"`
	SentAt      time.Time  `json:"sentAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
}

func FromOfferView(view *queries.OfferView) *OfferResponse {
	return &OfferResponse{
		ID:          view.ID,
		ShiftID:     view.ShiftID,
		RecipientID: view.RecipientID,
		Status:      view.Status,
		SentAt:      view.SentAt,
		AcceptedAt:  view.AcceptedAt,
	}
}
