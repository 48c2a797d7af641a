package response

import (
	"time"

	"rota-claims/internal/domain/eligibility"
	"rota-claims/internal/usecase/commands"
	"rota-claims/internal/usecase/queries"

	"github.com/google/uuid"
)

type ShiftResponse struct {
	ID              uuid.UUID  `json:"id"`
	SiteID          uuid.UUID  `json:"siteId"`
	Role            string     `json:"role"`
	StartsAt        time.Time  `json:"startsAt"`
	EndsAt          time.Time  `json:"endsAt"`
	Status          string     `json:"status"`
	AssignedStaffID *uuid.UUID `json:"assignedStaffId,omitempty"`
	Source          string     `json:"source"`
}

func FromShiftView(view *queries.ShiftView) *ShiftResponse {
	return &ShiftResponse{
		ID:              view.ID,
		SiteID:          view.SiteID,
		Role:            view.Role,
		StartsAt:        view.StartsAt,
		EndsAt:          view.EndsAt,
		Status:          view.Status,
		AssignedStaffID: view.AssignedStaffID,
		Source:          view.Source,
	}
}

type UpsertShiftResponse struct {
	ID uuid.UUID `json:"id"`
}

type SicknessResponse struct {
	ShiftID            uuid.UUID `json:"shiftId"`
	ReplacementShiftID uuid.UUID `json:"replacementShiftId"`
}

func FromSicknessResult(result *commands.SicknessResult) *SicknessResponse {
	return &SicknessResponse{
		ShiftID:            result.ShiftID,
		ReplacementShiftID: result.ReplacementShiftID,
	}
}

type EligibilityCheckResponse struct {
	Pass   bool   `json:"pass"`
	Code   string `json:"code"`
	Reason string `json:"reason,omitempty"`
}

type EligibilityResultResponse struct {
	StaffID  uuid.UUID                  `json:"staffId"`
	Eligible bool                       `json:"eligible"`
	Checks   []EligibilityCheckResponse `json:"checks"`
}

type EligibilityResponse struct {
	RulesetVersion int32                       `json:"rulesetVersion"`
	Results        []EligibilityResultResponse `json:"results"`
}

func FromEligibilityResults(results []eligibility.Result, version int32) *EligibilityResponse {
	out := &EligibilityResponse{
		RulesetVersion: version,
		Results:        make([]EligibilityResultResponse, len(results)),
	}
	for i, r := range results {
		checks := make([]EligibilityCheckResponse, len(r.Checks))
		for j, ch := range r.Checks {
			checks[j] = EligibilityCheckResponse{Pass: ch.Pass, Code: ch.Code, Reason: ch.Reason}
		}
		out.Results[i] = EligibilityResultResponse{
			StaffID:  r.StaffID,
			Eligible: r.Eligible(),
			Checks:   checks,
		}
	}
	return out
}
