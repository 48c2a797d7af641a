package eligibility

import "github.com/google/uuid"

// Check is one rule outcome for one staff member. Code is a stable machine
// identifier; Reason is operator-facing text.
type Check struct {
	Pass   bool   `json:"pass"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Result is the full rule evaluation for one candidate.
type Result struct {
	StaffID uuid.UUID `json:"staffId"`
	Checks  []Check   `json:"checks"`
}

// Eligible reports whether every check passed. A staff member with any
// failing check never receives an offer.
func (r Result) Eligible() bool {
	for _, c := range r.Checks {
		if !c.Pass {
			return false
		}
	}
	return true
}
