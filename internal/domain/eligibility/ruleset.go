package eligibility

import (
	"fmt"
	"time"

	"rota-claims/internal/domain/shift"
	"rota-claims/internal/domain/staff"
)

const (
	// Working-time policy constants. These mirror the site handbook; a new
	// ruleset version is published when policy changes.
	minorMaxShiftHours = 8
	minRestHours       = 11

	CodeMinorMaxShift = "U18_MAX_SHIFT"
	CodeRestPeriod    = "REST_PERIOD"
	CodeWeeklyCap     = "WEEKLY_CAP"
)

// weeklyCapHours by contract type. Irregular and part-year contracts carry
// the statutory 48h cap; fixed/full-time staff are capped by their contracted
// pattern, approximated here.
var weeklyCapHours = map[staff.ContractType]float64{
	staff.ContractIrregular: 48,
	staff.ContractPartYear:  48,
	staff.ContractFixed:     40,
	staff.ContractFullTime:  48,
}

// Ruleset is the versioned, swappable working-time policy. It is pure: all
// inputs arrive as snapshots, so rules are deterministic and unit-testable
// without a store.
type Ruleset struct {
	version int32
}

func NewRuleset() *Ruleset {
	return &Ruleset{version: 1}
}

func (r *Ruleset) Version() int32 {
	return r.version
}

// Evaluate runs every rule for one candidate against one shift window.
// assigned holds the candidate's already-assigned shift windows within the
// surrounding week, used by the rest and cap rules.
func (r *Ruleset) Evaluate(window shift.TimeRange, candidate staff.Staff, assigned []shift.TimeRange) Result {
	checks := []Check{
		checkMinorShiftLength(window, candidate),
		checkRestPeriod(window, assigned),
		checkWeeklyCap(window, candidate, assigned),
	}

	return Result{
		StaffID: candidate.ID,
		Checks:  checks,
	}
}

func checkMinorShiftLength(window shift.TimeRange, candidate staff.Staff) Check {
	if candidate.AgeYears < 18 && window.Duration().Hours() > minorMaxShiftHours {
		return Check{
			Pass:   false,
			Code:   CodeMinorMaxShift,
			Reason: fmt.Sprintf("under 18s limited to %dh shifts", minorMaxShiftHours),
		}
	}
	return Check{Pass: true, Code: CodeMinorMaxShift, Reason: "shift length ok"}
}

func checkRestPeriod(window shift.TimeRange, assigned []shift.TimeRange) Check {
	rest := time.Duration(minRestHours) * time.Hour
	for _, other := range assigned {
		if window.Overlaps(other) {
			return Check{Pass: false, Code: CodeRestPeriod, Reason: "overlaps an assigned shift"}
		}
		gap := window.Start().Sub(other.End())
		if gap < 0 {
			gap = other.Start().Sub(window.End())
		}
		if gap < rest {
			return Check{
				Pass:   false,
				Code:   CodeRestPeriod,
				Reason: fmt.Sprintf("less than %dh rest from an assigned shift", minRestHours),
			}
		}
	}
	return Check{Pass: true, Code: CodeRestPeriod, Reason: "rest period ok"}
}

func checkWeeklyCap(window shift.TimeRange, candidate staff.Staff, assigned []shift.TimeRange) Check {
	cap, ok := weeklyCapHours[candidate.ContractType]
	if !ok {
		cap = 48
	}

	total := window.Duration().Hours()
	for _, other := range assigned {
		total += other.Duration().Hours()
	}
	if total > cap {
		return Check{
			Pass:   false,
			Code:   CodeWeeklyCap,
			Reason: fmt.Sprintf("would exceed %.0fh weekly cap for %s contract", cap, candidate.ContractType),
		}
	}
	return Check{Pass: true, Code: CodeWeeklyCap, Reason: "weekly hours ok"}
}
