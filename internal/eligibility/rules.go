package eligibility

import (
	"fmt"
	"time"

	id "haulgate/pkg/domain"
)

const (
	dotMinimumMonths       = 6
	dotLapseMonths         = 12
	authorityMinimumMonths = 6
)

// Decide evaluates a carrier record against the escalated-invite rules as of
// today's calendar date. It is pure: no I/O, no clock, safe for parallel use.
//
// Rule priority (fail-fast, first match wins):
//  1. Safety rating - only SATISFACTORY or NOT RATED pass
//  2. Operating status - INACTIVE in either field rejects
//  3. DOT age - registration must be strictly past six months
//  4. Classification - interstate carriers also need mature authority
//
// Missing or unparsable inputs yield an indeterminate decision carrying the
// raw fields; they never reject or accept by default.
func Decide(record CarrierRecord, today time.Time) Decision {
	today = id.Day(today)

	// Rule 1: Safety rating
	switch record.SafetyRating.normalized() {
	case "":
		return indeterminate(record, CauseMissingSafetyRating, Marks{})
	case RatingSatisfactory, RatingNotRated:
	default:
		return Decision{
			Outcome: OutcomeIneligible,
			Reason:  ReasonSafetyRating,
			Message: fmt.Sprintf("safety rating %q is not acceptable", record.SafetyRating),
		}
	}

	// Rule 2: Operating status
	status, ok := ResolveStatus(record.PrimaryStatus, record.BackupStatus)
	if !ok {
		return indeterminate(record, CauseUnresolvedStatus, Marks{})
	}
	if status == StatusInactive {
		return Decision{
			Outcome: OutcomeIneligible,
			Reason:  ReasonInactiveStatus,
			Message: "carrier DOT status is inactive",
		}
	}

	// Rule 3: DOT age
	if record.DOTAddDate.IsZero() {
		return indeterminate(record, CauseMissingDOTAddDate, Marks{})
	}
	marks := Marks{DOTSixMonth: id.AddMonths(record.DOTAddDate, dotMinimumMonths)}
	if !today.After(marks.DOTSixMonth) {
		wait := id.DaysBetween(today, marks.DOTSixMonth)
		return Decision{
			Outcome:  OutcomeIneligible,
			Reason:   ReasonDotTooNew,
			WaitDays: wait,
			Marks:    marks,
			Message:  fmt.Sprintf("carrier DOT is not at least 6 months old; eligible in %d days", wait),
		}
	}

	// Rule 4: Classification
	switch record.OperationType.normalized() {
	case OperationIntrastate:
		return eligible(marks, "")
	case OperationInterstate:
		return decideInterstate(record, today, marks)
	default:
		return indeterminate(record, CauseUnknownOperationType, marks)
	}
}

// decideInterstate applies the authority-maturity check. The caller has
// already established that the DOT registration is past its six-month mark.
func decideInterstate(record CarrierRecord, today time.Time, marks Marks) Decision {
	if record.AuthorityGrantDate.IsZero() {
		return indeterminate(record, CauseMissingAuthorityGrantDate, marks)
	}
	marks.AuthoritySixMonth = id.AddMonths(record.AuthorityGrantDate, authorityMinimumMonths)
	marks.DOTTwelveMonth = id.AddMonths(record.DOTAddDate, dotLapseMonths)

	authorityMature := today.After(marks.AuthoritySixMonth)
	dotSixMature := today.After(marks.DOTSixMonth)
	dotTwelveMature := today.After(marks.DOTTwelveMonth)

	switch {
	case !authorityMature && !dotTwelveMature:
		wait := max(
			id.DaysBetween(today, marks.AuthoritySixMonth),
			id.DaysBetween(today, marks.DOTTwelveMonth),
		)
		return Decision{
			Outcome:  OutcomeIneligible,
			Reason:   ReasonCombinedAuthorityAndDotTooNew,
			WaitDays: wait,
			Marks:    marks,
			Message: fmt.Sprintf(
				"carrier authority is under 6 months and DOT is under 12 months; eligible in %d days", wait),
		}
	case authorityMature && dotSixMature:
		return eligible(marks, "")
	case !authorityMature && dotTwelveMature:
		return eligible(marks, LapseAllowanceNote)
	default:
		return indeterminate(record, CauseUncoveredDates, marks)
	}
}

// ResolveStatus derives the effective operating status from the primary and
// backup status fields. INACTIVE in either field wins over ACTIVE in the
// other. ok is false when neither field is present or neither is a
// recognized value.
func ResolveStatus(primary, backup OperatingStatus) (status OperatingStatus, ok bool) {
	p, b := primary.normalized(), backup.normalized()
	switch {
	case p == StatusInactive || b == StatusInactive:
		return StatusInactive, true
	case p == StatusActive || b == StatusActive:
		return StatusActive, true
	default:
		return "", false
	}
}

func eligible(marks Marks, note string) Decision {
	msg := "carrier satisfies escalated invite requirements"
	if note != "" {
		msg += " (" + note + ")"
	}
	return Decision{
		Outcome: OutcomeEligible,
		Note:    note,
		Marks:   marks,
		Message: msg,
	}
}

func indeterminate(record CarrierRecord, cause Cause, marks Marks) Decision {
	return Decision{
		Outcome: OutcomeIndeterminate,
		Cause:   cause,
		Fields:  record.RawFields(),
		Marks:   marks,
		Message: fmt.Sprintf("manual review required: %s", cause),
	}
}
