package eligibility

import (
	"maps"
	"strings"
	"time"

	id "haulgate/pkg/domain"
)

// OperatingStatus is a carrier's operating status as reported by the registry.
// The empty value means the field was absent.
type OperatingStatus string

const (
	StatusActive   OperatingStatus = "ACTIVE"
	StatusInactive OperatingStatus = "INACTIVE"
)

func (s OperatingStatus) normalized() OperatingStatus {
	return OperatingStatus(strings.ToUpper(strings.TrimSpace(string(s))))
}

// OperationType classifies where a carrier may operate.
type OperationType string

const (
	OperationIntrastate OperationType = "INTRASTATE"
	OperationInterstate OperationType = "INTERSTATE"
)

func (o OperationType) normalized() OperationType {
	return OperationType(strings.ToUpper(strings.TrimSpace(string(o))))
}

// SafetyRating is the regulator-assigned compliance grade.
// The empty value means the field was absent.
type SafetyRating string

const (
	RatingSatisfactory   SafetyRating = "SATISFACTORY"
	RatingNotRated       SafetyRating = "NOT RATED"
	RatingConditional    SafetyRating = "CONDITIONAL"
	RatingUnsatisfactory SafetyRating = "UNSATISFACTORY"
)

// normalized upper-cases the rating and accepts NOT_RATED as NOT RATED.
func (r SafetyRating) normalized() SafetyRating {
	v := strings.ToUpper(strings.TrimSpace(string(r)))
	return SafetyRating(strings.ReplaceAll(v, "_", " "))
}

// CarrierRecord is a snapshot of a carrier's regulatory status at lookup time.
// Zero dates mean the field was absent or could not be parsed; Raw keeps the
// fields exactly as received so indeterminate cases can be triaged by hand.
type CarrierRecord struct {
	DOTNumber          id.DOTNumber
	LegalName          string
	PrimaryStatus      OperatingStatus
	BackupStatus       OperatingStatus
	OperationType      OperationType
	DOTAddDate         time.Time
	AuthorityGrantDate time.Time
	SafetyRating       SafetyRating
	Raw                map[string]string
}

// Raw field keys.
const (
	FieldDOTNumber          = "dot_number"
	FieldLegalName          = "legal_name"
	FieldPrimaryStatus      = "operating_status"
	FieldBackupStatus       = "backup_status"
	FieldOperationType      = "carrier_operation"
	FieldDOTAddDate         = "dot_add_date"
	FieldAuthorityGrantDate = "auth_grant_date"
	FieldSafetyRating       = "safety_rating"
)

// RawFields returns a copy of the record's raw field dump. Records built
// without one (tests, other sources) get a dump rendered from typed fields.
func (r CarrierRecord) RawFields() map[string]string {
	if len(r.Raw) > 0 {
		return maps.Clone(r.Raw)
	}
	return map[string]string{
		FieldDOTNumber:          r.DOTNumber.String(),
		FieldLegalName:          r.LegalName,
		FieldPrimaryStatus:      string(r.PrimaryStatus),
		FieldBackupStatus:       string(r.BackupStatus),
		FieldOperationType:      string(r.OperationType),
		FieldDOTAddDate:         formatDate(r.DOTAddDate),
		FieldAuthorityGrantDate: formatDate(r.AuthorityGrantDate),
		FieldSafetyRating:       string(r.SafetyRating),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(id.DateLayout)
}

// Outcome enumerates the eligibility outcomes.
type Outcome string

const (
	OutcomeEligible      Outcome = "eligible"
	OutcomeIneligible    Outcome = "ineligible"
	OutcomeIndeterminate Outcome = "indeterminate"
)

// Reason explains an ineligible outcome.
type Reason string

const (
	ReasonSafetyRating   Reason = "safety_rating"
	ReasonInactiveStatus Reason = "inactive_status"
	ReasonDotTooNew      Reason = "dot_too_new"
	// ReasonCombinedAuthorityAndDotTooNew covers young authority as well: the
	// DOT gate always runs first, so authority is never too new on its own.
	ReasonCombinedAuthorityAndDotTooNew Reason = "combined_authority_and_dot_too_new"
)

// Cause explains an indeterminate outcome.
type Cause string

const (
	CauseMissingSafetyRating       Cause = "missing_safety_rating"
	CauseUnresolvedStatus          Cause = "unresolved_status"
	CauseMissingDOTAddDate         Cause = "missing_dot_add_date"
	CauseMissingAuthorityGrantDate Cause = "missing_authority_grant_date"
	CauseUnknownOperationType      Cause = "unknown_operation_type"
	CauseUncoveredDates            Cause = "uncovered_date_combination"
)

// LapseAllowanceNote annotates interstate carriers accepted on DOT maturity
// while their authority is still under six months old.
const LapseAllowanceNote = "authority under six months; DOT registration over twelve months covers the lapse"

// Marks are the maturity dates computed during evaluation. Zero values were
// not needed to reach the decision.
type Marks struct {
	DOTSixMonth       time.Time
	DOTTwelveMonth    time.Time
	AuthoritySixMonth time.Time
}

// Decision is the single auditable result of an eligibility evaluation.
//
//   - Eligible: Note may carry an annotation.
//   - Ineligible: Reason is set; WaitDays is the remaining wait where one applies.
//   - Indeterminate: Cause is set and Fields holds the raw record dump.
type Decision struct {
	Outcome  Outcome
	Reason   Reason
	WaitDays int
	Note     string
	Cause    Cause
	Fields   map[string]string
	Marks    Marks
	Message  string
}

// IsEligible reports whether the carrier may be invited.
func (d Decision) IsEligible() bool { return d.Outcome == OutcomeEligible }
