package testutil

import (
	"time"

	"haulgate/internal/eligibility"
	id "haulgate/pkg/domain"
)

// Date returns midnight UTC of the given calendar date.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordBuilder provides a fluent interface for building carrier records.
// The default record is an active, satisfactory, long-established interstate
// carrier that Decide accepts.
type RecordBuilder struct {
	record eligibility.CarrierRecord
}

func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{
		record: eligibility.CarrierRecord{
			DOTNumber:          id.DOTNumber("1234567"),
			LegalName:          "Sample Freight LLC",
			PrimaryStatus:      eligibility.StatusActive,
			BackupStatus:       eligibility.StatusActive,
			OperationType:      eligibility.OperationInterstate,
			DOTAddDate:         Date(2018, time.March, 1),
			AuthorityGrantDate: Date(2018, time.May, 15),
			SafetyRating:       eligibility.RatingSatisfactory,
		},
	}
}

func (b *RecordBuilder) WithDOT(dot string) *RecordBuilder {
	b.record.DOTNumber = id.DOTNumber(dot)
	return b
}

func (b *RecordBuilder) WithStatus(primary, backup eligibility.OperatingStatus) *RecordBuilder {
	b.record.PrimaryStatus = primary
	b.record.BackupStatus = backup
	return b
}

func (b *RecordBuilder) WithOperation(op eligibility.OperationType) *RecordBuilder {
	b.record.OperationType = op
	return b
}

func (b *RecordBuilder) WithRating(r eligibility.SafetyRating) *RecordBuilder {
	b.record.SafetyRating = r
	return b
}

func (b *RecordBuilder) WithDOTAddDate(t time.Time) *RecordBuilder {
	b.record.DOTAddDate = t
	return b
}

func (b *RecordBuilder) WithAuthorityGrantDate(t time.Time) *RecordBuilder {
	b.record.AuthorityGrantDate = t
	return b
}

func (b *RecordBuilder) Build() eligibility.CarrierRecord {
	return b.record
}
