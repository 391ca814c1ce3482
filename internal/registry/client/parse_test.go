package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"haulgate/internal/eligibility"
	id "haulgate/pkg/domain"
	"haulgate/pkg/platform/upstream"
)

const fullLookup = `<?xml version="1.0" encoding="UTF-8"?>
<CarrierService32>
  <ResponseDO>
    <status>SUCCESS</status>
    <action>CarrierLookup</action>
    <code>1</code>
    <displayMsg></displayMsg>
  </ResponseDO>
  <CarrierDetails>
    <docketNumber prefix="MC">123456</docketNumber>
    <dotNumber status="ACTIVE">1234567</dotNumber>
    <Identity>
      <legalName>Sample Freight LLC</legalName>
      <dbaName/>
    </Identity>
    <Authority>
      <authGrantDate>2018-05-15</authGrantDate>
      <commonAuthority>A</commonAuthority>
    </Authority>
    <Operation>
      <operatingStatus>ACTIVE</operatingStatus>
      <carrierOperation>INTERSTATE</carrierOperation>
      <dotAddDate>2018-03-01</dotAddDate>
    </Operation>
    <Safety>
      <rating>SATISFACTORY</rating>
      <ratingDate>2019-01-10</ratingDate>
    </Safety>
  </CarrierDetails>
</CarrierService32>`

type ParseSuite struct {
	suite.Suite
}

func TestParseSuite(t *testing.T) {
	suite.Run(t, new(ParseSuite))
}

func (s *ParseSuite) TestFullPayload() {
	rec, err := parseLookup(id.DOTNumber("1234567"), []byte(fullLookup))
	s.Require().NoError(err)

	s.Equal(id.DOTNumber("1234567"), rec.DOTNumber)
	s.Equal("Sample Freight LLC", rec.LegalName)
	s.Equal(eligibility.StatusActive, rec.PrimaryStatus)
	s.Equal(eligibility.StatusActive, rec.BackupStatus)
	s.Equal(eligibility.OperationInterstate, rec.OperationType)
	s.Equal(eligibility.RatingSatisfactory, rec.SafetyRating)
	s.Equal(time.Date(2018, 3, 1, 0, 0, 0, 0, time.UTC), rec.DOTAddDate)
	s.Equal(time.Date(2018, 5, 15, 0, 0, 0, 0, time.UTC), rec.AuthorityGrantDate)

	s.Equal(map[string]string{
		eligibility.FieldDOTNumber:          "1234567",
		eligibility.FieldLegalName:          "Sample Freight LLC",
		eligibility.FieldPrimaryStatus:      "ACTIVE",
		eligibility.FieldBackupStatus:       "ACTIVE",
		eligibility.FieldOperationType:      "INTERSTATE",
		eligibility.FieldDOTAddDate:         "2018-03-01",
		eligibility.FieldAuthorityGrantDate: "2018-05-15",
		eligibility.FieldSafetyRating:       "SATISFACTORY",
	}, rec.Raw)
}

func (s *ParseSuite) TestPartialPayload() {
	s.Run("missing sections leave fields absent", func() {
		body := `<CarrierService32><CarrierDetails>
			<dotNumber>7654321</dotNumber>
			<Operation><carrierOperation>INTRASTATE</carrierOperation></Operation>
		</CarrierDetails></CarrierService32>`
		rec, err := parseLookup(id.DOTNumber("7654321"), []byte(body))
		s.Require().NoError(err)
		s.Empty(rec.PrimaryStatus)
		s.Empty(rec.BackupStatus)
		s.Empty(rec.SafetyRating)
		s.True(rec.DOTAddDate.IsZero())
		s.True(rec.AuthorityGrantDate.IsZero())
		s.Equal(eligibility.OperationIntrastate, rec.OperationType)
		s.NotContains(rec.Raw, eligibility.FieldSafetyRating)
	})

	s.Run("unparsable dates are absent but kept raw", func() {
		body := `<CarrierService32><CarrierDetails>
			<Operation><dotAddDate>03/01/2018</dotAddDate></Operation>
			<Authority><authGrantDate> </authGrantDate></Authority>
		</CarrierDetails></CarrierService32>`
		rec, err := parseLookup(id.DOTNumber("42"), []byte(body))
		s.Require().NoError(err)
		s.True(rec.DOTAddDate.IsZero())
		s.Equal("03/01/2018", rec.Raw[eligibility.FieldDOTAddDate])
		s.NotContains(rec.Raw, eligibility.FieldAuthorityGrantDate)
		s.Equal(id.DOTNumber("42"), rec.DOTNumber, "falls back to the requested number")
	})

	s.Run("partial record routes to indeterminate", func() {
		body := `<CarrierService32><CarrierDetails><Safety><rating>SATISFACTORY</rating></Safety></CarrierDetails></CarrierService32>`
		rec, err := parseLookup(id.DOTNumber("42"), []byte(body))
		s.Require().NoError(err)
		decision := eligibility.Decide(*rec, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC))
		s.Equal(eligibility.OutcomeIndeterminate, decision.Outcome)
		s.Equal(rec.Raw, decision.Fields)
	})
}

func (s *ParseSuite) TestNotFound() {
	tests := []struct {
		name string
		body string
	}{
		{"no carrier details", `<CarrierService32><ResponseDO><status>SUCCESS</status></ResponseDO></CarrierService32>`},
		{"explicit failure", `<CarrierService32><ResponseDO><status>FAILURE</status><displayMsg>Carrier Not Found</displayMsg></ResponseDO></CarrierService32>`},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := parseLookup(id.DOTNumber("1"), []byte(tt.body))
			s.Require().Error(err)
			s.Equal(upstream.CategoryNotFound, upstream.CategoryOf(err))
		})
	}
}

func (s *ParseSuite) TestBadPayloads() {
	tests := []struct {
		name     string
		body     string
		expected upstream.Category
	}{
		{"empty body", "  ", upstream.CategoryBadData},
		{"not xml", "<html><body>oops", upstream.CategoryBadData},
		{"invalid key", `<CarrierService32><ResponseDO><status>ERROR</status><displayMsg>Invalid Service Key</displayMsg></ResponseDO></CarrierService32>`, upstream.CategoryAuthentication},
		{"other failure", `<CarrierService32><ResponseDO><status>ERROR</status></ResponseDO></CarrierService32>`, upstream.CategoryBadData},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := parseLookup(id.DOTNumber("1"), []byte(tt.body))
			s.Require().Error(err)
			s.Equal(tt.expected, upstream.CategoryOf(err))
		})
	}
}
