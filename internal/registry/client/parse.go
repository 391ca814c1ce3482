package client

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"haulgate/internal/eligibility"
	id "haulgate/pkg/domain"
	"haulgate/pkg/platform/upstream"
)

// lookupResponse is the CarrierLookup document. Only the fields the
// eligibility rules read are mapped; everything else is ignored.
type lookupResponse struct {
	Response *responseStatus `xml:"ResponseDO"`
	Details  *carrierDetails `xml:"CarrierDetails"`
}

type responseStatus struct {
	Status     string `xml:"status"`
	Code       string `xml:"code"`
	DisplayMsg string `xml:"displayMsg"`
}

type carrierDetails struct {
	DOTNumber struct {
		Value  string `xml:",chardata"`
		Status string `xml:"status,attr"`
	} `xml:"dotNumber"`
	LegalName        string `xml:"Identity>legalName"`
	OperatingStatus  string `xml:"Operation>operatingStatus"`
	CarrierOperation string `xml:"Operation>carrierOperation"`
	DOTAddDate       string `xml:"Operation>dotAddDate"`
	AuthGrantDate    string `xml:"Authority>authGrantDate"`
	SafetyRating     string `xml:"Safety>rating"`
}

// parseLookup decodes a CarrierLookup body into a record.
//
// Missing elements and unparsable dates yield zero fields, never an error;
// the raw dump keeps the text as received. A document without CarrierDetails,
// or one whose ResponseDO reports a failed lookup, is CategoryNotFound.
func parseLookup(requested id.DOTNumber, body []byte) (*eligibility.CarrierRecord, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, upstream.New(upstream.CategoryBadData, serviceName, "empty lookup response", nil)
	}

	var doc lookupResponse
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, upstream.New(upstream.CategoryBadData, serviceName, "failed to decode lookup response", err)
	}
	if perr := doc.Response.failure(); perr != nil {
		return nil, perr
	}
	if doc.Details == nil {
		return nil, upstream.New(upstream.CategoryNotFound, serviceName,
			fmt.Sprintf("no carrier details for DOT %s", requested), nil)
	}
	return doc.Details.record(requested), nil
}

// failure maps an unsuccessful ResponseDO to an upstream error. A nil or
// successful status yields nil.
func (r *responseStatus) failure() *upstream.Error {
	if r == nil {
		return nil
	}
	status := strings.ToLower(strings.TrimSpace(r.Status))
	if status == "" || status == "success" || status == "ok" {
		return nil
	}
	msg := strings.TrimSpace(r.DisplayMsg)
	if msg == "" {
		msg = "lookup failed with status " + r.Status
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "no carrier"):
		return upstream.New(upstream.CategoryNotFound, serviceName, msg, nil)
	case strings.Contains(lower, "key"), strings.Contains(lower, "auth"):
		return upstream.New(upstream.CategoryAuthentication, serviceName, msg, nil)
	default:
		return upstream.New(upstream.CategoryBadData, serviceName, msg, nil)
	}
}

func (d *carrierDetails) record(requested id.DOTNumber) *eligibility.CarrierRecord {
	raw := make(map[string]string)
	put := func(key, value string) string {
		value = strings.TrimSpace(value)
		if value != "" {
			raw[key] = value
		}
		return value
	}

	dot := requested
	if v := put(eligibility.FieldDOTNumber, d.DOTNumber.Value); v != "" {
		if parsed, err := id.ParseDOTNumber(v); err == nil {
			dot = parsed
		}
	}

	rec := &eligibility.CarrierRecord{
		DOTNumber:     dot,
		LegalName:     put(eligibility.FieldLegalName, d.LegalName),
		PrimaryStatus: eligibility.OperatingStatus(put(eligibility.FieldPrimaryStatus, d.OperatingStatus)),
		BackupStatus:  eligibility.OperatingStatus(put(eligibility.FieldBackupStatus, d.DOTNumber.Status)),
		OperationType: eligibility.OperationType(put(eligibility.FieldOperationType, d.CarrierOperation)),
		SafetyRating:  eligibility.SafetyRating(put(eligibility.FieldSafetyRating, d.SafetyRating)),
		Raw:           raw,
	}
	if t, err := id.ParseDate(put(eligibility.FieldDOTAddDate, d.DOTAddDate)); err == nil {
		rec.DOTAddDate = t
	}
	if t, err := id.ParseDate(put(eligibility.FieldAuthorityGrantDate, d.AuthGrantDate)); err == nil {
		rec.AuthorityGrantDate = t
	}
	return rec
}
