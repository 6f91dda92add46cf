package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ClaimType identifies which payer table a claim row came from
type ClaimType string

const (
	ClaimTypeRAMQ        ClaimType = "ramq"         // Quebec health insurance
	ClaimTypeFederal     ClaimType = "federal"      // Federal programs (IFHP, NIHB, ...)
	ClaimTypeOutProvince ClaimType = "out_province" // Reciprocal billing, other provinces
	ClaimTypeDiplomatic  ClaimType = "diplomatic"   // Diplomatic missions
	ClaimTypeInvoice     ClaimType = "invoice"      // Direct patient or partner invoice
)

// ClaimTypes lists every known claim type in display order
var ClaimTypes = []ClaimType{
	ClaimTypeRAMQ,
	ClaimTypeFederal,
	ClaimTypeOutProvince,
	ClaimTypeDiplomatic,
	ClaimTypeInvoice,
}

// ParseClaimType converts a caller-supplied tag into a ClaimType
func ParseClaimType(s string) (ClaimType, bool) {
	t := ClaimType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ClaimTypeRAMQ, ClaimTypeFederal, ClaimTypeOutProvince, ClaimTypeDiplomatic, ClaimTypeInvoice:
		return t, true
	}
	return "", false
}

// Label returns the human-readable name used in messages
func (t ClaimType) Label() string {
	switch t {
	case ClaimTypeRAMQ:
		return "RAMQ"
	case ClaimTypeFederal:
		return "Federal"
	case ClaimTypeOutProvince:
		return "Out-of-Province"
	case ClaimTypeDiplomatic:
		return "Diplomatic"
	case ClaimTypeInvoice:
		return "Invoice"
	default:
		return string(t)
	}
}

// Status is the lower-cased workflow status of a claim.
// Claim tables share draft/submitted/approved/rejected/paid; invoices add
// pending and overdue, which are kept as their own values.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPaid      Status = "paid"
	StatusPending   Status = "pending" // invoice only
	StatusOverdue   Status = "overdue" // invoice only
)

// LineCode is a single billed act or service code
type LineCode struct {
	Code string          `json:"code"`
	Fee  decimal.Decimal `json:"fee"`
}

// ClaimRecord is the canonical shape every rule is written against
type ClaimRecord struct {
	ID                string          `json:"id"`
	ClaimType         ClaimType       `json:"claim_type"`
	Status            Status          `json:"status"`
	PatientName       string          `json:"patient_name,omitempty"`
	PatientIdentifier string          `json:"patient_identifier,omitempty"`
	ServiceDate       time.Time       `json:"service_date"`
	ServiceDateValid  bool            `json:"service_date_valid"`
	TotalClaimed      decimal.Decimal `json:"total_claimed"`
	AmountReceived    decimal.Decimal `json:"amount_received"`
	LineCodes         []LineCode      `json:"line_codes,omitempty"`
	SubmittedAt       *time.Time      `json:"submitted_at,omitempty"`

	PayerType    string `json:"payer_type,omitempty"`    // federal sub-program
	ProvinceCode string `json:"province_code,omitempty"` // out-of-province
	CountryCode  string `json:"country_code,omitempty"`  // diplomatic
}

// LineSum adds up the fees of every line code
func (c ClaimRecord) LineSum() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.LineCodes {
		sum = sum.Add(l.Fee)
	}
	return sum
}

// DisplayName returns the patient name or a placeholder
func (c ClaimRecord) DisplayName() string {
	if strings.TrimSpace(c.PatientName) == "" {
		return "Unknown"
	}
	return c.PatientName
}

// RawClaim is one decoded row as read from a claims table
type RawClaim map[string]any

// TaggedRow pairs a raw row with the claim type of the table it came from.
// The tag is supplied by whoever read the row; rows do not self-describe.
type TaggedRow struct {
	Type ClaimType `json:"type"`
	Row  RawClaim  `json:"row"`
}
