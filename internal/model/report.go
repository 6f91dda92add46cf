package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is the complete result of one detection run over a snapshot
type Report struct {
	GeneratedAt time.Time  `json:"generated_at"` // The injected "now" the run was evaluated at
	Snapshot    Snapshot   `json:"snapshot"`
	Thresholds  Thresholds `json:"thresholds"`

	Alerts  []Alert     `json:"alerts"`
	Hanging HangingView `json:"hanging"`
	Summary Summary     `json:"summary"`

	Skipped []SkippedRecord   `json:"skipped"`
	Issues  []ValidationIssue `json:"issues,omitempty"`

	Digest *Digest `json:"digest,omitempty"` // Optional LLM digest, never affects alerts
}

// Snapshot identifies the input a report was computed from
type Snapshot struct {
	Source string `json:"source,omitempty"` // e.g. file path or postgres://<user>
	Digest string `json:"digest,omitempty"` // sha256 of the canonical input
	Rows   int    `json:"rows"`
}

// Thresholds records the knobs a report was computed with
type Thresholds struct {
	StaleDraftDays int `json:"stale_draft_days"`
	HangingDays    int `json:"hanging_days"`
}

// Summary contains headline counts
type Summary struct {
	Claims   int `json:"claims"`
	Skipped  int `json:"skipped"`
	Alerts   int `json:"alerts"`
	Critical int `json:"critical"`
	Warning  int `json:"warning"`
	Info     int `json:"info"`
	Hanging  int `json:"hanging"`
}

// Urgency buckets how long a hanging claim has been outstanding
type Urgency string

const (
	UrgencyCritical Urgency = "critical" // 90 days or more
	UrgencyHigh     Urgency = "high"     // 60 days or more
	UrgencyElevated Urgency = "elevated"
)

// UrgencyFor maps days outstanding to an urgency tier
func UrgencyFor(days int) Urgency {
	switch {
	case days >= 90:
		return UrgencyCritical
	case days >= 60:
		return UrgencyHigh
	default:
		return UrgencyElevated
	}
}

// HangingClaim is a claim that has stayed unresolved past the aging threshold
type HangingClaim struct {
	ClaimID         string          `json:"claim_id"`
	ClaimType       ClaimType       `json:"claim_type"`
	PatientName     string          `json:"patient_name,omitempty"`
	Status          Status          `json:"status"`
	ServiceDate     string          `json:"service_date"`
	DaysOutstanding int             `json:"days_outstanding"`
	TotalClaimed    decimal.Decimal `json:"total_claimed"`
	Urgency         Urgency         `json:"urgency"`
	ResolveTarget   string          `json:"resolve_target,omitempty"`

	PayerType    string `json:"payer_type,omitempty"`
	ProvinceCode string `json:"province_code,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
}

// HangingGroup holds the hanging claims of one claim type
type HangingGroup struct {
	ClaimType ClaimType       `json:"claim_type"`
	Label     string          `json:"label"`
	Claims    []HangingClaim  `json:"claims"`
	Total     decimal.Decimal `json:"total"`
}

// HangingView is the aging view, groups in first-appearance order
type HangingView struct {
	Groups             []HangingGroup  `json:"groups"`
	Total              decimal.Decimal `json:"total"`
	Count              int             `json:"count"`
	MaxDaysOutstanding int             `json:"max_days_outstanding"`
}

// ByType indexes the groups by claim type
func (v HangingView) ByType() map[ClaimType][]HangingClaim {
	out := make(map[ClaimType][]HangingClaim, len(v.Groups))
	for _, g := range v.Groups {
		out[g.ClaimType] = g.Claims
	}
	return out
}

// Digest contains an optional LLM-written narrative of the alerts
type Digest struct {
	Provider   string   `json:"provider,omitempty"`
	Model      string   `json:"model,omitempty"`
	SummaryMD  string   `json:"summary_md,omitempty"`
	TokensUsed int      `json:"tokens_used,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}
