package model

// Severity indicates how urgently an alert needs attention
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank orders severities, lower is more urgent
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// AlertCode classifies the rule that produced an alert
type AlertCode string

const (
	CodeDuplicate      AlertCode = "DUPLICATE"       // Same patient, date and codes as an earlier claim
	CodeStaleDraft     AlertCode = "STALE_DRAFT"     // Draft left past the freshness threshold
	CodeAmountMismatch AlertCode = "AMOUNT_MISMATCH" // Line fees do not add up to the claimed total
	CodeMissingField   AlertCode = "MISSING_FIELD"   // Type-specific identifier is empty
)

// Alert is one actionable finding about a claim
type Alert struct {
	ID             string         `json:"id"`
	ClaimID        string         `json:"claim_id"`
	RelatedClaimID string         `json:"related_claim_id,omitempty"`
	ClaimType      ClaimType      `json:"claim_type"`
	Severity       Severity       `json:"severity"`
	Code           AlertCode      `json:"code"`
	Message        string         `json:"message"`
	ResolveTarget  string         `json:"resolve_target,omitempty"`
	Data           map[string]any `json:"data,omitempty"` // Figures the rule compared
}

// ValidationIssue is a soft, per-claim problem that reduced evaluation
// confidence without stopping the batch
type ValidationIssue struct {
	ClaimID string `json:"claim_id,omitempty"`
	Index   int    `json:"index"`
	Field   string `json:"field"`
	Reason  string `json:"reason"`
}

// SkippedRecord is an input row excluded from evaluation
type SkippedRecord struct {
	Index     int       `json:"index"`
	ClaimID   string    `json:"claim_id,omitempty"`
	ClaimType ClaimType `json:"claim_type,omitempty"`
	Reason    string    `json:"reason"`
}
