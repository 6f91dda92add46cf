package detect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/shopspring/decimal"
)

// MismatchTolerance is the absolute difference allowed between the line fee
// sum and the claimed total
var MismatchTolerance = decimal.New(1, -2)

// alertNamespace scopes the deterministic alert ids
var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://claimwatch/alerts"))

// AlertID derives a stable id from the rule code and the claim ids involved.
// Each part is length-prefixed so ids containing the separator cannot collide.
func AlertID(code model.AlertCode, claimIDs ...string) string {
	var b strings.Builder
	b.WriteString(string(code))
	for _, id := range claimIDs {
		fmt.Fprintf(&b, "|%d:%s", len(id), id)
	}
	return uuid.NewSHA1(alertNamespace, []byte(b.String())).String()
}

// checkStaleDraft flags drafts older than the threshold
func (e *Engine) checkStaleDraft(c model.ClaimRecord, now time.Time) (model.Alert, bool) {
	if c.Status != model.StatusDraft {
		return model.Alert{}, false
	}
	days := DaysSince(c.ServiceDate, now)
	if days <= e.staleDays {
		return model.Alert{}, false
	}

	return model.Alert{
		ID:            AlertID(model.CodeStaleDraft, c.ID),
		ClaimID:       c.ID,
		ClaimType:     c.ClaimType,
		Severity:      model.SeverityWarning,
		Code:          model.CodeStaleDraft,
		Message:       fmt.Sprintf("Draft %s claim for %q has been sitting for %d days.", c.ClaimType.Label(), c.DisplayName(), days),
		ResolveTarget: e.routes.Claim(c.ClaimType, c.ID),
		Data: map[string]any{
			"days_since_service": days,
			"threshold_days":     e.staleDays,
			"service_date":       c.ServiceDate.Format("2006-01-02"),
		},
	}, true
}

// duplicateIndex remembers the first claim seen for each fingerprint
type duplicateIndex struct {
	first map[string]model.ClaimRecord
}

func newDuplicateIndex() *duplicateIndex {
	return &duplicateIndex{first: make(map[string]model.ClaimRecord)}
}

// Fingerprint builds the dedup key: normalized patient name, identifier,
// service date and the sorted set of line codes
func Fingerprint(c model.ClaimRecord) string {
	codes := make([]string, 0, len(c.LineCodes))
	for _, l := range c.LineCodes {
		codes = append(codes, l.Code)
	}
	sort.Strings(codes)

	return strings.Join([]string{
		strings.ToLower(strings.TrimSpace(c.PatientName)),
		c.PatientIdentifier,
		c.ServiceDate.Format("2006-01-02"),
		strings.Join(codes, ","),
	}, "|")
}

// checkDuplicate flags a claim whose fingerprint was already seen. The first
// claim with a fingerprint is never flagged; every later one alerts once
// against it.
func (e *Engine) checkDuplicate(c model.ClaimRecord, idx *duplicateIndex) (model.Alert, bool) {
	fp := Fingerprint(c)
	original, seen := idx.first[fp]
	if !seen {
		idx.first[fp] = c
		return model.Alert{}, false
	}

	return model.Alert{
		ID:             AlertID(model.CodeDuplicate, c.ID, original.ID),
		ClaimID:        c.ID,
		RelatedClaimID: original.ID,
		ClaimType:      c.ClaimType,
		Severity:       model.SeverityCritical,
		Code:           model.CodeDuplicate,
		Message: fmt.Sprintf("Possible duplicate %s claim for %q on %s (matches claim %s).",
			c.ClaimType.Label(), c.DisplayName(), c.ServiceDate.Format("2006-01-02"), original.ID),
		ResolveTarget: e.routes.List(c.ClaimType),
		Data: map[string]any{
			"fingerprint":     fp,
			"original_claim":  original.ID,
			"original_type":   string(original.ClaimType),
			"duplicate_claim": c.ID,
		},
	}, true
}

// checkAmountMismatch flags claims whose line fees do not add up to the total
func (e *Engine) checkAmountMismatch(c model.ClaimRecord) (model.Alert, bool) {
	if len(c.LineCodes) == 0 || !c.TotalClaimed.IsPositive() {
		return model.Alert{}, false
	}
	lineSum := c.LineSum()
	diff := lineSum.Sub(c.TotalClaimed).Abs()
	if diff.LessThanOrEqual(MismatchTolerance) {
		return model.Alert{}, false
	}

	return model.Alert{
		ID:        AlertID(model.CodeAmountMismatch, c.ID),
		ClaimID:   c.ID,
		ClaimType: c.ClaimType,
		Severity:  model.SeverityWarning,
		Code:      model.CodeAmountMismatch,
		Message: fmt.Sprintf("Line-item total ($%s) doesn't match claimed amount ($%s).",
			lineSum.StringFixed(2), c.TotalClaimed.StringFixed(2)),
		ResolveTarget: e.routes.Claim(c.ClaimType, c.ID),
		Data: map[string]any{
			"line_sum":      lineSum.String(),
			"total_claimed": c.TotalClaimed.String(),
			"difference":    diff.String(),
			"tolerance":     MismatchTolerance.String(),
		},
	}, true
}

// checkMissingField flags claims lacking their type's required identifier
func (e *Engine) checkMissingField(c model.ClaimRecord) (model.Alert, bool) {
	req, ok := e.required[c.ClaimType]
	if !ok || strings.TrimSpace(c.PatientIdentifier) != "" {
		return model.Alert{}, false
	}

	return model.Alert{
		ID:            AlertID(model.CodeMissingField, c.ID, req.Field),
		ClaimID:       c.ID,
		ClaimType:     c.ClaimType,
		Severity:      model.SeverityCritical,
		Code:          model.CodeMissingField,
		Message:       fmt.Sprintf("%s claim for %q is missing the %s.", c.ClaimType.Label(), c.DisplayName(), req.Label),
		ResolveTarget: e.routes.Claim(c.ClaimType, c.ID),
		Data: map[string]any{
			"field": req.Field,
		},
	}, true
}
