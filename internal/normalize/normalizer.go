package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/shopspring/decimal"
)

// ErrStructural is returned when a row lacks the minimal shape needed to
// become a ClaimRecord (no id, or no usable claim type tag)
var ErrStructural = errors.New("structural claim record error")

// fieldMap names the source columns of one claim table
type fieldMap struct {
	Identifier string   // patient identity key
	Lines      []string // line-code columns, first present wins
	Dates      []string // service date columns, first present wins
	Totals     []string // claimed total columns, first present wins
	Received   []string
}

var (
	ramqLines  = []string{"act_codes", "service_codes"}
	otherLines = []string{"service_codes", "act_codes"}
)

func fieldsFor(t model.ClaimType) fieldMap {
	fm := fieldMap{
		Lines:    otherLines,
		Dates:    []string{"service_date"},
		Totals:   []string{"total_claimed"},
		Received: []string{"amount_received"},
	}
	switch t {
	case model.ClaimTypeRAMQ:
		fm.Identifier = "patient_ramq"
		fm.Lines = ramqLines
	case model.ClaimTypeFederal:
		fm.Identifier = "patient_federal_id"
	case model.ClaimTypeOutProvince:
		fm.Identifier = "patient_health_number"
	case model.ClaimTypeDiplomatic:
		fm.Identifier = "diplomatic_id"
	case model.ClaimTypeInvoice:
		fm.Identifier = "patient_ramq"
		fm.Lines = []string{"service_codes", "line_items", "act_codes"}
		fm.Dates = []string{"service_date", "invoice_date"}
		fm.Totals = []string{"total_claimed", "total_amount"}
		fm.Received = []string{"amount_received", "amount_paid"}
	}
	return fm
}

// Normalize maps one raw row from the table identified by tag into the
// canonical ClaimRecord. Soft problems (bad dates, unparseable amounts) are
// returned as issues; only a missing id or tag is an error.
func Normalize(raw model.RawClaim, tag model.ClaimType) (model.ClaimRecord, []model.ValidationIssue, error) {
	ct, ok := model.ParseClaimType(string(tag))
	if !ok {
		return model.ClaimRecord{}, nil, fmt.Errorf("%w: unknown claim type tag %q", ErrStructural, tag)
	}
	if raw == nil {
		return model.ClaimRecord{}, nil, fmt.Errorf("%w: empty row", ErrStructural)
	}

	id := stringField(raw, "id")
	if id == "" {
		return model.ClaimRecord{}, nil, fmt.Errorf("%w: missing id", ErrStructural)
	}

	fm := fieldsFor(ct)
	rec := model.ClaimRecord{
		ID:                id,
		ClaimType:         ct,
		Status:            model.Status(strings.ToLower(strings.TrimSpace(stringField(raw, "status")))),
		PatientName:       strings.TrimSpace(stringField(raw, "patient_name")),
		PatientIdentifier: strings.TrimSpace(stringField(raw, fm.Identifier)),
		PayerType:         stringField(raw, "payer_type"),
		ProvinceCode:      stringField(raw, "province_code"),
		CountryCode:       stringField(raw, "country_code"),
	}

	var issues []model.ValidationIssue
	issue := func(field, reason string) {
		issues = append(issues, model.ValidationIssue{ClaimID: id, Field: field, Reason: reason})
	}

	// Service date
	dateKey, dateVal := firstPresent(raw, fm.Dates)
	if dateKey == "" {
		issue("service_date", "missing")
	} else if d, err := ParseDate(fmt.Sprint(dateVal)); err != nil {
		issue(dateKey, fmt.Sprintf("unparseable date %q", fmt.Sprint(dateVal)))
	} else {
		rec.ServiceDate = d
		rec.ServiceDateValid = true
	}

	// Totals
	if key, v := firstPresent(raw, fm.Totals); key != "" {
		amt, err := ParseAmount(v)
		if err != nil {
			issue(key, err.Error())
		} else if amt.IsNegative() {
			issue(key, "negative amount treated as zero")
		} else {
			rec.TotalClaimed = amt
		}
	}
	if key, v := firstPresent(raw, fm.Received); key != "" {
		if amt, err := ParseAmount(v); err == nil {
			rec.AmountReceived = amt
		} else {
			issue(key, err.Error())
		}
	}

	// Line codes
	if key, v := firstPresent(raw, fm.Lines); key != "" {
		lines, lineIssues := parseLines(v)
		rec.LineCodes = lines
		for _, r := range lineIssues {
			issue(key, r)
		}
	}
	if rec.LineCodes == nil {
		rec.LineCodes = []model.LineCode{}
	}

	if v, ok := raw["submitted_at"]; ok && v != nil {
		if ts, err := time.Parse(time.RFC3339, fmt.Sprint(v)); err == nil {
			ts = ts.UTC()
			rec.SubmittedAt = &ts
		} else {
			issue("submitted_at", "unparseable timestamp")
		}
	}

	return rec, issues, nil
}

// NormalizeAll normalizes every row in order. Rows that fail structurally are
// reported in skipped; the index of every skip and issue is the input index.
func NormalizeAll(rows []model.TaggedRow) ([]model.ClaimRecord, []model.SkippedRecord, []model.ValidationIssue) {
	records := make([]model.ClaimRecord, 0, len(rows))
	skipped := []model.SkippedRecord{}
	var issues []model.ValidationIssue

	for i, row := range rows {
		rec, recIssues, err := Normalize(row.Row, row.Type)
		if err != nil {
			skipped = append(skipped, model.SkippedRecord{
				Index:     i,
				ClaimID:   stringField(row.Row, "id"),
				ClaimType: row.Type,
				Reason:    err.Error(),
			})
			continue
		}
		for _, is := range recIssues {
			is.Index = i
			issues = append(issues, is)
		}
		records = append(records, rec)
	}

	return records, skipped, issues
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC3339 timestamp and
// returns the UTC calendar date at midnight
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), nil
}

// ParseAmount converts a JSON-decoded monetary value into a decimal
func ParseAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case decimal.Decimal:
		return n, nil
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(n), "$"))
		if s == "" {
			return decimal.Zero, nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, fmt.Errorf("unparseable amount %q", n)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported amount type %T", v)
	}
}

func parseLines(v any) ([]model.LineCode, []string) {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, []string{fmt.Sprintf("line codes are %T, not a list", v)}
	}

	var problems []string
	lines := make([]model.LineCode, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			problems = append(problems, fmt.Sprintf("line %d is not an object", i))
			continue
		}
		fee, err := ParseAmount(obj["fee"])
		if err != nil {
			problems = append(problems, fmt.Sprintf("line %d: %v", i, err))
		}
		// fee is the line total as entered; quantity is informational
		lines = append(lines, model.LineCode{
			Code: strings.TrimSpace(stringField(obj, "code")),
			Fee:  fee,
		})
	}
	return lines, problems
}

func firstPresent(raw model.RawClaim, keys []string) (string, any) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return k, v
		}
	}
	return "", nil
}

func stringField(raw map[string]any, key string) string {
	if raw == nil || key == "" {
		return ""
	}
	switch v := raw[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
