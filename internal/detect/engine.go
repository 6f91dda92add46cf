package detect

import (
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
)

// DefaultStaleDraftDays is how long a draft may sit before it is flagged
const DefaultStaleDraftDays = 14

// ErrDuplicateClaimID is returned when two input records share an id.
// Alert ids are derived from claim ids, so the output would be ambiguous.
var ErrDuplicateClaimID = errors.New("duplicate claim id in input")

// RequiredField names the identifier a claim type must carry
type RequiredField struct {
	Field string // canonical field name reported in the alert data
	Label string // human name used in the message
}

// DefaultRequiredIdentifiers returns the identifier requirements per type.
// Types without an entry have no required-identifier rule.
func DefaultRequiredIdentifiers() map[model.ClaimType]RequiredField {
	return map[model.ClaimType]RequiredField{
		model.ClaimTypeRAMQ:    {Field: "patient_ramq", Label: "RAMQ number"},
		model.ClaimTypeFederal: {Field: "patient_federal_id", Label: "Federal / Service ID"},
	}
}

// Options configures the engine
type Options struct {
	StaleDraftDays      int
	RequiredIdentifiers map[model.ClaimType]RequiredField
	Routes              RouteResolver
}

// Engine runs every rule over a normalized claim set
type Engine struct {
	staleDays int
	required  map[model.ClaimType]RequiredField
	routes    RouteResolver
}

// NewEngine creates an engine, filling unset options with defaults
func NewEngine(opts Options) *Engine {
	e := &Engine{
		staleDays: opts.StaleDraftDays,
		required:  opts.RequiredIdentifiers,
		routes:    opts.Routes,
	}
	if e.staleDays <= 0 {
		e.staleDays = DefaultStaleDraftDays
	}
	if e.required == nil {
		e.required = DefaultRequiredIdentifiers()
	}
	if e.routes == nil {
		e.routes = DefaultRoutes{}
	}
	return e
}

// StaleDraftDays returns the effective staleness threshold
func (e *Engine) StaleDraftDays() int {
	return e.staleDays
}

// Detect evaluates all rules against records as of now and returns alerts in
// detection order: per claim in input order, rules run stale draft, duplicate,
// amount mismatch, missing field. Claims with an invalid service date skip
// the date-dependent rules and are reported as issues.
func (e *Engine) Detect(records []model.ClaimRecord, now time.Time) ([]model.Alert, []model.ValidationIssue, error) {
	seenIDs := make(map[string]int, len(records))
	for i, r := range records {
		if prev, ok := seenIDs[r.ID]; ok {
			return nil, nil, fmt.Errorf("%w: %q at positions %d and %d", ErrDuplicateClaimID, r.ID, prev, i)
		}
		seenIDs[r.ID] = i
	}

	alerts := []model.Alert{}
	var issues []model.ValidationIssue
	dups := newDuplicateIndex()

	for i, claim := range records {
		if !claim.ServiceDateValid {
			issues = append(issues, model.ValidationIssue{
				ClaimID: claim.ID,
				Index:   i,
				Field:   "service_date",
				Reason:  "invalid service date; stale draft and duplicate checks skipped",
			})
		} else {
			if a, ok := e.checkStaleDraft(claim, now); ok {
				alerts = append(alerts, a)
			}
			if a, ok := e.checkDuplicate(claim, dups); ok {
				alerts = append(alerts, a)
			}
		}

		if a, ok := e.checkAmountMismatch(claim); ok {
			alerts = append(alerts, a)
		}
		if a, ok := e.checkMissingField(claim); ok {
			alerts = append(alerts, a)
		}
	}

	return alerts, issues, nil
}

// DaysSince returns the whole days elapsed from date to now, floored
func DaysSince(date, now time.Time) int {
	d := now.Sub(date)
	days := int(d / (24 * time.Hour))
	if d < 0 && d%(24*time.Hour) != 0 {
		days--
	}
	return days
}
