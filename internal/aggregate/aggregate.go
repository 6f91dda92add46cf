package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/detect"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/shopspring/decimal"
)

// DefaultHangingDays is the aging threshold used when none is supplied
const DefaultHangingDays = 30

// Prioritize returns a copy of alerts ordered critical, warning, info.
// Alerts of equal severity keep their detection order.
func Prioritize(alerts []model.Alert) []model.Alert {
	out := make([]model.Alert, len(alerts))
	copy(out, alerts)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out
}

// HangingOptions controls which claims count as hanging
type HangingOptions struct {
	// ThresholdDays: a claim hangs when its days outstanding exceed this.
	// Zero or less uses DefaultHangingDays.
	ThresholdDays int
	// Unresolved decides whether a claim is still open; nil treats every claim as open
	Unresolved func(model.ClaimRecord) bool
	Routes     detect.RouteResolver
}

// StatusPredicate builds an Unresolved predicate from a list of statuses.
// An empty list returns nil, meaning every claim is considered open.
func StatusPredicate(statuses []string) func(model.ClaimRecord) bool {
	if len(statuses) == 0 {
		return nil
	}
	set := make(map[model.Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[model.Status(strings.ToLower(strings.TrimSpace(s)))] = struct{}{}
	}
	return func(c model.ClaimRecord) bool {
		_, ok := set[c.Status]
		return ok
	}
}

// Hanging builds the aging view of claims outstanding longer than the
// threshold as of now. Groups appear in the order their claim type is first
// seen; within a group claims are sorted by days outstanding, oldest first.
// Claims without a valid service date cannot be aged and are left out.
func Hanging(records []model.ClaimRecord, now time.Time, opts HangingOptions) model.HangingView {
	threshold := opts.ThresholdDays
	if threshold <= 0 {
		threshold = DefaultHangingDays
	}
	routes := opts.Routes
	if routes == nil {
		routes = detect.DefaultRoutes{}
	}

	view := model.HangingView{
		Groups: []model.HangingGroup{},
		Total:  decimal.Zero,
	}
	groupIdx := make(map[model.ClaimType]int)

	for _, c := range records {
		if !c.ServiceDateValid {
			continue
		}
		if opts.Unresolved != nil && !opts.Unresolved(c) {
			continue
		}
		days := detect.DaysSince(c.ServiceDate, now)
		if days <= threshold {
			continue
		}

		i, ok := groupIdx[c.ClaimType]
		if !ok {
			i = len(view.Groups)
			groupIdx[c.ClaimType] = i
			view.Groups = append(view.Groups, model.HangingGroup{
				ClaimType: c.ClaimType,
				Label:     c.ClaimType.Label(),
				Claims:    []model.HangingClaim{},
				Total:     decimal.Zero,
			})
		}

		g := &view.Groups[i]
		g.Claims = append(g.Claims, model.HangingClaim{
			ClaimID:         c.ID,
			ClaimType:       c.ClaimType,
			PatientName:     c.PatientName,
			Status:          c.Status,
			ServiceDate:     c.ServiceDate.Format("2006-01-02"),
			DaysOutstanding: days,
			TotalClaimed:    c.TotalClaimed,
			Urgency:         model.UrgencyFor(days),
			ResolveTarget:   routes.Claim(c.ClaimType, c.ID),
			PayerType:       c.PayerType,
			ProvinceCode:    c.ProvinceCode,
			CountryCode:     c.CountryCode,
		})
		g.Total = g.Total.Add(c.TotalClaimed)

		view.Total = view.Total.Add(c.TotalClaimed)
		view.Count++
		if days > view.MaxDaysOutstanding {
			view.MaxDaysOutstanding = days
		}
	}

	for i := range view.Groups {
		claims := view.Groups[i].Claims
		sort.SliceStable(claims, func(a, b int) bool {
			return claims[a].DaysOutstanding > claims[b].DaysOutstanding
		})
	}

	return view
}

// Summarize computes the headline counts for a report
func Summarize(records []model.ClaimRecord, alerts []model.Alert, skipped []model.SkippedRecord, hanging model.HangingView) model.Summary {
	s := model.Summary{
		Claims:  len(records),
		Skipped: len(skipped),
		Alerts:  len(alerts),
		Hanging: hanging.Count,
	}
	for _, a := range alerts {
		switch a.Severity {
		case model.SeverityCritical:
			s.Critical++
		case model.SeverityWarning:
			s.Warning++
		case model.SeverityInfo:
			s.Info++
		}
	}
	return s
}
