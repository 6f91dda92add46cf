package aggregate

import (
	"testing"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func aged(id string, ct model.ClaimType, days int, total string) model.ClaimRecord {
	return model.ClaimRecord{
		ID:               id,
		ClaimType:        ct,
		Status:           model.StatusSubmitted,
		PatientName:      "P " + id,
		ServiceDate:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days),
		ServiceDateValid: true,
		TotalClaimed:     decimal.RequireFromString(total),
	}
}

func TestPrioritize_SeverityThenDetectionOrder(t *testing.T) {
	in := []model.Alert{
		{ID: "w1", Severity: model.SeverityWarning},
		{ID: "c1", Severity: model.SeverityCritical},
		{ID: "i1", Severity: model.SeverityInfo},
		{ID: "w2", Severity: model.SeverityWarning},
		{ID: "c2", Severity: model.SeverityCritical},
	}

	out := Prioritize(in)

	var ids []string
	for _, a := range out {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c1", "c2", "w1", "w2", "i1"}, ids)
	assert.Equal(t, "w1", in[0].ID, "input must not be reordered")
}

func TestPrioritize_Empty(t *testing.T) {
	out := Prioritize(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestHanging_OutOfProvinceScenario(t *testing.T) {
	records := []model.ClaimRecord{
		aged("oop40", model.ClaimTypeOutProvince, 40, "100"),
		aged("oop90", model.ClaimTypeOutProvince, 90, "250.50"),
	}

	view := Hanging(records, now, HangingOptions{ThresholdDays: 30})

	byType := view.ByType()
	require.Len(t, byType[model.ClaimTypeOutProvince], 2)
	assert.Equal(t, "oop90", byType[model.ClaimTypeOutProvince][0].ClaimID)
	assert.Equal(t, "oop40", byType[model.ClaimTypeOutProvince][1].ClaimID)
	assert.Equal(t, 40, byType[model.ClaimTypeOutProvince][1].DaysOutstanding)
	assert.Equal(t, model.UrgencyCritical, byType[model.ClaimTypeOutProvince][0].Urgency)
	assert.Equal(t, "/claims/out-of-province/oop40", byType[model.ClaimTypeOutProvince][1].ResolveTarget)
}

func TestHanging_GroupsInFirstAppearanceOrder(t *testing.T) {
	records := []model.ClaimRecord{
		aged("f1", model.ClaimTypeFederal, 45, "10"),
		aged("r1", model.ClaimTypeRAMQ, 61, "20"),
		aged("f2", model.ClaimTypeFederal, 70, "30.25"),
		aged("d1", model.ClaimTypeDiplomatic, 31, "5"),
	}

	view := Hanging(records, now, HangingOptions{ThresholdDays: 30})

	require.Len(t, view.Groups, 3)
	assert.Equal(t, model.ClaimTypeFederal, view.Groups[0].ClaimType)
	assert.Equal(t, model.ClaimTypeRAMQ, view.Groups[1].ClaimType)
	assert.Equal(t, model.ClaimTypeDiplomatic, view.Groups[2].ClaimType)
	assert.Equal(t, "Federal", view.Groups[0].Label)

	assert.Equal(t, "f2", view.Groups[0].Claims[0].ClaimID)
	assert.Equal(t, "40.25", view.Groups[0].Total.String())
	assert.Equal(t, "65.25", view.Total.String())
	assert.Equal(t, 4, view.Count)
	assert.Equal(t, 70, view.MaxDaysOutstanding)
}

func TestHanging_ThresholdIsExclusive(t *testing.T) {
	records := []model.ClaimRecord{
		aged("at", model.ClaimTypeRAMQ, 30, "1"),
		aged("over", model.ClaimTypeRAMQ, 31, "1"),
	}

	view := Hanging(records, now, HangingOptions{ThresholdDays: 30})

	require.Equal(t, 1, view.Count)
	assert.Equal(t, "over", view.Groups[0].Claims[0].ClaimID)
}

func TestHanging_DefaultThreshold(t *testing.T) {
	records := []model.ClaimRecord{aged("a", model.ClaimTypeRAMQ, 31, "1"), aged("b", model.ClaimTypeRAMQ, 29, "1")}
	view := Hanging(records, now, HangingOptions{})
	assert.Equal(t, 1, view.Count)
}

func TestHanging_UnresolvedPredicate(t *testing.T) {
	paid := aged("paid", model.ClaimTypeRAMQ, 100, "10")
	paid.Status = model.StatusPaid
	open := aged("open", model.ClaimTypeRAMQ, 100, "10")

	view := Hanging([]model.ClaimRecord{paid, open}, now, HangingOptions{
		ThresholdDays: 30,
		Unresolved:    StatusPredicate([]string{"Submitted", "draft"}),
	})

	require.Equal(t, 1, view.Count)
	assert.Equal(t, "open", view.Groups[0].Claims[0].ClaimID)

	all := Hanging([]model.ClaimRecord{paid, open}, now, HangingOptions{ThresholdDays: 30})
	assert.Equal(t, 2, all.Count)
}

func TestStatusPredicate_EmptyMeansAll(t *testing.T) {
	assert.Nil(t, StatusPredicate(nil))
}

func TestHanging_SkipsInvalidDates(t *testing.T) {
	bad := aged("bad", model.ClaimTypeRAMQ, 200, "1")
	bad.ServiceDateValid = false

	view := Hanging([]model.ClaimRecord{bad}, now, HangingOptions{ThresholdDays: 30})
	assert.Equal(t, 0, view.Count)
	assert.NotNil(t, view.Groups)
	assert.True(t, view.Total.IsZero())
}

func TestHanging_StableWithinEqualDays(t *testing.T) {
	records := []model.ClaimRecord{
		aged("x", model.ClaimTypeInvoice, 50, "1"),
		aged("y", model.ClaimTypeInvoice, 50, "1"),
		aged("z", model.ClaimTypeInvoice, 80, "1"),
	}
	view := Hanging(records, now, HangingOptions{ThresholdDays: 30})
	claims := view.Groups[0].Claims
	assert.Equal(t, []string{"z", "x", "y"}, []string{claims[0].ClaimID, claims[1].ClaimID, claims[2].ClaimID})
}

func TestSummarize(t *testing.T) {
	alerts := []model.Alert{
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityWarning},
	}
	s := Summarize(make([]model.ClaimRecord, 5), alerts, make([]model.SkippedRecord, 1), model.HangingView{Count: 2})

	assert.Equal(t, model.Summary{Claims: 5, Skipped: 1, Alerts: 3, Critical: 2, Warning: 1, Hanging: 2}, s)
}
