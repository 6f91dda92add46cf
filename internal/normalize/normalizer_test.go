package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_RAMQ(t *testing.T) {
	raw := model.RawClaim{
		"id":            "r1",
		"status":        "Draft",
		"patient_name":  " Jean Tremblay ",
		"patient_ramq":  "TREJ80010112",
		"service_date":  "2026-01-10",
		"total_claimed": 55.0,
		"act_codes": []any{
			map[string]any{"code": "00100", "fee": 30.0, "quantity": 1.0},
			map[string]any{"code": "00200", "fee": "25.00"},
		},
		"submitted_at": "2026-01-11T09:30:00-05:00",
	}

	rec, issues, err := Normalize(raw, model.ClaimTypeRAMQ)
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, model.StatusDraft, rec.Status)
	assert.Equal(t, "Jean Tremblay", rec.PatientName)
	assert.Equal(t, "TREJ80010112", rec.PatientIdentifier)
	assert.True(t, rec.ServiceDateValid)
	assert.Equal(t, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), rec.ServiceDate)
	assert.True(t, rec.TotalClaimed.Equal(decimal.NewFromInt(55)))
	require.Len(t, rec.LineCodes, 2)
	assert.Equal(t, "00200", rec.LineCodes[1].Code)
	assert.True(t, rec.LineSum().Equal(decimal.NewFromInt(55)))
	require.NotNil(t, rec.SubmittedAt)
	assert.Equal(t, 14, rec.SubmittedAt.Hour())
}

func TestNormalize_PicksLineFieldByType(t *testing.T) {
	raw := model.RawClaim{
		"id":            "f1",
		"service_date":  "2026-02-01",
		"total_claimed": 10.0,
		"act_codes":     []any{map[string]any{"code": "A", "fee": 1.0}},
		"service_codes": []any{map[string]any{"code": "B", "fee": 10.0}},
	}

	fed, _, err := Normalize(raw, model.ClaimTypeFederal)
	require.NoError(t, err)
	require.Len(t, fed.LineCodes, 1)
	assert.Equal(t, "B", fed.LineCodes[0].Code)

	ramq, _, err := Normalize(raw, model.ClaimTypeRAMQ)
	require.NoError(t, err)
	require.Len(t, ramq.LineCodes, 1)
	assert.Equal(t, "A", ramq.LineCodes[0].Code)
}

func TestNormalize_DefaultsToEmptyLines(t *testing.T) {
	rec, _, err := Normalize(model.RawClaim{"id": "d1", "service_date": "2026-02-01"}, model.ClaimTypeDiplomatic)
	require.NoError(t, err)
	assert.NotNil(t, rec.LineCodes)
	assert.Empty(t, rec.LineCodes)
}

func TestNormalize_TypeSpecificIdentifiers(t *testing.T) {
	raw := model.RawClaim{
		"id":                    "x",
		"service_date":          "2026-02-01",
		"patient_ramq":          "RAMQ1",
		"patient_federal_id":    "FED1",
		"patient_health_number": "ON123",
		"diplomatic_id":         "DIP9",
		"province_code":         "ON",
		"country_code":          "FR",
		"payer_type":            "ifhp",
	}

	cases := map[model.ClaimType]string{
		model.ClaimTypeRAMQ:        "RAMQ1",
		model.ClaimTypeFederal:     "FED1",
		model.ClaimTypeOutProvince: "ON123",
		model.ClaimTypeDiplomatic:  "DIP9",
		model.ClaimTypeInvoice:     "RAMQ1",
	}
	for ct, want := range cases {
		rec, _, err := Normalize(raw, ct)
		require.NoError(t, err)
		assert.Equal(t, want, rec.PatientIdentifier, "claim type %s", ct)
		assert.Equal(t, "ON", rec.ProvinceCode)
		assert.Equal(t, "FR", rec.CountryCode)
	}
}

func TestNormalize_InvoiceFallbacks(t *testing.T) {
	raw := model.RawClaim{
		"id":           "inv-7",
		"status":       "overdue",
		"invoice_date": "2026-03-05",
		"total_amount": 120.5,
		"amount_paid":  20.0,
	}

	rec, issues, err := Normalize(raw, model.ClaimTypeInvoice)
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, model.StatusOverdue, rec.Status)
	assert.True(t, rec.ServiceDateValid)
	assert.Equal(t, "2026-03-05", rec.ServiceDate.Format("2006-01-02"))
	assert.Equal(t, "120.5", rec.TotalClaimed.String())
	assert.Equal(t, "20", rec.AmountReceived.String())
}

func TestNormalize_StructuralErrors(t *testing.T) {
	_, _, err := Normalize(model.RawClaim{"status": "draft"}, model.ClaimTypeRAMQ)
	assert.True(t, errors.Is(err, ErrStructural))

	_, _, err = Normalize(model.RawClaim{"id": "  "}, model.ClaimTypeRAMQ)
	assert.True(t, errors.Is(err, ErrStructural))

	_, _, err = Normalize(model.RawClaim{"id": "a"}, "")
	assert.True(t, errors.Is(err, ErrStructural))

	_, _, err = Normalize(model.RawClaim{"id": "a"}, "private")
	assert.True(t, errors.Is(err, ErrStructural))
}

func TestNormalize_EmptyIdentifierIsNotStructural(t *testing.T) {
	rec, _, err := Normalize(model.RawClaim{"id": "r2", "patient_ramq": "", "service_date": "2026-01-01"}, model.ClaimTypeRAMQ)
	require.NoError(t, err)
	assert.Equal(t, "", rec.PatientIdentifier)
}

func TestNormalize_SoftIssues(t *testing.T) {
	raw := model.RawClaim{
		"id":            "bad",
		"service_date":  "10/01/2026",
		"total_claimed": "abc",
		"service_codes": []any{"oops", map[string]any{"code": "X", "fee": 5.0}},
	}

	rec, issues, err := Normalize(raw, model.ClaimTypeFederal)
	require.NoError(t, err)
	assert.False(t, rec.ServiceDateValid)
	assert.True(t, rec.TotalClaimed.IsZero())
	assert.Len(t, rec.LineCodes, 1)

	fields := map[string]bool{}
	for _, is := range issues {
		assert.Equal(t, "bad", is.ClaimID)
		fields[is.Field] = true
	}
	assert.True(t, fields["service_date"])
	assert.True(t, fields["total_claimed"])
	assert.True(t, fields["service_codes"])
}

func TestNormalize_NegativeTotalClamped(t *testing.T) {
	rec, issues, err := Normalize(model.RawClaim{"id": "n", "service_date": "2026-01-01", "total_claimed": -4.0}, model.ClaimTypeRAMQ)
	require.NoError(t, err)
	assert.True(t, rec.TotalClaimed.IsZero())
	require.Len(t, issues, 1)
	assert.Equal(t, "total_claimed", issues[0].Field)
}

func TestNormalizeAll_PreservesOrderAndReportsSkips(t *testing.T) {
	rows := []model.TaggedRow{
		{Type: model.ClaimTypeRAMQ, Row: model.RawClaim{"id": "a", "service_date": "2026-01-01"}},
		{Type: "", Row: model.RawClaim{"id": "b"}},
		{Type: model.ClaimTypeFederal, Row: model.RawClaim{"service_date": "2026-01-01"}},
		{Type: model.ClaimTypeFederal, Row: model.RawClaim{"id": "c", "service_date": "nope"}},
	}

	records, skipped, issues := NormalizeAll(rows)

	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "c", records[1].ID)

	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Equal(t, "b", skipped[0].ClaimID)
	assert.Equal(t, 2, skipped[1].Index)

	require.Len(t, issues, 1)
	assert.Equal(t, 3, issues[0].Index)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-10T23:30:00-05:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-11", d.Format("2006-01-02"))
	assert.Equal(t, 0, d.Hour())

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("$12.30")
	require.NoError(t, err)
	assert.Equal(t, "12.3", d.String())

	d, err = ParseAmount(0.011)
	require.NoError(t, err)
	assert.Equal(t, "0.011", d.String())

	_, err = ParseAmount(true)
	assert.Error(t, err)
}
