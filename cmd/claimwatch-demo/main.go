// Demo program that runs detection over a small built-in snapshot.
// It shows every alert kind and the hanging view without any storage.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/pipeline"
)

func main() {
	fmt.Println("=== claimwatch Detection Demo ===")
	fmt.Println()

	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	rows := []model.TaggedRow{
		{Type: model.ClaimTypeRAMQ, Row: model.RawClaim{
			"id": "r1", "status": "draft", "patient_name": "Jean Tremblay", "patient_ramq": "TREJ80010112",
			"service_date": "2026-01-20", "total_claimed": 42.5,
			"act_codes": []any{map[string]any{"code": "00103", "fee": 42.5}},
		}},
		{Type: model.ClaimTypeRAMQ, Row: model.RawClaim{
			"id": "r2", "status": "draft", "patient_name": "Jean Tremblay", "patient_ramq": "TREJ80010112",
			"service_date": "2026-01-20", "total_claimed": 42.5,
			"act_codes": []any{map[string]any{"code": "00103", "fee": 42.5}},
		}},
		{Type: model.ClaimTypeFederal, Row: model.RawClaim{
			"id": "f1", "status": "submitted", "patient_name": "Amina Diallo",
			"service_date": "2026-01-05", "total_claimed": 100,
			"service_codes": []any{map[string]any{"code": "A1", "fee": 60}, map[string]any{"code": "A2", "fee": 30}},
		}},
		{Type: model.ClaimTypeOutProvince, Row: model.RawClaim{
			"id": "o1", "status": "submitted", "patient_name": "Liam Walsh", "patient_health_number": "9876543210",
			"province_code": "ON", "service_date": "2025-11-15", "total_claimed": 65.25,
		}},
		{Type: model.ClaimTypeInvoice, Row: model.RawClaim{
			"id": "i1", "status": "overdue", "patient_name": "Marie Roy",
			"invoice_date": "2025-12-01", "total_amount": "120.00",
		}},
	}

	report, err := pipeline.Analyze(rows, now, pipeline.Options{
		StaleDraftDays:     model.DefaultConfig().Detection.StaleDraftDays,
		HangingDays:        model.DefaultConfig().Detection.HangingDays,
		UnresolvedStatuses: model.DefaultConfig().Detection.UnresolvedStatuses,
		Source:             "demo",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "analyze: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("As of %s: %d claims, %d alerts\n", now.Format("2006-01-02"), report.Summary.Claims, report.Summary.Alerts)
	fmt.Println(strings.Repeat("-", 60))
	for _, a := range report.Alerts {
		fmt.Printf("  %-8s %-10s %-4s %s\n", a.Severity, a.Code, a.ClaimID, a.Message)
	}

	fmt.Println()
	fmt.Printf("Hanging: %d claims worth $%s\n", report.Hanging.Count, report.Hanging.Total.StringFixed(2))
	fmt.Println(strings.Repeat("-", 60))
	for _, g := range report.Hanging.Groups {
		fmt.Printf("  %s ($%s)\n", g.Label, g.Total.StringFixed(2))
		for _, c := range g.Claims {
			fmt.Printf("     - %s %s, %d days (%s)\n", c.ClaimID, c.Status, c.DaysOutstanding, c.Urgency)
		}
	}

	fmt.Println("\n=== Demo Complete ===")
}
