// Package redact masks patient-identifying values before they leave the
// process in logs or rendered reports.
package redact

import (
	"regexp"
	"strconv"
	"unicode/utf8"
)

// Mask keeps the first and last two characters of values longer than four
// characters and hides the rest; shorter non-empty values are fully hidden.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if n <= 4 {
		return "****"
	}
	r := []rune(s)
	return string(r[:2]) + "***" + string(r[n-2:])
}

// Fields masks the named keys of a row in a copy; the input is not modified
func Fields(row map[string]any, keys ...string) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, k := range keys {
		if s, ok := out[k].(string); ok && s != "" {
			out[k] = Mask(s)
		}
	}
	return out
}

// PatientKeys are the raw columns that identify a patient
var PatientKeys = []string{
	"patient_name",
	"patient_ramq",
	"patient_federal_id",
	"patient_health_number",
	"diplomatic_id",
}

var quoted = regexp.MustCompile(`"(?:[^"\\]|\\.)*"`)

// Quoted masks every double-quoted value in a message, which is how alert
// messages embed patient names
func Quoted(msg string) string {
	return quoted.ReplaceAllStringFunc(msg, func(q string) string {
		inner, err := strconv.Unquote(q)
		if err != nil {
			inner = q[1 : len(q)-1]
		}
		return strconv.Quote(Mask(inner))
	})
}
