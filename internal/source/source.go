package source

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/ppiankov/claimwatch/internal/model"
)

// TagKey is the in-row field the billing dashboard uses to mark which table a
// merged row came from
const TagKey = "_claimType"

// ErrUnsupportedURI is returned by the factory for unknown source schemes
var ErrUnsupportedURI = errors.New("unsupported source URI")

// Source loads one snapshot of tagged claim rows
type Source interface {
	// Name identifies the snapshot in reports and logs
	Name() string

	// Key groups sources that share a backend, for rate limiting
	Key() string

	// Load reads the full snapshot
	Load(ctx context.Context) ([]model.TaggedRow, error)
}

// groupedSnapshot is the object form of a snapshot file
type groupedSnapshot struct {
	Claims map[string][]model.RawClaim `json:"claims"`
}

// DecodeSnapshot accepts either a JSON array of rows, each tagged with
// _claimType, or an object {"claims": {"<type>": [rows...]}}.
// Rows under unknown type keys are returned with that tag so the normalizer
// reports them as skipped instead of dropping them here.
func DecodeSnapshot(data []byte) ([]model.TaggedRow, error) {
	trimmed := firstNonSpace(data)
	switch trimmed {
	case '[':
		var rows []model.RawClaim
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode snapshot rows: %w", err)
		}
		return TagRows(rows), nil

	case '{':
		var grouped groupedSnapshot
		if err := json.Unmarshal(data, &grouped); err != nil {
			return nil, fmt.Errorf("decode grouped snapshot: %w", err)
		}
		if grouped.Claims == nil {
			return nil, errors.New("decode grouped snapshot: missing \"claims\" object")
		}
		return flattenGrouped(grouped.Claims), nil

	default:
		return nil, errors.New("decode snapshot: expected JSON array or object")
	}
}

// TagRows splits the in-row tag off each row
func TagRows(rows []model.RawClaim) []model.TaggedRow {
	out := make([]model.TaggedRow, 0, len(rows))
	for _, row := range rows {
		tag, _ := row[TagKey].(string)
		clean := make(model.RawClaim, len(row))
		for k, v := range row {
			if k != TagKey {
				clean[k] = v
			}
		}
		out = append(out, model.TaggedRow{Type: model.ClaimType(tag), Row: clean})
	}
	return out
}

func flattenGrouped(groups map[string][]model.RawClaim) []model.TaggedRow {
	var out []model.TaggedRow
	known := make(map[string]bool, len(model.ClaimTypes))

	for _, ct := range model.ClaimTypes {
		known[string(ct)] = true
		for _, row := range groups[string(ct)] {
			out = append(out, model.TaggedRow{Type: ct, Row: row})
		}
	}

	var unknown []string
	for k := range groups {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		for _, row := range groups[k] {
			out = append(out, model.TaggedRow{Type: model.ClaimType(k), Row: row})
		}
	}

	return out
}

func firstNonSpace(data []byte) byte {
	for _, b := range data {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return b
		}
	}
	return 0
}
