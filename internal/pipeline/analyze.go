package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/ppiankov/claimwatch/internal/aggregate"
	"github.com/ppiankov/claimwatch/internal/detect"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/normalize"
)

// Options configures one detection run
type Options struct {
	StaleDraftDays int
	HangingDays    int

	// UnresolvedStatuses lists the statuses that count as open for the
	// hanging view. Empty means every claim is open. Ignored when Unresolved is set.
	UnresolvedStatuses []string
	Unresolved         func(model.ClaimRecord) bool

	RequiredIdentifiers map[model.ClaimType]detect.RequiredField
	Routes              detect.RouteResolver

	// Source names the snapshot in the report
	Source string
}

// Analyze runs normalize, detect, prioritize and the hanging view over one
// snapshot. It is pure: the same rows, now and options always give the same
// report. The only error is detect.ErrDuplicateClaimID.
func Analyze(rows []model.TaggedRow, now time.Time, opts Options) (*model.Report, error) {
	records, skipped, issues := normalize.NormalizeAll(rows)

	engine := detect.NewEngine(detect.Options{
		StaleDraftDays:      opts.StaleDraftDays,
		RequiredIdentifiers: opts.RequiredIdentifiers,
		Routes:              opts.Routes,
	})
	alerts, detectIssues, err := engine.Detect(records, now)
	if err != nil {
		return nil, err
	}

	positions := inputPositions(len(rows), skipped)
	for _, is := range detectIssues {
		if is.Index >= 0 && is.Index < len(positions) {
			is.Index = positions[is.Index]
		}
		issues = append(issues, is)
	}
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Index < issues[j].Index
	})

	unresolved := opts.Unresolved
	if unresolved == nil {
		unresolved = aggregate.StatusPredicate(opts.UnresolvedStatuses)
	}
	hangingDays := opts.HangingDays
	if hangingDays <= 0 {
		hangingDays = aggregate.DefaultHangingDays
	}

	prioritized := aggregate.Prioritize(alerts)
	hanging := aggregate.Hanging(records, now, aggregate.HangingOptions{
		ThresholdDays: hangingDays,
		Unresolved:    unresolved,
		Routes:        opts.Routes,
	})

	digest, err := SnapshotDigest(rows)
	if err != nil {
		return nil, err
	}

	return &model.Report{
		GeneratedAt: now.UTC(),
		Snapshot: model.Snapshot{
			Source: opts.Source,
			Digest: digest,
			Rows:   len(rows),
		},
		Thresholds: model.Thresholds{
			StaleDraftDays: engine.StaleDraftDays(),
			HangingDays:    hangingDays,
		},
		Alerts:  prioritized,
		Hanging: hanging,
		Summary: aggregate.Summarize(records, prioritized, skipped, hanging),
		Skipped: skipped,
		Issues:  issues,
	}, nil
}

// SnapshotDigest hashes the tagged rows. Map keys are encoded sorted, so the
// digest only depends on row content and order.
func SnapshotDigest(rows []model.TaggedRow) (string, error) {
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// inputPositions maps each normalized record back to its input row index
func inputPositions(n int, skipped []model.SkippedRecord) []int {
	skip := make(map[int]bool, len(skipped))
	for _, s := range skipped {
		skip[s.Index] = true
	}
	positions := make([]int, 0, n-len(skipped))
	for i := 0; i < n; i++ {
		if !skip[i] {
			positions = append(positions, i)
		}
	}
	return positions
}
