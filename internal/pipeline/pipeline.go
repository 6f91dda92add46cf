package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/ppiankov/claimwatch/internal/cache"
	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/redact"
	"github.com/ppiankov/claimwatch/internal/source"
	"go.uber.org/zap"
)

// Digester writes an optional narrative for a finished report
type Digester interface {
	IsEnabled() bool
	Digest(ctx context.Context, report *model.Report) (*model.Digest, error)
}

// Pipeline orchestrates load, analyze, digest and render for one snapshot
type Pipeline struct {
	logger   *zap.Logger
	cache    cache.Cache // nil when caching is disabled
	digester Digester    // nil when no LLM is configured
	renderer *Renderer
	config   *model.Config
}

// NewPipeline creates a pipeline. cache and digester may be nil.
func NewPipeline(cfg *model.Config, logger *zap.Logger, c cache.Cache, digester Digester) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		logger:   logger,
		cache:    c,
		digester: digester,
		renderer: NewRenderer(cfg.Output.IncludeFooter, cfg.Output.RedactPII),
		config:   cfg,
	}
}

// ScanResult contains the complete scan result
type ScanResult struct {
	Report *model.Report
	Cached bool
}

// Options returns the analysis options derived from the configuration
func (p *Pipeline) Options(sourceName string) Options {
	return Options{
		StaleDraftDays:     p.config.Detection.StaleDraftDays,
		HangingDays:        p.config.Detection.HangingDays,
		UnresolvedStatuses: p.config.Detection.UnresolvedStatuses,
		Source:             sourceName,
	}
}

// Scan loads the snapshot from src and analyzes it as of now
func (p *Pipeline) Scan(ctx context.Context, src source.Source, now time.Time) (*ScanResult, error) {
	log := p.logger.With(zap.String("source", src.Name()))

	rows, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	log.Debug("snapshot loaded", zap.Int("rows", len(rows)))

	opts := p.Options(src.Name())

	var key string
	if p.cache != nil {
		digest, err := SnapshotDigest(rows)
		if err != nil {
			return nil, err
		}
		key = cache.ReportKey(digest, now, opts.StaleDraftDays, opts.HangingDays, opts.UnresolvedStatuses)
		if report, ok := p.cachedReport(key); ok {
			log.Info("report served from cache", zap.String("digest", digest))
			// the key is per day and per content; the run owns time and name
			report.GeneratedAt = now.UTC()
			report.Snapshot.Source = opts.Source
			if !p.digestEnabled() {
				report.Digest = nil
			} else if report.Digest == nil {
				p.attachDigest(ctx, log, report)
				if report.Digest != nil {
					p.store(log, key, report)
				}
			}
			return &ScanResult{Report: report, Cached: true}, nil
		}
	}

	report, err := Analyze(rows, now, opts)
	if err != nil {
		return nil, fmt.Errorf("analyze snapshot: %w", err)
	}
	log.Info("snapshot analyzed",
		zap.Int("claims", report.Summary.Claims),
		zap.Int("alerts", report.Summary.Alerts),
		zap.Int("hanging", report.Summary.Hanging),
		zap.Int("skipped", report.Summary.Skipped),
	)

	for _, sk := range report.Skipped {
		if sk.Index < 0 || sk.Index >= len(rows) {
			continue
		}
		log.Debug("row skipped",
			zap.Int("index", sk.Index),
			zap.String("reason", sk.Reason),
			zap.Any("row", redact.Fields(rows[sk.Index].Row, redact.PatientKeys...)),
		)
	}

	if p.digestEnabled() {
		p.attachDigest(ctx, log, report)
	}

	if p.cache != nil {
		p.store(log, key, report)
	}

	return &ScanResult{Report: report}, nil
}

func (p *Pipeline) digestEnabled() bool {
	return p.digester != nil && p.digester.IsEnabled()
}

// attachDigest runs after detection and never changes alerts
func (p *Pipeline) attachDigest(ctx context.Context, log *zap.Logger, report *model.Report) {
	digest, err := p.digester.Digest(ctx, report)
	if err != nil {
		log.Warn("llm digest failed", zap.Error(err))
		return
	}
	report.Digest = digest
}

func (p *Pipeline) store(log *zap.Logger, key string, report *model.Report) {
	data, err := json.Marshal(report)
	if err != nil {
		log.Warn("encode report for cache", zap.Error(err))
		return
	}
	if err := p.cache.Set(key, data, 0); err != nil {
		log.Warn("store report in cache", zap.Error(err))
	}
}

func (p *Pipeline) cachedReport(key string) (*model.Report, bool) {
	data, ok := p.cache.Get(key)
	if !ok {
		return nil, false
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		p.logger.Warn("discarding unreadable cache entry", zap.String("key", key), zap.Error(err))
		_ = p.cache.Delete(key)
		return nil, false
	}
	return &report, true
}

// RenderReport writes the requested outputs and prints the summary to stdout
func (p *Pipeline) RenderReport(report *model.Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	if report.Digest != nil && report.Digest.SummaryMD != "" && mdPath != "" {
		digestPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
		if err := p.renderer.RenderDigestMarkdown(report.Digest, digestPath); err != nil {
			p.logger.Warn("write llm digest", zap.String("path", digestPath), zap.Error(err))
		} else if verbose {
			fmt.Printf("✓ Wrote LLM Digest: %s\n", digestPath)
		}
	}

	p.renderer.RenderSummary(report)

	return nil
}
