package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/source"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	outJSON     string
	outMD       string
	nowFlag     string
	timeout     time.Duration
	noCache     bool
	noFooter    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <source>",
	Short: "Scan one claims snapshot for discrepancies and aging claims",
	Long: `Scan loads every claim of one snapshot and reports:
- Duplicate submissions (critical)
- Required identifiers that are missing (critical)
- Drafts older than the stale threshold (warning)
- Line-item totals that do not match the claimed amount (warning)
- Unresolved claims outstanding past the hanging threshold, per claim type

Sources:
  path/to/snapshot.json          local JSON export
  file:///abs/snapshot.json      same, as a URI
  minio://bucket/object.json     snapshot stored in S3-compatible storage
  postgres://<user_id>           live claim tables of one practitioner

Example:
  claimwatch scan export.json
  claimwatch scan postgres://4f1c... --md report.md
  claimwatch scan export.json --now 2026-03-01 --stale-days 21 --json out.json`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	// Output flags
	scanCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path (empty to skip)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	scanCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	// Detection flags
	scanCmd.Flags().StringVar(&nowFlag, "now", "", "evaluate as of this date (YYYY-MM-DD or RFC3339, default: current time)")
	scanCmd.Flags().Int("stale-days", 0, "days a draft may sit before it is flagged (default from config)")
	scanCmd.Flags().Int("hanging-days", 0, "days outstanding before an unresolved claim is hanging (default from config)")
	_ = viper.BindPFlag("detection.stale_draft_days", scanCmd.Flags().Lookup("stale-days"))
	_ = viper.BindPFlag("detection.hanging_days", scanCmd.Flags().Lookup("hanging-days"))

	scanCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall scan timeout")
	scanCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the report cache")

	// LLM flags
	scanCmd.Flags().BoolVar(&llmEnabled, "llm", false, "add an LLM digest of the alerts")
	scanCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, ollama)")
	scanCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// applyRunFlags folds the per-run flags shared by scan and batch into cfg
func applyRunFlags(cfg *model.Config) error {
	if noCache {
		cfg.Cache.Enabled = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	cfg.Output.Verbose = cfg.Output.Verbose || verbose

	if !llmEnabled {
		cfg.LLM.Provider = ""
		return nil
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if cfg.LLM.Provider == "openai" && cfg.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return cfg.Validate()
}

func runScan(cmd *cobra.Command, args []string) error {
	uri := args[0]

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}
	now, err := parseNow(nowFlag)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", uri)
		fmt.Fprintf(os.Stderr, "As of: %s\n", now.Format("2006-01-02"))
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	opener := source.NewOpener(cfg.Sources)
	defer func() { _ = opener.Close() }()

	src, err := opener.Open(ctx, uri)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	p, err := buildPipeline(cfg, logger)
	if err != nil {
		return err
	}

	result, err := p.Scan(ctx, src, now)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if cfg.Output.Verbose {
		r := result.Report
		if result.Cached {
			fmt.Fprintf(os.Stderr, "✓ Served from cache\n")
		}
		fmt.Fprintf(os.Stderr, "✓ Evaluated %d claims (%d skipped)\n", r.Summary.Claims, r.Summary.Skipped)
		fmt.Fprintf(os.Stderr, "✓ Raised %d alerts\n", r.Summary.Alerts)
		fmt.Fprintf(os.Stderr, "✓ Found %d hanging claims\n", r.Summary.Hanging)
		if r.Digest != nil {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM digest using %s/%s\n", r.Digest.Provider, r.Digest.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(result.Report, outJSON, outMD, cfg.Output.Verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}
