package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/claimwatch/internal/model"
	"github.com/ppiankov/claimwatch/internal/pipeline"
	"github.com/ppiankov/claimwatch/internal/source"
)

// Scanner analyzes one loaded source
type Scanner interface {
	Scan(ctx context.Context, src source.Source, now time.Time) (*pipeline.ScanResult, error)
}

// Opener resolves a source URI
type Opener interface {
	Open(ctx context.Context, uri string) (source.Source, error)
}

// TenantJob scans the snapshot behind one source URI
type TenantJob struct {
	URI     string
	Now     time.Time
	Opener  Opener
	Scanner Scanner
	Limiter *Limiter
}

// Execute opens, throttles and scans the source
func (j *TenantJob) Execute(ctx context.Context) Result {
	res := &TenantResult{URI: j.URI}

	src, err := j.Opener.Open(ctx, j.URI)
	if err != nil {
		res.Error = fmt.Errorf("open source: %w", err)
		return res
	}

	if j.Limiter != nil {
		if err := j.Limiter.Wait(ctx, src.Key()); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	scan, err := j.Scanner.Scan(ctx, src, j.Now)
	if err != nil {
		res.Error = err
		return res
	}
	res.Report = scan.Report
	res.Cached = scan.Cached
	return res
}

// TenantResult is the outcome of one TenantJob
type TenantResult struct {
	URI    string
	Report *model.Report
	Cached bool
	Error  error
}

// GetError returns the error from the scan
func (r *TenantResult) GetError() error {
	return r.Error
}

// BatchProcessor scans many sources concurrently
type BatchProcessor struct {
	scanner     Scanner
	opener      Opener
	limiter     *Limiter
	concurrency int
}

// NewBatchProcessor creates a batch processor; requestsPerSecond <= 0 disables throttling
func NewBatchProcessor(scanner Scanner, opener Opener, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		scanner:     scanner,
		opener:      opener,
		limiter:     NewLimiter(requestsPerSecond, burst),
		concurrency: concurrency,
	}
}

// SetSourceRate overrides the load limit for one source key
func (b *BatchProcessor) SetSourceRate(key string, requestsPerSecond float64, burst int) {
	b.limiter.SetKeyRate(key, requestsPerSecond, burst)
}

// ProcessSources scans every URI as of now. Results follow the order of uris.
func (b *BatchProcessor) ProcessSources(ctx context.Context, uris []string, now time.Time) []*TenantResult {
	if len(uris) == 0 {
		return []*TenantResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()
	defer pool.Shutdown()

	for _, uri := range uris {
		pool.Submit(&TenantJob{
			URI:     uri,
			Now:     now,
			Opener:  b.opener,
			Scanner: b.scanner,
			Limiter: b.limiter,
		})
	}

	results := pool.Wait()

	out := make([]*TenantResult, len(uris))
	for i := range uris {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*TenantResult)
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &TenantResult{URI: uris[i], Error: err}
	}

	return out
}

// ProcessFile reads source URIs from a file and scans them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, now time.Time) ([]*TenantResult, error) {
	uris, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, uris, now), nil
}

// ReadSourcesFromFile reads one source URI per line, skipping blanks,
// # comments and repeats
func ReadSourcesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var uris []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			uris = append(uris, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return uris, nil
}
