// Package enricher applies the mSPnDE means of each log file to its result CSV.
package enricher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/albacete-simd/mande-enrich/internal/ledger"
	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
	"github.com/albacete-simd/mande-enrich/internal/source"
	"github.com/albacete-simd/mande-enrich/internal/store"
)

// Recorder keeps a history of enrichments. *store.DB implements it.
type Recorder interface {
	Insert(e *ledger.Entry) error
	CheckPrior(target string, labels resultcsv.Columns) (store.PriorResult, error)
}

// Options configures a pass.
type Options struct {
	// Dir holds the log files; result CSVs are read from Dir/results.
	Dir     string
	Pattern string
	Columns resultcsv.Columns
	Policy  resultcsv.Policy
	// DryRun computes means without touching result files or the ledger.
	DryRun bool
}

// Result describes one processed log file.
type Result struct {
	LogFile string
	Summary
	Outcome resultcsv.Outcome
	Written bool
}

// Enricher runs the enrichment pass.
type Enricher struct {
	opts  Options
	rec   Recorder
	runID string
	now   func() time.Time
}

// New creates an Enricher. rec may be nil to skip the ledger.
func New(opts Options, rec Recorder) *Enricher {
	if opts.Pattern == "" {
		opts.Pattern = source.DefaultPattern
	}
	if opts.Columns == (resultcsv.Columns{}) {
		opts.Columns = resultcsv.DefaultColumns
	}
	if opts.Policy == "" {
		opts.Policy = resultcsv.PolicyAppend
	}
	return &Enricher{
		opts:  opts,
		rec:   rec,
		runID: ledger.NewRunID(),
		now:   time.Now,
	}
}

// RunID identifies this pass in the ledger.
func (e *Enricher) RunID() string {
	return e.runID
}

// ResultsDir is the directory result CSVs are read from and written to.
func (e *Enricher) ResultsDir() string {
	return filepath.Join(e.opts.Dir, "results")
}

// Run processes every matching log file in name order. It stops at the
// first error; files already processed stay modified and are returned
// alongside the error.
func (e *Enricher) Run(ctx context.Context) ([]Result, error) {
	files, err := source.Discover(e.opts.Dir, e.opts.Pattern)
	if err != nil {
		return nil, err
	}

	slog.Info("enrichment pass starting",
		"dir", e.opts.Dir,
		"pattern", e.opts.Pattern,
		"files", len(files),
		"run", e.runID,
	)

	results := make([]Result, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := e.EnrichFile(ctx, path)
		if err != nil {
			return results, fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, res)
	}

	return results, nil
}

// EnrichFile applies one log file to its result CSV.
func (e *Enricher) EnrichFile(ctx context.Context, path string) (Result, error) {
	res := Result{LogFile: path}

	content, err := source.ReadAll(path)
	if err != nil {
		return res, err
	}

	sum, err := Summarize(content)
	if err != nil {
		return res, err
	}
	res.Summary = *sum

	target := filepath.Join(e.ResultsDir(), sum.Target)
	csvContent, err := os.ReadFile(target)
	if err != nil {
		return res, fmt.Errorf("reading result CSV: %w", err)
	}

	if e.rec != nil && e.opts.Policy == resultcsv.PolicyAppend && !e.opts.DryRun {
		prior, err := e.rec.CheckPrior(sum.Target, e.opts.Columns)
		if err != nil {
			slog.Warn("ledger lookup failed", "target", sum.Target, "error", err)
		} else if prior.Count > 0 {
			slog.Warn("result already enriched, appending another set of columns",
				"target", sum.Target,
				"times", prior.Count,
				"last_run", prior.LastRunID,
			)
		}
	}

	out, outcome, err := resultcsv.Append(csvContent, e.opts.Columns, sum.Means, e.opts.Policy)
	if err != nil {
		return res, fmt.Errorf("%s: %w", target, err)
	}
	res.Outcome = outcome

	if e.opts.DryRun {
		slog.Info("dry run, result not written", "file", path, "target", sum.Target)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if err := os.WriteFile(target, out, 0o644); err != nil {
		return res, fmt.Errorf("writing result CSV: %w", err)
	}
	res.Written = true

	slog.Info("result enriched",
		"file", path,
		"target", sum.Target,
		"records", sum.Records,
		"outcome", outcome,
	)

	e.record(res)
	return res, nil
}

func (e *Enricher) record(res Result) {
	if e.rec == nil {
		return
	}
	entry := ledger.New(e.runID, e.now(), res.LogFile, res.Target)
	entry.Records = res.Records
	entry.Means = res.Means
	entry.Labels = e.opts.Columns
	entry.Outcome = res.Outcome
	if err := e.rec.Insert(entry); err != nil {
		slog.Warn("failed to record enrichment", "target", res.Target, "error", err)
	}
}
