package store

import (
	"fmt"
	"log/slog"

	"github.com/albacete-simd/mande-enrich/internal/ledger"
	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
)

// PriorResult describes earlier enrichments of a result file.
type PriorResult struct {
	// Count is the number of earlier entries for the target with the same labels.
	Count int
	// LastRunID is the run that most recently touched the target, if any.
	LastRunID string
}

// CheckPrior looks up how often target has already been enriched with
// labels. Appending again widens the file by another four columns, so
// callers use this to warn before doing so.
func (d *DB) CheckPrior(target string, labels resultcsv.Columns) (PriorResult, error) {
	var res PriorResult
	err := d.db.QueryRow(`SELECT COUNT(*) FROM enrichments WHERE target = ? AND labels = ?`,
		target, ledger.JoinLabels(labels)).Scan(&res.Count)
	if err != nil {
		return PriorResult{}, fmt.Errorf("checking prior enrichments: %w", err)
	}

	if res.Count > 0 {
		err = d.db.QueryRow(`SELECT run_id FROM enrichments WHERE target = ? AND labels = ?
			ORDER BY timestamp DESC, rowid DESC LIMIT 1`,
			target, ledger.JoinLabels(labels)).Scan(&res.LastRunID)
		if err != nil {
			return PriorResult{}, fmt.Errorf("checking prior enrichments: %w", err)
		}
	}

	slog.Debug("prior enrichment check",
		"target", target,
		"count", res.Count,
		"last_run", res.LastRunID,
	)

	return res, nil
}
