// Package reporter renders enrichment results and ledger history as text.
package reporter

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/albacete-simd/mande-enrich/internal/enricher"
	"github.com/albacete-simd/mande-enrich/internal/format"
	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
)

// outcomeMark maps outcomes to a short status column.
var outcomeMark = map[resultcsv.Outcome]string{
	resultcsv.Appended:    "+4",
	resultcsv.Overwritten: "=4",
}

// FormatResults builds the per-file summary printed after a pass.
func FormatResults(results []enricher.Result) string {
	if len(results) == 0 {
		return "No log files matched.\n"
	}

	var b strings.Builder
	written := 0
	for _, r := range results {
		mark := outcomeMark[r.Outcome]
		if !r.Written {
			mark = "--"
		} else {
			written++
		}
		fmt.Fprintf(&b, "%-2s %-16s -> %s\n", mark, filepath.Base(r.LogFile), r.Target)
		fmt.Fprintf(&b, "   %s\n", FormatMeans(r.Records, r.Means.Values()))
	}
	fmt.Fprintf(&b, "\nTotal: %d log file(s), %d result file(s) written\n", len(results), written)
	return b.String()
}

// FormatMeans renders the four means on one line.
func FormatMeans(records int, means [4]float64) string {
	return fmt.Sprintf("records=%d size=%s var=%s maxVar=%s minVar=%s",
		records,
		format.Float(means[0]),
		format.Float(means[1]),
		format.Float(means[2]),
		format.Float(means[3]),
	)
}
