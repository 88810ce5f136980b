package enricher

import (
	"github.com/albacete-simd/mande-enrich/internal/logfile"
	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
	"github.com/albacete-simd/mande-enrich/internal/stats"
)

// Summary is what a log file contributes to its result CSV.
type Summary struct {
	Target  string
	Records int
	Means   stats.Means
}

// Summarize parses log content and averages its records.
func Summarize(content []byte) (*Summary, error) {
	f, err := logfile.Parse(content)
	if err != nil {
		return nil, err
	}
	m, err := stats.Compute(f.Records)
	if err != nil {
		return nil, err
	}
	return &Summary{Target: f.Target, Records: len(f.Records), Means: m}, nil
}

// Apply is the whole enrichment without I/O: it returns csvContent with the
// means of logContent spliced in.
func Apply(logContent, csvContent []byte, cols resultcsv.Columns, policy resultcsv.Policy) ([]byte, *Summary, error) {
	sum, err := Summarize(logContent)
	if err != nil {
		return nil, nil, err
	}
	out, _, err := resultcsv.Append(csvContent, cols, sum.Means, policy)
	if err != nil {
		return nil, nil, err
	}
	return out, sum, nil
}
