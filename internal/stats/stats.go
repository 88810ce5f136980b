// Package stats computes the per-log summary means appended to result files.
package stats

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/albacete-simd/mande-enrich/internal/logfile"
)

// ErrNoRecords is returned when a log body has no records to average.
var ErrNoRecords = errors.New("no mSPnDE records to average")

// Means holds the four arithmetic means derived from one log file.
type Means struct {
	Count  float64
	Var    float64
	MaxVar float64
	MinVar float64
}

// Values returns the means in column order.
func (m Means) Values() [4]float64 {
	return [4]float64{m.Count, m.Var, m.MaxVar, m.MinVar}
}

// Compute averages each statistic over records independently.
func Compute(records []logfile.Record) (Means, error) {
	if len(records) == 0 {
		return Means{}, ErrNoRecords
	}

	counts := make([]float64, len(records))
	vars := make([]float64, len(records))
	maxVars := make([]float64, len(records))
	minVars := make([]float64, len(records))
	for i, r := range records {
		counts[i] = r.Count
		vars[i] = r.Var
		maxVars[i] = r.MaxVar
		minVars[i] = r.MinVar
	}

	return Means{
		Count:  stat.Mean(counts, nil),
		Var:    stat.Mean(vars, nil),
		MaxVar: stat.Mean(maxVars, nil),
		MinVar: stat.Mean(minVars, nil),
	}, nil
}
