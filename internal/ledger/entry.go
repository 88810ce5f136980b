// Package ledger defines the record kept for every enriched result file.
package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
	"github.com/albacete-simd/mande-enrich/internal/stats"
)

// Entry records one log file being applied to one result CSV.
type Entry struct {
	ID        string
	RunID     string
	Timestamp time.Time
	LogFile   string
	Target    string
	Records   int
	Means     stats.Means
	Labels    resultcsv.Columns
	Outcome   resultcsv.Outcome
}

// NewRunID returns an identifier shared by every entry of one pass.
func NewRunID() string {
	return uuid.NewString()
}

// New creates an Entry with a generated UUID.
func New(runID string, ts time.Time, logFile, target string) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		RunID:     runID,
		Timestamp: ts,
		LogFile:   logFile,
		Target:    target,
	}
}

// ShortRunID returns the first block of the run UUID for display.
func (e *Entry) ShortRunID() string {
	if i := strings.IndexByte(e.RunID, '-'); i > 0 {
		return e.RunID[:i]
	}
	return e.RunID
}

// JoinLabels encodes labels for storage.
func JoinLabels(c resultcsv.Columns) string {
	return strings.Join(c[:], ",")
}

// SplitLabels decodes labels written by JoinLabels. Missing labels are empty.
func SplitLabels(s string) resultcsv.Columns {
	var c resultcsv.Columns
	copy(c[:], strings.SplitN(s, ",", len(c)))
	return c
}
