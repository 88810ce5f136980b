// Package resultcsv splices derived statistics onto experiment result CSVs.
//
// Everything here works on in-memory content; reading and writing the file
// is left to the caller.
package resultcsv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"slices"

	"github.com/albacete-simd/mande-enrich/internal/format"
	"github.com/albacete-simd/mande-enrich/internal/stats"
)

var (
	ErrTooFewRows      = errors.New("result CSV needs a header and a data row")
	ErrAlreadyEnriched = errors.New("result CSV already has the statistics columns")
	ErrUnknownPolicy   = errors.New("unknown duplicate policy")
)

// Columns are the four header labels, in Count, Var, MaxVar, MinVar order.
type Columns [4]string

var (
	// DefaultColumns are the labels written by the enrichment script.
	DefaultColumns = Columns{"mSPnDEs", "vars", "maxVars", "minVars"}
	// AltColumns are the labels from the documented example output.
	AltColumns = Columns{"mAnDEs", "var", "maxVar", "minVar"}
)

// Policy decides what happens when the header already ends with Columns.
type Policy string

const (
	// PolicyAppend always adds four more columns.
	PolicyAppend Policy = "append"
	// PolicyReject fails with ErrAlreadyEnriched.
	PolicyReject Policy = "reject"
	// PolicyOverwrite replaces the trailing four values of the data row.
	PolicyOverwrite Policy = "overwrite"
)

// ParsePolicy validates a policy name. The empty string means PolicyAppend.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAppend:
		return PolicyAppend, nil
	case PolicyReject, PolicyOverwrite:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Outcome reports what Append did to the content.
type Outcome string

const (
	Appended    Outcome = "appended"
	Overwritten Outcome = "overwritten"
)

// Append adds cols to the header row and the four means to the first data
// row, then re-encodes every row. Rows past the first data row pass through.
func Append(content []byte, cols Columns, m stats.Means, policy Policy) ([]byte, Outcome, error) {
	rows, err := Read(content)
	if err != nil {
		return nil, "", err
	}
	if len(rows) < 2 {
		return nil, "", fmt.Errorf("%w (got %d rows)", ErrTooFewRows, len(rows))
	}

	values := Values(m)
	outcome := Appended

	switch {
	case !HasColumns(rows[0], cols):
		rows[0] = append(rows[0], cols[:]...)
		rows[1] = append(rows[1], values[:]...)
	case policy == PolicyReject:
		return nil, "", ErrAlreadyEnriched
	case policy == PolicyOverwrite && len(rows[1]) >= len(rows[0]):
		copy(rows[1][len(rows[0])-len(cols):], values[:])
		outcome = Overwritten
	case policy == PolicyOverwrite:
		return nil, "", fmt.Errorf("data row has %d fields, header has %d", len(rows[1]), len(rows[0]))
	default:
		rows[0] = append(rows[0], cols[:]...)
		rows[1] = append(rows[1], values[:]...)
	}

	out, err := Write(rows)
	if err != nil {
		return nil, "", err
	}
	return out, outcome, nil
}

// HasColumns reports whether header ends with cols.
func HasColumns(header []string, cols Columns) bool {
	if len(header) < len(cols) {
		return false
	}
	return slices.Equal(header[len(header)-len(cols):], cols[:])
}

// Values renders the means as CSV cells.
func Values(m stats.Means) [4]string {
	var out [4]string
	for i, v := range m.Values() {
		out[i] = format.Float(v)
	}
	return out
}

// Read parses comma-delimited rows. Rows may differ in width.
func Read(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing result CSV: %w", err)
	}
	return rows, nil
}

// Write encodes rows with "\n" line endings.
func Write(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("encoding result CSV: %w", err)
	}
	return buf.Bytes(), nil
}
