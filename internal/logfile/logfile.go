// Package logfile parses mAnDE experiment log files into typed mSPnDE records.
package logfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrTooFewLines = errors.New("log file has fewer than 3 lines")
	ErrNoTarget    = errors.New("first line has no target filename")
	ErrBadTarget   = errors.New("target filename must not contain a path")
	ErrShortRecord = errors.New("record has fewer than 5 fields")
)

// bodyStart is the zero-based index of the first record line.
const bodyStart = 2

// Record is one mSPnDE line from the log body.
type Record struct {
	Label  string
	Count  float64
	Var    float64
	MaxVar float64
	MinVar float64
}

// File is a parsed log file.
type File struct {
	// Target is the result CSV filename named at the end of line 1.
	Target  string
	Records []Record
}

// Parse reads a complete log file. Records are collected from line 3 until
// the first empty line or EOF, whichever comes first.
func Parse(content []byte) (*File, error) {
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scanning log: %w", err)
	}
	if len(lines) <= bodyStart {
		return nil, fmt.Errorf("%w (got %d)", ErrTooFewLines, len(lines))
	}

	target, err := ParseTarget(lines[0])
	if err != nil {
		return nil, err
	}

	body := recordLines(lines[bodyStart:])
	records := make([]Record, 0, len(body))
	for i, line := range body {
		rec, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", bodyStart+i+1, err)
		}
		records = append(records, rec)
	}

	return &File{Target: target, Records: records}, nil
}

// ParseTarget extracts the result CSV filename from the first line: the last
// whitespace-separated token. A line with a single token names that token.
func ParseTarget(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", ErrNoTarget
	}
	target := fields[len(fields)-1]
	if target == "." || target == ".." || strings.ContainsAny(target, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrBadTarget, target)
	}
	return target, nil
}

// ParseRecord parses "<label>,<count>,<var>,<maxVar>,<minVar>". Extra
// trailing fields are ignored.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(line, ",")
	if len(fields) < 5 {
		return Record{}, fmt.Errorf("%w: %q", ErrShortRecord, line)
	}

	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return Record{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	return Record{
		Label:  fields[0],
		Count:  vals[0],
		Var:    vals[1],
		MaxVar: vals[2],
		MinVar: vals[3],
	}, nil
}

// recordLines returns the prefix of body that precedes the terminator.
func recordLines(body []string) []string {
	for i, line := range body {
		if isTerminator(line) {
			return body[:i]
		}
	}
	return body
}

// isTerminator reports whether line ends the record section.
func isTerminator(line string) bool {
	return line == ""
}
