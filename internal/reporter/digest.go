package reporter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/albacete-simd/mande-enrich/internal/ledger"
)

// FormatEntries lists ledger entries, newest first as returned by the store.
func FormatEntries(entries []*ledger.Entry) string {
	if len(entries) == 0 {
		return "No enrichments recorded.\n"
	}

	var b strings.Builder
	for _, e := range entries {
		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "%s  [%s] %-9s %s\n", ts, e.ShortRunID(), e.Outcome, e.Target)
		fmt.Fprintf(&b, "             %s\n", FormatMeans(e.Records, e.Means.Values()))
		fmt.Fprintf(&b, "             from %s (%s)\n", e.LogFile, ledger.JoinLabels(e.Labels))
	}
	fmt.Fprintf(&b, "\nTotal: %d entr%s (%s)\n", len(entries), plural(len(entries)), formatBreakdown(targetCounts(entries)))
	return b.String()
}

func targetCounts(entries []*ledger.Entry) map[string]int {
	m := make(map[string]int)
	for _, e := range entries {
		m[e.Target]++
	}
	return m
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

// formatBreakdown turns a map[string]int into "foo ×2, bar ×1" sorted by count desc.
func formatBreakdown(m map[string]int) string {
	type entry struct {
		name  string
		count int
	}

	entries := make([]entry, 0, len(m))
	for name, count := range m {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s ×%d", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}
