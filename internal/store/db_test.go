package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/albacete-simd/mande-enrich/internal/ledger"
	"github.com/albacete-simd/mande-enrich/internal/resultcsv"
	"github.com/albacete-simd/mande-enrich/internal/stats"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeEntry(runID, logFile, target string, ts time.Time) *ledger.Entry {
	e := ledger.New(runID, ts, logFile, target)
	e.Records = 43
	e.Means = stats.Means{Count: 577.5, Var: 1.39, MaxVar: 3.25, MinVar: 0}
	e.Labels = resultcsv.DefaultColumns
	e.Outcome = resultcsv.Appended
	return e
}

func TestInsertAndQuery(t *testing.T) {
	db := testDB(t)

	run := ledger.NewRunID()
	e := makeEntry(run, "../mAnDE.o1184203", "results_1.csv", time.Now())

	if err := db.Insert(e); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	entries, err := db.Query(QueryFilter{
		Since: time.Now().Add(-1 * time.Hour),
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	got := entries[0]
	if got.ID != e.ID {
		t.Errorf("ID = %q, want %q", got.ID, e.ID)
	}
	if got.RunID != run {
		t.Errorf("RunID = %q", got.RunID)
	}
	if got.LogFile != "../mAnDE.o1184203" {
		t.Errorf("LogFile = %q", got.LogFile)
	}
	if got.Target != "results_1.csv" {
		t.Errorf("Target = %q", got.Target)
	}
	if got.Records != 43 {
		t.Errorf("Records = %d", got.Records)
	}
	if got.Means != e.Means {
		t.Errorf("Means = %+v, want %+v", got.Means, e.Means)
	}
	if got.Labels != resultcsv.DefaultColumns {
		t.Errorf("Labels = %v", got.Labels)
	}
	if got.Outcome != resultcsv.Appended {
		t.Errorf("Outcome = %q", got.Outcome)
	}
	if !got.Timestamp.Equal(e.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, e.Timestamp)
	}
}

func TestQueryFilters(t *testing.T) {
	db := testDB(t)

	run1 := ledger.NewRunID()
	run2 := ledger.NewRunID()
	now := time.Now()

	entries := []*ledger.Entry{
		makeEntry(run1, "mAnDE.o1", "a.csv", now.Add(-3*time.Minute)),
		makeEntry(run1, "mAnDE.o2", "b.csv", now.Add(-2*time.Minute)),
		makeEntry(run2, "mAnDE.o1", "a.csv", now.Add(-1*time.Minute)),
		makeEntry(run2, "mAnDE.o3", "c.csv", now.Add(-48*time.Hour)),
	}
	for _, e := range entries {
		if err := db.Insert(e); err != nil {
			t.Fatal(err)
		}
	}

	// Filter by target.
	got, err := db.Query(QueryFilter{Target: "a.csv"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("target filter: got %d entries, want 2", len(got))
	}
	if got[0].RunID != run2 {
		t.Error("entries should be ordered newest first")
	}

	// Filter by run.
	got, err = db.Query(QueryFilter{RunID: run1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("run filter: got %d entries, want 2", len(got))
	}

	// Filter by since.
	got, err = db.Query(QueryFilter{Since: now.Add(-1 * time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("since filter: got %d entries, want 3", len(got))
	}

	// Filter by limit.
	got, err = db.Query(QueryFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("limit filter: got %d entries, want 1", len(got))
	}
}

func TestPurge(t *testing.T) {
	db := testDB(t)

	old := makeEntry(ledger.NewRunID(), "mAnDE.o1", "a.csv", time.Now().Add(-100*24*time.Hour))
	if err := db.Insert(old); err != nil {
		t.Fatal(err)
	}
	recent := makeEntry(ledger.NewRunID(), "mAnDE.o2", "b.csv", time.Now())
	if err := db.Insert(recent); err != nil {
		t.Fatal(err)
	}

	purged, err := db.Purge(90 * 24 * time.Hour)
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if purged != 1 {
		t.Errorf("purged %d entries, want 1", purged)
	}

	n, err := db.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("after purge: %d entries remain, want 1", n)
	}
}

func TestCount(t *testing.T) {
	db := testDB(t)

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Errorf("empty db count = %d, want 0", count)
	}

	run := ledger.NewRunID()
	for i := 0; i < 5; i++ {
		if err := db.Insert(makeEntry(run, "mAnDE.o1", "a.csv", time.Now())); err != nil {
			t.Fatal(err)
		}
	}

	count, err = db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
}

func TestCheckPriorFirstTime(t *testing.T) {
	db := testDB(t)

	res, err := db.CheckPrior("a.csv", resultcsv.DefaultColumns)
	if err != nil {
		t.Fatalf("CheckPrior: %v", err)
	}
	if res.Count != 0 || res.LastRunID != "" {
		t.Errorf("CheckPrior on empty ledger = %+v", res)
	}
}

func TestCheckPriorAfterRuns(t *testing.T) {
	db := testDB(t)

	run1 := ledger.NewRunID()
	run2 := ledger.NewRunID()
	if err := db.Insert(makeEntry(run1, "mAnDE.o1", "a.csv", time.Now().Add(-time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := db.Insert(makeEntry(run2, "mAnDE.o1", "a.csv", time.Now())); err != nil {
		t.Fatal(err)
	}

	res, err := db.CheckPrior("a.csv", resultcsv.DefaultColumns)
	if err != nil {
		t.Fatalf("CheckPrior: %v", err)
	}
	if res.Count != 2 {
		t.Errorf("Count = %d, want 2", res.Count)
	}
	if res.LastRunID != run2 {
		t.Errorf("LastRunID = %q, want %q", res.LastRunID, run2)
	}

	// Other labels are tracked separately.
	res, err = db.CheckPrior("a.csv", resultcsv.AltColumns)
	if err != nil {
		t.Fatal(err)
	}
	if res.Count != 0 {
		t.Errorf("Count for other labels = %d, want 0", res.Count)
	}
}
