package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

// testDBPath returns a temporary path for test databases
func testDBPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "nested", "audit.db")
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenContext(context.Background(), testDBPath(t))
	if err != nil {
		t.Fatalf("OpenContext() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestOpen_CreatesSchema tests that the decisions table exists after Open
func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	var count int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='decisions'`).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 1 {
		t.Errorf("decisions table missing")
	}
}

// TestOpen_Reopen tests that reopening an existing database keeps its rows
func TestOpen_Reopen(t *testing.T) {
	path := testDBPath(t)
	ctx := context.Background()

	db, err := OpenContext(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenContext() failed: %v", err)
	}
	if err := db.Record(ctx, Entry{RunID: "r1", Page: "a.adoc", Verdict: "NoChange", Strategy: "none", State: "NoOp"}); err != nil {
		t.Fatalf("Record() failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	db, err = OpenContext(context.Background(), path)
	if err != nil {
		t.Fatalf("second OpenContext() failed: %v", err)
	}
	defer db.Close()

	entries, err := db.History(ctx, QueryOptions{})
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
}

// TestRecordAndHistory tests round-tripping and filtering of decisions
func TestRecordAndHistory(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	err := db.Record(ctx,
		Entry{RunID: "r1", Time: base, Page: "a.adoc", Verdict: "StructuralOnly", Strategy: "structure", State: "Accepted"},
		Entry{RunID: "r1", Time: base.Add(time.Second), Page: "b.adoc", Verdict: "TextAndStructure", Strategy: "translate", State: "Aborted", Retried: true, Error: "validation failed", Report: "block 1 length: 4 in primary, 5 in secondary"},
		Entry{RunID: "r2", Time: base.Add(48 * time.Hour), Page: "a.adoc", Verdict: "CodeOnly", Strategy: "literal", State: "Accepted"},
	)
	if err != nil {
		t.Fatalf("Record() failed: %v", err)
	}

	all, err := db.History(ctx, QueryOptions{})
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].RunID != "r2" || all[2].Page != "a.adoc" {
		t.Errorf("entries not newest first: %+v", all)
	}
	if !all[1].Retried || all[1].Report == "" || all[1].Error != "validation failed" {
		t.Errorf("aborted entry lost fields: %+v", all[1])
	}
	if !all[1].Time.Equal(base.Add(time.Second)) {
		t.Errorf("time = %v, want %v", all[1].Time, base.Add(time.Second))
	}

	recent, err := db.History(ctx, QueryOptions{Since: base.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("History(since) failed: %v", err)
	}
	if len(recent) != 1 || recent[0].Verdict != "CodeOnly" {
		t.Errorf("since filter = %+v", recent)
	}

	page, err := db.History(ctx, QueryOptions{Page: "a.adoc", Limit: 1})
	if err != nil {
		t.Fatalf("History(page) failed: %v", err)
	}
	if len(page) != 1 || page[0].RunID != "r2" {
		t.Errorf("page filter = %+v", page)
	}

	run, err := db.History(ctx, QueryOptions{RunID: "r1"})
	if err != nil {
		t.Fatalf("History(run) failed: %v", err)
	}
	if len(run) != 2 {
		t.Errorf("run filter returned %d entries, want 2", len(run))
	}
}

// TestRecord_Empty tests that recording nothing is a no-op
func TestRecord_Empty(t *testing.T) {
	db := openTestDB(t)
	if err := db.Record(context.Background()); err != nil {
		t.Errorf("Record() with no entries failed: %v", err)
	}
}

// TestNewRunID tests that run ids are unique and ordered
func TestNewRunID(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	if a == b {
		t.Fatalf("run ids collide: %s", a)
	}
	if len(a) != 36 {
		t.Errorf("run id %q is not a UUID", a)
	}
}

// TestParseSince tests the accepted history bounds
func TestParseSince(t *testing.T) {
	now := time.Date(2026, 5, 10, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		expr string
		want time.Time
	}{
		{"", time.Time{}},
		{"2026-05-01T00:00:00Z", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"2026-05-01", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"72h", now.Add(-72 * time.Hour)},
	}
	for _, tt := range tests {
		got, err := ParseSince(tt.expr, now)
		if err != nil {
			t.Errorf("ParseSince(%q) error: %v", tt.expr, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseSince(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}

	got, err := ParseSince("3 days ago", now)
	if err != nil {
		t.Fatalf("ParseSince(natural) error: %v", err)
	}
	if !got.Before(now) || now.Sub(got) > 4*24*time.Hour {
		t.Errorf("ParseSince(\"3 days ago\") = %v, not about three days before %v", got, now)
	}

	if _, err := ParseSince("banana", now); err == nil {
		t.Error("ParseSince(\"banana\") should fail")
	}
}
