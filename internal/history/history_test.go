package history

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/taskdeck-dev/taskdeck/internal/api"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return store
}

func TestRecordSearchRoundTrip(t *testing.T) {
	store := openTestStore(t)
	filters := api.SearchFilters{Query: "quarterly", Department: "engineering", Status: "in_progress"}

	if err := store.RecordSearch(filters, 7); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entries, err := store.Recent(KindSearch, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	entry := entries[0]
	if entry.ID == "" {
		t.Error("expected a generated ID")
	}
	if entry.ResultCount != 7 {
		t.Errorf("result count = %d, want 7", entry.ResultCount)
	}

	decoded, err := entry.Filters()
	if err != nil {
		t.Fatalf("failed to decode filters: %v", err)
	}
	if !reflect.DeepEqual(decoded, filters) {
		t.Errorf("decoded %+v, want %+v", decoded, filters)
	}
}

func TestRecentOrdersNewestFirstAndLimits(t *testing.T) {
	store := openTestStore(t)

	for _, q := range []string{"first", "second", "third"} {
		if err := store.RecordSearch(api.SearchFilters{Query: q}, 0); err != nil {
			t.Fatalf("record failed: %v", err)
		}
		// keep created_at strictly increasing
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := store.Recent(KindSearch, 2)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Summary != "third" || entries[1].Summary != "second" {
		t.Errorf("unexpected order: %q, %q", entries[0].Summary, entries[1].Summary)
	}
}

func TestRecentFiltersByKind(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordSearch(api.SearchFilters{Query: "tasks"}, 3); err != nil {
		t.Fatalf("record search failed: %v", err)
	}
	if err := store.RecordReport("weekly-summary", "report-1"); err != nil {
		t.Fatalf("record report failed: %v", err)
	}

	reports, err := store.Recent(KindReport, 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(reports) != 1 || reports[0].Kind != KindReport {
		t.Fatalf("unexpected entries: %+v", reports)
	}
	if reports[0].Summary != "weekly-summary (report report-1)" {
		t.Errorf("summary = %q", reports[0].Summary)
	}
}

func TestEmptyFiltersSummary(t *testing.T) {
	store := openTestStore(t)
	if err := store.RecordSearch(api.SearchFilters{}, 0); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	entries, err := store.Recent(KindSearch, 1)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if entries[0].Summary != "(all tasks)" {
		t.Errorf("summary = %q, want %q", entries[0].Summary, "(all tasks)")
	}
}
