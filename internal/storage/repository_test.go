package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"artis/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "artis.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSeededReferenceLookup(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	v, ok, err := repo.Value(ctx, 2023, 5)
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if !ok {
		t.Fatalf("expected 2023-05 to be seeded")
	}
	if math.Abs(v-1300.51) > 1e-9 {
		t.Fatalf("value = %v, want 1300.51", v)
	}

	if _, ok, _ := repo.Value(ctx, 2025, 1); ok {
		t.Fatalf("expected 2025-01 to be absent")
	}
}

func TestUpsertReferenceValue(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.UpsertReferenceValue(ctx, "2025-01", 2800.42); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, ok, _ := repo.Value(ctx, 2025, 1)
	if !ok || v != 2800.42 {
		t.Fatalf("2025-01 = %v ok=%v, want 2800.42", v, ok)
	}

	// Overwrite on conflict
	if err := repo.UpsertReferenceValue(ctx, "2025-01", 2811.00); err != nil {
		t.Fatalf("upsert overwrite: %v", err)
	}
	v, _, _ = repo.Value(ctx, 2025, 1)
	if v != 2811.00 {
		t.Fatalf("2025-01 = %v, want 2811.00", v)
	}

	if err := repo.UpsertReferenceValue(ctx, "garbage", 1); err == nil {
		t.Fatalf("expected error for malformed period")
	}

	n, err := repo.CountReferenceValues(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n == 0 {
		t.Fatalf("expected seeded reference values")
	}
}

func testSubmission() core.Submission {
	sections := core.DefaultSections()
	first := core.Observation{Month: 5, Year: 2023, Value: 1000, HasValue: true}
	second := core.Observation{Month: 5, Year: 2024, Value: 1200, HasValue: true}
	results := []core.SectionResult{
		core.Calculate(first, second, sections[0]),
		core.Calculate(core.Observation{}, core.Observation{}, sections[1]),
		core.Calculate(first, core.Observation{Month: 5, Year: 2024, Value: 900, HasValue: true}, sections[2]),
	}
	return core.Submission{Results: results, Total: core.Aggregate(results)}
}

func TestSaveAndGetSubmission(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.SaveSubmission(ctx, testSubmission())
	if err != nil {
		t.Fatalf("save submission: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero id")
	}

	got, err := repo.GetSubmission(ctx, id)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if len(got.Results) != 3 {
		t.Fatalf("expected 3 section rows, got %d", len(got.Results))
	}
	if !got.Total.Valid || got.Total.Sections != 2 {
		t.Fatalf("total = %+v, want 2 valid sections", got.Total)
	}
	if got.Results[0].Section.Key != "akaryakit" || !got.Results[0].Valid {
		t.Fatalf("first section = %+v", got.Results[0])
	}
	if got.Results[1].Valid {
		t.Fatalf("second section should be invalid")
	}
	if math.Abs(got.Results[0].WeightedChange-6.8) > 1e-9 {
		t.Fatalf("weighted change = %v, want 6.8", got.Results[0].WeightedChange)
	}

	if _, err := repo.GetSubmission(ctx, id+100); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("err = %v, want ErrSubmissionNotFound", err)
	}
}

func TestExportStateTransitions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.SaveSubmission(ctx, testSubmission())
	if err != nil {
		t.Fatalf("save submission: %v", err)
	}

	pending, err := repo.GetPendingExportSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != id {
		t.Fatalf("pending = %+v, want single entry for id %d", pending, id)
	}

	if err := repo.MarkExported(ctx, id); err != nil {
		t.Fatalf("mark exported: %v", err)
	}
	pending, err = repo.GetPendingExportSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("pending after export: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending submissions, got %d", len(pending))
	}

	if err := repo.MarkExportError(ctx, id+100); !errors.Is(err, ErrSubmissionNotFound) {
		t.Fatalf("err = %v, want ErrSubmissionNotFound", err)
	}
}

func TestListRecentSubmissions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.SaveSubmission(ctx, testSubmission()); err != nil {
			t.Fatalf("save submission %d: %v", i, err)
		}
	}

	subs, err := repo.ListRecentSubmissions(ctx, 2)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	if subs[0].ID <= subs[1].ID {
		t.Fatalf("expected newest first, got ids %d, %d", subs[0].ID, subs[1].ID)
	}
}
