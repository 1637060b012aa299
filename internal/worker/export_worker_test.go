package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"artis/internal/amqp"
	"artis/internal/core"
	"artis/internal/refdata/memory"
	"artis/internal/storage"
)

type fakeIndexSource struct {
	values map[string]float64
	err    error
}

func (f *fakeIndexSource) ReadIndexValues(context.Context) (map[string]float64, error) {
	return f.values, f.err
}

func newTestStorage(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "artis.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func saveSubmission(t *testing.T, repo *storage.SQLiteRepository) int64 {
	t.Helper()
	sections := core.DefaultSections()
	first := core.Observation{Month: 5, Year: 2023, Value: 1000, HasValue: true}
	second := core.Observation{Month: 5, Year: 2024, Value: 1200, HasValue: true}
	results := []core.SectionResult{core.Calculate(first, second, sections[0])}
	id, err := repo.SaveSubmission(context.Background(), core.Submission{
		Results: results,
		Total:   core.Aggregate(results),
	})
	if err != nil {
		t.Fatalf("save submission: %v", err)
	}
	return id
}

func TestHandleExportMessage(t *testing.T) {
	repo := newTestStorage(t)
	sink := memory.New(nil)
	w := NewExportWorker(repo, sink, nil, 10)
	ctx := context.Background()

	id := saveSubmission(t, repo)
	if err := w.HandleExportMessage(ctx, amqp.NewSubmissionExportMessage(id, 1)); err != nil {
		t.Fatalf("handle export message: %v", err)
	}

	if got := sink.Submissions(); len(got) != 1 {
		t.Fatalf("sink has %d submissions, want 1", len(got))
	}
	pending, err := repo.GetPendingExportSubmissions(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending submissions after export")
	}
}

func TestHandleExportMessageUnknownID(t *testing.T) {
	repo := newTestStorage(t)
	w := NewExportWorker(repo, memory.New(nil), nil, 10)

	err := w.HandleExportMessage(context.Background(), amqp.NewSubmissionExportMessage(999, 1))
	if !errors.Is(err, storage.ErrSubmissionNotFound) {
		t.Fatalf("err = %v, want ErrSubmissionNotFound", err)
	}
}

func TestProcessPendingSubmissions(t *testing.T) {
	repo := newTestStorage(t)
	sink := memory.New(nil)
	w := NewExportWorker(repo, sink, nil, 10)
	ctx := context.Background()

	saveSubmission(t, repo)
	saveSubmission(t, repo)

	if err := w.ProcessPendingSubmissions(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}
	if got := sink.Submissions(); len(got) != 2 {
		t.Fatalf("sink has %d submissions, want 2", len(got))
	}

	// A second pass finds nothing to do.
	if err := w.ProcessPendingSubmissions(ctx); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if got := sink.Submissions(); len(got) != 2 {
		t.Fatalf("second pass re-exported: %d submissions", len(got))
	}
}

func TestForceRefreshIndex(t *testing.T) {
	repo := newTestStorage(t)
	source := &fakeIndexSource{values: map[string]float64{
		"2025-01": 2800.42,
		"bogus":   1,
	}}
	w := NewExportWorker(repo, nil, source, 10)
	ctx := context.Background()

	if err := w.ForceRefreshIndex(ctx); err != nil {
		t.Fatalf("force refresh: %v", err)
	}
	v, ok, _ := repo.Value(ctx, 2025, 1)
	if !ok || v != 2800.42 {
		t.Fatalf("2025-01 = %v ok=%v, want 2800.42", v, ok)
	}
}

func TestRefreshIndexIfNeededFreshTable(t *testing.T) {
	repo := newTestStorage(t)
	source := &fakeIndexSource{err: errors.New("should not be called")}
	w := NewExportWorker(repo, nil, source, 10)

	// The seeded table is fresh; the source must not be consulted.
	if err := w.RefreshIndexIfNeeded(context.Background()); err != nil {
		t.Fatalf("refresh if needed: %v", err)
	}
}

func TestRefreshIndexWithoutSource(t *testing.T) {
	repo := newTestStorage(t)
	w := NewExportWorker(repo, nil, nil, 10)

	if err := w.RefreshIndexIfNeeded(context.Background()); err != nil {
		t.Fatalf("refresh without source should be a no-op: %v", err)
	}
	if err := w.ForceRefreshIndex(context.Background()); err == nil {
		t.Fatalf("force refresh without source should fail")
	}
}
