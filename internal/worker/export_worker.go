package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"artis/internal/amqp"
	"artis/internal/core"
	"artis/internal/refdata"
	"artis/internal/storage"
)

// ExportWorker ships stored submissions to the export sink and keeps the
// reference index table fresh from the external source.
type ExportWorker struct {
	storage   *storage.SQLiteRepository
	sink      refdata.SubmissionWriter
	source    refdata.IndexSource
	batchSize int
}

func NewExportWorker(storage *storage.SQLiteRepository, sink refdata.SubmissionWriter, source refdata.IndexSource, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		sink:      sink,
		source:    source,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single submission export message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.SubmissionExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"id", msg.ID,
		"version", msg.Version)

	sub, err := w.storage.GetSubmission(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get submission from storage: %w", err)
	}

	if err := w.exportSubmission(ctx, msg.ID, sub); err != nil {
		return fmt.Errorf("export submission: %w", err)
	}

	return nil
}

// ProcessPendingSubmissions exports any submissions that have not been
// shipped yet. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingSubmissions(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportSubmissions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending submissions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending submissions", "count", len(pending))

	for _, p := range pending {
		sub, err := w.storage.GetSubmission(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get submission", "id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportSubmission(ctx, p.ID, sub); err != nil {
			slog.ErrorContext(ctx, "Failed to export submission", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupExportCheck ships any submissions pending at worker startup. Useful
// to recover from missed AMQP messages or worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingExportSubmissions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending submissions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending submissions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending submissions on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		sub, err := w.storage.GetSubmission(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get submission for startup export",
				"id", p.ID, "error", err)
			if err := w.storage.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportSubmission(ctx, p.ID, sub); err != nil {
			slog.ErrorContext(ctx, "Failed to export submission during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

// RefreshIndexIfNeeded loads the reference index from the external source
// when the local table is empty or stale (older than 7 days).
func (w *ExportWorker) RefreshIndexIfNeeded(ctx context.Context) error {
	if w.source == nil {
		slog.InfoContext(ctx, "No index source configured, keeping seeded reference table")
		return nil
	}

	count, err := w.storage.CountReferenceValues(ctx)
	if err != nil {
		return fmt.Errorf("count reference values: %w", err)
	}

	if count == 0 {
		slog.InfoContext(ctx, "Reference table empty, loading from source...")
		return w.refreshIndexFromSource(ctx)
	}

	lastUpdate, err := w.storage.ReferenceLastUpdate(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Could not determine reference table age, keeping current data", "error", err)
		return nil
	}

	age := time.Since(lastUpdate)
	const maxAge = 7 * 24 * time.Hour

	if age > maxAge {
		slog.InfoContext(ctx, "Reference table is stale, refreshing from source",
			"last_update", lastUpdate.Format(time.RFC3339),
			"age", age.Round(time.Hour))
		return w.refreshIndexFromSource(ctx)
	}

	slog.InfoContext(ctx, "Reference table is fresh",
		"periods", count,
		"last_update", lastUpdate.Format(time.RFC3339),
		"age", age.Round(time.Hour))

	return nil
}

// ForceRefreshIndex reloads the reference index regardless of age.
func (w *ExportWorker) ForceRefreshIndex(ctx context.Context) error {
	if w.source == nil {
		return fmt.Errorf("no index source configured")
	}
	slog.InfoContext(ctx, "Force refreshing reference index from source")
	return w.refreshIndexFromSource(ctx)
}

func (w *ExportWorker) refreshIndexFromSource(ctx context.Context) error {
	values, err := w.source.ReadIndexValues(ctx)
	if err != nil {
		return fmt.Errorf("read index values: %w", err)
	}

	updated := 0
	for period, value := range values {
		if err := w.storage.UpsertReferenceValue(ctx, period, value); err != nil {
			slog.WarnContext(ctx, "Skipping index period",
				"period", period, "error", err)
			continue
		}
		updated++
	}

	slog.InfoContext(ctx, "Reference index refreshed",
		"from_source", len(values),
		"updated", updated)

	return nil
}

func (w *ExportWorker) exportSubmission(ctx context.Context, id int64, sub core.Submission) error {
	if w.sink == nil {
		slog.WarnContext(ctx, "No export sink configured, leaving submission pending", "id", id)
		return nil
	}

	ref, err := w.sink.Append(ctx, sub)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sink: %w", err)
	}

	if err := w.storage.MarkExported(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as exported", "id", id, "error", err)
		// Don't return an error here - the export actually worked
	}

	slog.InfoContext(ctx, "Successfully exported submission",
		"id", id,
		"sink_ref", ref,
		"total", sub.Total.Total)

	return nil
}
