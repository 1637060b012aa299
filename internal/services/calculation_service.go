package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"artis/internal/amqp"
	"artis/internal/core"
	"artis/internal/storage"
)

// SectionInput is the pair of observations entered for one section.
type SectionInput struct {
	First  core.Observation
	Second core.Observation
}

// CalculationService runs the calculator over the configured sections and
// records submissions to SQLite plus the AMQP export queue.
type CalculationService struct {
	sections   []core.Section
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

// NewCalculationService creates the service. storage and amqpClient may be
// nil; submissions are then computed but not audited.
func NewCalculationService(sections []core.Section, storage *storage.SQLiteRepository, amqpClient *amqp.Client) *CalculationService {
	return &CalculationService{
		sections:   sections,
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Sections returns the configured sections in display order.
func (s *CalculationService) Sections() []core.Section {
	return s.sections
}

// Run computes every configured section and the aggregate total. inputs is
// keyed by section key; a missing key computes as an untouched section.
func (s *CalculationService) Run(inputs map[string]SectionInput) core.Submission {
	results := make([]core.SectionResult, 0, len(s.sections))
	for _, sec := range s.sections {
		in := inputs[sec.Key]
		results = append(results, core.Calculate(in.First, in.Second, sec))
	}
	return core.Submission{
		CreatedAt: time.Now(),
		Results:   results,
		Total:     core.Aggregate(results),
	}
}

// Record saves the submission locally and publishes an export message.
// Returns 0 without error when no storage backend is configured.
func (s *CalculationService) Record(ctx context.Context, sub core.Submission) (int64, error) {
	if s.storage == nil {
		return 0, nil
	}

	id, err := s.storage.SaveSubmission(ctx, sub)
	if err != nil {
		return 0, fmt.Errorf("save submission: %w", err)
	}

	// Publish async export message (non-blocking, version 1 for new rows)
	if err := s.publishExportMessage(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish export message",
			"id", id, "error", err)
		// Don't fail the request - the submission is saved locally
	}

	return id, nil
}

func (s *CalculationService) publishExportMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping export message")
		return nil
	}
	return s.amqpClient.PublishSubmissionExport(ctx, id, version)
}

// Close closes both storage and AMQP connections.
func (s *CalculationService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close calculation service: %v", errs)
	}

	return nil
}
