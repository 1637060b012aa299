package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"artis/internal/core"
	"artis/internal/refdata"

	_ "modernc.org/sqlite"
)

// Export states of a stored submission.
const (
	ExportPending  = "pending"
	ExportExported = "exported"
	ExportError    = "error"
)

var ErrSubmissionNotFound = errors.New("submission not found")

// PendingExport is the minimal data carried by export queue messages.
type PendingExport struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

type SQLiteRepository struct {
	db       *sql.DB
	sections []core.Section
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:       db,
		sections: core.DefaultSections(),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Value implements refdata.Lookup against the reference_values table.
func (r *SQLiteRepository) Value(ctx context.Context, year, month int) (float64, bool, error) {
	var v float64
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM reference_values WHERE period = ?`,
		refdata.PeriodKey(year, month)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup reference value: %w", err)
	}
	return v, true, nil
}

// UpsertReferenceValue inserts or replaces one period of the index series.
func (r *SQLiteRepository) UpsertReferenceValue(ctx context.Context, period string, value float64) error {
	if _, _, err := refdata.ParsePeriodKey(period); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO reference_values (period, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(period) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		period, value)
	if err != nil {
		return fmt.Errorf("upsert reference value: %w", err)
	}
	return nil
}

// CountReferenceValues returns the number of periods in the index table.
func (r *SQLiteRepository) CountReferenceValues(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM reference_values`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reference values: %w", err)
	}
	return n, nil
}

// ReferenceLastUpdate returns the most recent updated_at of the index table,
// or the zero time when the table is empty.
func (r *SQLiteRepository) ReferenceLastUpdate(ctx context.Context) (time.Time, error) {
	var ts sql.NullString
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM reference_values`).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("reference last update: %w", err)
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, nil
	}
	t, err := parseSQLiteTime(ts.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse reference timestamp: %w", err)
	}
	return t, nil
}

// SaveSubmission persists a computed submission and its section rows in one
// transaction, returning the new submission id.
func (r *SQLiteRepository) SaveSubmission(ctx context.Context, sub core.Submission) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO submissions (total, trend, valid_sections) VALUES (?, ?, ?)`,
		sub.Total.Total, string(sub.Total.Trend), sub.Total.Sections)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("submission id: %w", err)
	}

	for _, sr := range sub.Results {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO submission_sections (
				submission_id, section_key, weight,
				first_month, first_year, first_value,
				second_month, second_year, second_value,
				percent_change, weighted_change, trend, valid
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, sr.Section.Key, sr.Section.Weight,
			sr.First.Month, sr.First.Year, sr.First.Value,
			sr.Second.Month, sr.Second.Year, sr.Second.Value,
			sr.PercentChange, sr.WeightedChange, string(sr.Trend), boolToInt(sr.Valid))
		if err != nil {
			return 0, fmt.Errorf("insert section %s: %w", sr.Section.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit submission: %w", err)
	}

	slog.InfoContext(ctx, "Submission saved to SQLite",
		"id", id,
		"total", sub.Total.Total,
		"trend", sub.Total.Trend,
		"valid_sections", sub.Total.Sections)
	return id, nil
}

// GetSubmission rebuilds a stored submission with its section results.
func (r *SQLiteRepository) GetSubmission(ctx context.Context, id int64) (core.Submission, error) {
	var (
		sub       core.Submission
		createdAt string
		trend     string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, total, trend, valid_sections FROM submissions WHERE id = ?`, id).
		Scan(&sub.ID, &createdAt, &sub.Total.Total, &trend, &sub.Total.Sections)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Submission{}, ErrSubmissionNotFound
	}
	if err != nil {
		return core.Submission{}, fmt.Errorf("select submission: %w", err)
	}
	sub.Total.Trend = core.Trend(trend)
	sub.Total.Valid = sub.Total.Sections > 0
	if t, err := parseSQLiteTime(createdAt); err == nil {
		sub.CreatedAt = t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT section_key, weight,
			first_month, first_year, first_value,
			second_month, second_year, second_value,
			percent_change, weighted_change, trend, valid
		 FROM submission_sections WHERE submission_id = ? ORDER BY rowid`, id)
	if err != nil {
		return core.Submission{}, fmt.Errorf("select submission sections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sr       core.SectionResult
			key      string
			weight   float64
			secTrend string
			valid    int
		)
		if err := rows.Scan(&key, &weight,
			&sr.First.Month, &sr.First.Year, &sr.First.Value,
			&sr.Second.Month, &sr.Second.Year, &sr.Second.Value,
			&sr.PercentChange, &sr.WeightedChange, &secTrend, &valid); err != nil {
			return core.Submission{}, fmt.Errorf("scan section row: %w", err)
		}
		sr.Trend = core.Trend(secTrend)
		sr.Valid = valid != 0
		sr.First.HasValue = sr.Valid
		sr.Second.HasValue = sr.Valid
		if sec, ok := core.SectionByKey(r.sections, key); ok {
			sr.Section = sec
		} else {
			sr.Section = core.Section{Key: key, Weight: weight}
		}
		sub.Results = append(sub.Results, sr)
	}
	if err := rows.Err(); err != nil {
		return core.Submission{}, fmt.Errorf("iterate section rows: %w", err)
	}
	return sub, nil
}

// ListRecentSubmissions returns the latest submissions, newest first.
func (r *SQLiteRepository) ListRecentSubmissions(ctx context.Context, limit int) ([]core.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM submissions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent submissions: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan submission id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submission ids: %w", err)
	}

	subs := make([]core.Submission, 0, len(ids))
	for _, id := range ids {
		sub, err := r.GetSubmission(ctx, id)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// GetPendingExportSubmissions returns submissions not yet exported, oldest
// first.
func (r *SQLiteRepository) GetPendingExportSubmissions(ctx context.Context, limit int) ([]PendingExport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM submissions
		 WHERE export_state = ? ORDER BY created_at LIMIT ?`,
		ExportPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export submissions: %w", err)
	}
	defer rows.Close()

	var out []PendingExport
	for rows.Next() {
		var (
			p         PendingExport
			createdAt string
		)
		if err := rows.Scan(&p.ID, &p.Version, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending export row: %w", err)
		}
		if t, err := parseSQLiteTime(createdAt); err == nil {
			p.CreatedAt = t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending export rows: %w", err)
	}
	return out, nil
}

// MarkExported marks a submission as successfully exported.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if err := r.setExportState(ctx, id, ExportExported); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Submission marked as exported", "id", id)
	return nil
}

// MarkExportError marks a submission as having failed export.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if err := r.setExportState(ctx, id, ExportError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Submission marked with export error", "id", id)
	return nil
}

func (r *SQLiteRepository) setExportState(ctx context.Context, id int64, state string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET export_state = ?, version = version + 1 WHERE id = ?`,
		state, id)
	if err != nil {
		return fmt.Errorf("set export state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// parseSQLiteTime handles the formats the sqlite driver hands back for
// CURRENT_TIMESTAMP columns.
func parseSQLiteTime(s string) (time.Time, error) {
	for _, layout := range []string{
		"2006-01-02 15:04:05",
		time.RFC3339,
		time.RFC3339Nano,
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
