package refdata

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"artis/internal/core"
)

// Ports for outbound adapters.
type (
	// Lookup resolves the reference index value for a period. The bool
	// reports whether the period is present in the table; an absent period
	// means the corresponding form field needs manual entry.
	Lookup interface {
		Value(ctx context.Context, year, month int) (float64, bool, error)
	}

	// IndexSource reads the full reference index series keyed by "YYYY-MM".
	IndexSource interface {
		ReadIndexValues(ctx context.Context) (map[string]float64, error)
	}

	// SubmissionWriter appends a computed submission to the export sink.
	SubmissionWriter interface {
		Append(ctx context.Context, sub core.Submission) (rowRef string, err error)
	}
)

// PeriodKey builds the "YYYY-MM" key used by the reference index table.
func PeriodKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParsePeriodKey splits a "YYYY-MM" key back into year and month. Used when
// importing the index series from an external source.
func ParsePeriodKey(key string) (year, month int, err error) {
	parts := strings.SplitN(strings.TrimSpace(key), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed period key %q", key)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil || year <= 0 {
		return 0, 0, fmt.Errorf("malformed year in period key %q", key)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("malformed month in period key %q", key)
	}
	return year, month, nil
}
