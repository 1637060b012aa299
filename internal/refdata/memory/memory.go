package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"artis/internal/core"
	"artis/internal/refdata"
)

// Store is an in-memory reference index and submission sink, used when no
// database backend is configured. The builtin series covers the published
// TÜFE index up to the end of 2024; later periods require manual entry.
type Store struct {
	mu     sync.Mutex
	values map[string]float64
	subs   []core.Submission
}

func New(values map[string]float64) *Store {
	merged := make(map[string]float64, len(values))
	for k, v := range values {
		merged[strings.TrimSpace(k)] = v
	}
	return &Store{values: merged}
}

// NewFromFiles seeds the store from base/reference_values.txt when present,
// falling back to the builtin series.
func NewFromFiles(base string) *Store {
	values := readIndexFile(filepath.Join(base, "reference_values.txt"))
	if len(values) == 0 {
		values = DefaultIndex()
	}
	return New(values)
}

// Value implements refdata.Lookup.
func (s *Store) Value(_ context.Context, year, month int) (float64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[refdata.PeriodKey(year, month)]
	return v, ok, nil
}

// Append stores the submission and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, sub core.Submission) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return fmt.Sprintf("mem:%d", len(s.subs)), nil
}

// Submissions returns a copy of the stored submissions, oldest first.
func (s *Store) Submissions() []core.Submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Submission, len(s.subs))
	copy(out, s.subs)
	return out
}

// readIndexFile parses lines of the form "YYYY-MM<space>value". Blank lines
// and #-comments are skipped, as are malformed entries.
func readIndexFile(path string) map[string]float64 {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	out := map[string]float64{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if _, _, err := refdata.ParsePeriodKey(fields[0]); err != nil {
			continue
		}
		v, ok := core.ParseValue(fields[1])
		if !ok {
			continue
		}
		out[fields[0]] = v
	}
	return out
}

// DefaultIndex returns the builtin TÜFE reference series (2003=100 base).
func DefaultIndex() map[string]float64 {
	return map[string]float64{
		"2022-01": 686.95,
		"2022-02": 720.20,
		"2022-03": 759.69,
		"2022-04": 812.12,
		"2022-05": 860.35,
		"2022-06": 902.81,
		"2022-07": 922.38,
		"2022-08": 942.04,
		"2022-09": 973.98,
		"2022-10": 1008.79,
		"2022-11": 1046.89,
		"2022-12": 1128.45,
		"2023-01": 1203.50,
		"2023-02": 1241.41,
		"2023-03": 1269.84,
		"2023-04": 1300.02,
		"2023-05": 1300.51,
		"2023-06": 1351.59,
		"2023-07": 1479.87,
		"2023-08": 1614.41,
		"2023-09": 1691.04,
		"2023-10": 1749.98,
		"2023-11": 1807.38,
		"2023-12": 1860.33,
		"2024-01": 1984.97,
		"2024-02": 2074.89,
		"2024-03": 2140.46,
		"2024-04": 2208.52,
		"2024-05": 2282.95,
		"2024-06": 2320.39,
		"2024-07": 2395.34,
		"2024-08": 2454.50,
		"2024-09": 2527.40,
		"2024-10": 2600.19,
		"2024-11": 2658.43,
		"2024-12": 2685.81,
	}
}
