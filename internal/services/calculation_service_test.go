package services

import (
	"context"
	"math"
	"testing"

	"artis/internal/core"
)

func TestRunAllSections(t *testing.T) {
	svc := NewCalculationService(core.DefaultSections(), nil, nil)

	inputs := map[string]SectionInput{
		"akaryakit": {
			First:  core.Observation{Month: 5, Year: 2023, Value: 1000, HasValue: true},
			Second: core.Observation{Month: 5, Year: 2024, Value: 1200, HasValue: true},
		},
		// tufe left untouched
		"asgari-ucret": {
			First:  core.Observation{Month: 1, Year: 2023, Value: 10000, HasValue: true},
			Second: core.Observation{Month: 1, Year: 2024, Value: 9091, HasValue: true},
		},
	}

	sub := svc.Run(inputs)
	if len(sub.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(sub.Results))
	}
	if !sub.Results[0].Valid || sub.Results[0].Trend != core.TrendIncrease {
		t.Fatalf("fuel result = %+v", sub.Results[0])
	}
	if sub.Results[1].Valid || sub.Results[1].Err != nil {
		t.Fatalf("untouched section should be silently invalid, got %+v", sub.Results[1])
	}
	if !sub.Results[2].Valid || sub.Results[2].Trend != core.TrendDecrease {
		t.Fatalf("wage result = %+v", sub.Results[2])
	}
	if !sub.Total.Valid || sub.Total.Sections != 2 {
		t.Fatalf("total = %+v, want 2 counted sections", sub.Total)
	}

	want := sub.Results[0].WeightedChange + sub.Results[2].WeightedChange
	if math.Abs(sub.Total.Total-want) > 1e-9 {
		t.Fatalf("total = %v, want %v", sub.Total.Total, want)
	}
}

func TestRunAllUntouched(t *testing.T) {
	svc := NewCalculationService(core.DefaultSections(), nil, nil)
	sub := svc.Run(nil)
	if sub.Total.Valid {
		t.Fatalf("expected no total for untouched form")
	}
	for i, r := range sub.Results {
		if r.Valid || r.Err != nil {
			t.Fatalf("result %d should be silently invalid, got %+v", i, r)
		}
	}
}

func TestRecordWithoutStorage(t *testing.T) {
	svc := NewCalculationService(core.DefaultSections(), nil, nil)
	id, err := svc.Record(context.Background(), svc.Run(nil))
	if err != nil {
		t.Fatalf("record without storage should not fail: %v", err)
	}
	if id != 0 {
		t.Fatalf("id = %d, want 0", id)
	}
}

func TestCloseWithNilComponents(t *testing.T) {
	svc := NewCalculationService(core.DefaultSections(), nil, nil)
	if err := svc.Close(); err != nil {
		t.Fatalf("close should not fail with nil components: %v", err)
	}
}
