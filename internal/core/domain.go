package core

import (
	"errors"
	"fmt"
	"math"
)

const (
	TrendIncrease Trend = "increase"
	TrendDecrease Trend = "decrease"
	TrendFlat     Trend = "no-change"
)

type (
	// Trend classifies the sign of a percentage change.
	Trend string

	// Observation is one side of a comparison: a month/year period plus the
	// value the user observed in it. Month and Year are zero when the period
	// has not been picked; HasValue is false when the value field was empty
	// or did not parse to a finite number.
	Observation struct {
		Month    int
		Year     int
		Value    float64
		HasValue bool
	}

	// Section is the immutable configuration of one comparison category.
	// Weight scales the percentage change into the section's contribution to
	// the total.
	Section struct {
		Key           string
		Weight        float64
		ValueLabel    string
		WeightedLabel string
		CriteriaLabel string
	}

	// SectionResult is the outcome of running the calculator for one section.
	// Valid results carry the computed changes; invalid results carry either
	// a user-facing error or nothing at all (the untouched form state).
	SectionResult struct {
		Section        Section
		First          Observation
		Second         Observation
		PercentChange  float64
		WeightedChange float64
		Trend          Trend
		Label          string
		Valid          bool
		Err            error
	}

	// TotalResult sums the weighted changes of the valid sections. Valid is
	// false when no section produced a usable result, in which case nothing
	// is displayed.
	TotalResult struct {
		Total    float64
		Trend    Trend
		Sections int
		Valid    bool
	}
)

var (
	ErrMissingFields       = errors.New("all fields must be filled in")
	ErrNonPositiveBaseline = errors.New("first value must be greater than zero")
)

// PeriodSet reports whether a month and year have been chosen.
func (o Observation) PeriodSet() bool {
	return o.Month >= 1 && o.Month <= 12 && o.Year > 0
}

// Complete reports whether the observation can take part in a calculation.
func (o Observation) Complete() bool {
	return o.PeriodSet() && o.HasValue && !math.IsInf(o.Value, 0) && !math.IsNaN(o.Value)
}

// Period returns the observation's period as "MM/YYYY" for labels.
func (o Observation) Period() string {
	if !o.PeriodSet() {
		return "-"
	}
	return fmt.Sprintf("%02d/%d", o.Month, o.Year)
}

// DefaultSections returns the three configured comparison categories.
// Weights are the fixed importance factors of each category.
func DefaultSections() []Section {
	return []Section{
		{
			Key:           "akaryakit",
			Weight:        0.34,
			ValueLabel:    "Akaryakıt Litre Fiyatı",
			WeightedLabel: "Ağırlıklı Akaryakıt Değişimi",
			CriteriaLabel: "Akaryakıt Kriteri",
		},
		{
			Key:           "tufe",
			Weight:        0.33,
			ValueLabel:    "TÜFE Endeksi",
			WeightedLabel: "Ağırlıklı TÜFE Değişimi",
			CriteriaLabel: "TÜFE Kriteri",
		},
		{
			Key:           "asgari-ucret",
			Weight:        0.33,
			ValueLabel:    "Asgari Ücret",
			WeightedLabel: "Ağırlıklı Asgari Ücret Değişimi",
			CriteriaLabel: "Asgari Ücret Kriteri",
		},
	}
}

// SectionByKey finds a configured section. Returns false if the key is not
// one of the configured categories.
func SectionByKey(sections []Section, key string) (Section, bool) {
	for _, s := range sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}
