package core

import "math"

// Calculate runs the section calculator over two observations.
//
// Validation happens in order: both observations must be complete, then the
// first value (the baseline) must be positive. An incomplete pair where one
// side has been filled in yields ErrMissingFields so the user is told to
// finish the form; a pair where both sides are untouched yields a silent
// invalid result, which is the initial state of the page.
func Calculate(first, second Observation, sec Section) SectionResult {
	res := SectionResult{Section: sec, First: first, Second: second}

	if !first.Complete() || !second.Complete() {
		if first.Complete() != second.Complete() || first.HasValue != second.HasValue {
			res.Err = ErrMissingFields
		}
		return res
	}

	if first.Value <= 0 {
		res.Err = ErrNonPositiveBaseline
		return res
	}

	res.PercentChange = (second.Value - first.Value) / first.Value * 100
	res.WeightedChange = res.PercentChange * sec.Weight
	res.Trend = trendOf(res.PercentChange)
	res.Label = first.Period() + " - " + second.Period() + " " + sec.ValueLabel
	res.Valid = true
	return res
}

// Aggregate sums the weighted changes of the valid sections. Invalid sections
// are excluded entirely, not counted as zero. When no section is valid the
// returned total is marked invalid and nothing should be displayed.
func Aggregate(results []SectionResult) TotalResult {
	var total TotalResult
	for _, r := range results {
		if !r.Valid || math.IsNaN(r.WeightedChange) {
			continue
		}
		total.Total += r.WeightedChange
		total.Sections++
	}
	if total.Sections == 0 {
		return TotalResult{}
	}
	total.Trend = trendOf(total.Total)
	total.Valid = true
	return total
}

func trendOf(change float64) Trend {
	switch {
	case change > 0:
		return TrendIncrease
	case change < 0:
		return TrendDecrease
	default:
		return TrendFlat
	}
}
