// Package core implements the weighted change calculator: observations,
// section configuration, the per-section calculation and the aggregate total.
//
// This file contains parsing helpers for the free-text form fields.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseValue converts a free-text numeric field to a float64.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Returns
// ok=false for empty, malformed or non-finite input; callers treat that as
// an unset value rather than an error.
func ParseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseMonth converts a month selection to 1-12, or 0 when unset or out of
// range.
func ParseMonth(s string) int {
	m, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || m < 1 || m > 12 {
		return 0
	}
	return m
}

// ParseYear converts a year selection to a positive integer, or 0 when unset.
func ParseYear(s string) int {
	y, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || y <= 0 {
		return 0
	}
	return y
}

// ParseObservation assembles an Observation from the raw form fields of one
// side of a comparison.
func ParseObservation(month, year, value string) Observation {
	obs := Observation{
		Month: ParseMonth(month),
		Year:  ParseYear(year),
	}
	obs.Value, obs.HasValue = ParseValue(value)
	return obs
}
