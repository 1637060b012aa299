// Package http provides the HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating the
// calculation form: method guards, form parsing, and mapping the
// per-section field names onto observations.

package http

import (
	"net/http"
	"net/url"
	"strings"

	"artis/internal/core"
	"artis/internal/services"
)

// Form field suffixes. Each section renders six inputs named
// "<key>_first_month", "<key>_first_year", "<key>_first_value" and the
// matching second_* trio.
const (
	fieldFirstMonth  = "_first_month"
	fieldFirstYear   = "_first_year"
	fieldFirstValue  = "_first_value"
	fieldSecondMonth = "_second_month"
	fieldSecondYear  = "_second_year"
	fieldSecondValue = "_second_value"
)

// parseSectionInputs reads the form fields for every configured section.
// Sections with no filled fields at all are left out of the map, which
// keeps them silently invalid downstream.
func parseSectionInputs(form url.Values, sections []core.Section) map[string]services.SectionInput {
	inputs := make(map[string]services.SectionInput, len(sections))

	for _, sec := range sections {
		first, firstTouched := parseObservationFields(form, sec.Key, fieldFirstMonth, fieldFirstYear, fieldFirstValue)
		second, secondTouched := parseObservationFields(form, sec.Key, fieldSecondMonth, fieldSecondYear, fieldSecondValue)

		if !firstTouched && !secondTouched {
			continue
		}
		inputs[sec.Key] = services.SectionInput{First: first, Second: second}
	}

	return inputs
}

func parseObservationFields(form url.Values, key, monthSuffix, yearSuffix, valueSuffix string) (core.Observation, bool) {
	month := sanitizeInput(form.Get(key + monthSuffix))
	year := sanitizeInput(form.Get(key + yearSuffix))
	value := sanitizeInput(form.Get(key + valueSuffix))

	touched := month != "" || year != "" || value != ""
	return core.ParseObservation(month, year, value), touched
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(strings.Join(methods, ", "))
}

// RequirePOST is a convenience function for POST-only handlers.
func RequirePOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on
// failure. Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Geçersiz istek biçimi")
	}
	return nil
}
