// Package http provides the web server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// form handling, period extraction for the report views, and input
// sanitization.

package http

import (
	"net/http"
	"net/url"
	"strings"

	"conto/internal/core"
)

// ParsePeriodParams maps the report filter query to a date predicate.
// Unknown filters fall back to today; a custom filter requires from/to
// dates.
func ParsePeriodParams(query url.Values) (core.Period, error) {
	filter := strings.TrimSpace(query.Get("filter"))
	switch filter {
	case "", string(core.PeriodToday):
		return core.Today(), nil
	case string(core.PeriodLastSevenDays):
		return core.LastSevenDays(), nil
	case string(core.PeriodLastCalendarMonth):
		return core.LastCalendarMonth(), nil
	case string(core.PeriodRange):
		return core.Range(strings.TrimSpace(query.Get("from")), strings.TrimSpace(query.Get("to")))
	default:
		return core.Today(), nil
	}
}

// PeriodTitle names a period for report headings.
func PeriodTitle(p core.Period) string {
	switch p.Kind {
	case core.PeriodLastSevenDays:
		return "Last 7 Days"
	case core.PeriodLastCalendarMonth:
		return "Last Month"
	case core.PeriodRange:
		return p.Start.Format("02 Jan 2006") + " – " + p.End.Format("02 Jan 2006")
	default:
		return "Today"
	}
}

// sanitizeInput trims whitespace and strips control characters except tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// RequireMethod checks the request method against the allowed set, returning
// an error response builder on mismatch and nil on success.
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

// RequireDeleteOrPOST is a convenience function for DELETE/POST handlers.
func RequireDeleteOrPOST(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodDelete, http.MethodPost)
}

// ParseFormOrFail parses the request form and returns an error response on
// failure, nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
