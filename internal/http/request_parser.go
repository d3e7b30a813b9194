// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating the dashboard
// filter parameters shared by the page, the partial, the JSON endpoint and
// the CSV export.

package http

import (
	"net/http"
	"net/url"
	"strings"
)

// Query parameter names of the dashboard filter.
const (
	ParamStart  = "start"
	ParamEnd    = "end"
	ParamStatus = "status"
)

// FilterParams holds the raw filter values of a request. Dates are
// YYYY-MM-DD and may be empty.
type FilterParams struct {
	Start  string
	End    string
	Status string
}

// ParseFilterParams extracts the filter from query values. Values are
// trimmed and stripped of control characters but not validated; the
// report service rejects bad dates and statuses.
func ParseFilterParams(query url.Values) FilterParams {
	return FilterParams{
		Start:  sanitizeInput(query.Get(ParamStart)),
		End:    sanitizeInput(query.Get(ParamEnd)),
		Status: sanitizeInput(query.Get(ParamStatus)),
	}
}

// IsZero reports whether no filter value was given.
func (p FilterParams) IsZero() bool {
	return p.Start == "" && p.End == "" && (p.Status == "" || p.Status == "all")
}

// Encode renders the non-empty values as a query string, without the
// leading '?'.
func (p FilterParams) Encode() string {
	v := url.Values{}
	if p.Start != "" {
		v.Set(ParamStart, p.Start)
	}
	if p.End != "" {
		v.Set(ParamEnd, p.End)
	}
	if p.Status != "" && p.Status != "all" {
		v.Set(ParamStatus, p.Status)
	}
	return v.Encode()
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
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

// RequireGET accepts GET and HEAD.
func RequireGET(r *http.Request) *HTMXResponseBuilder {
	return RequireMethod(r, http.MethodGet, http.MethodHead)
}
