package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestParseFilterParams(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  FilterParams
	}{
		{
			name:  "all values provided",
			query: url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}, "status": {"Active"}},
			want:  FilterParams{Start: "2024-01-01", End: "2024-01-31", Status: "Active"},
		},
		{
			name:  "empty query",
			query: url.Values{},
			want:  FilterParams{},
		},
		{
			name:  "values are trimmed",
			query: url.Values{"start": {"  2024-01-01 "}, "status": {" all\t"}},
			want:  FilterParams{Start: "2024-01-01", Status: "all"},
		},
		{
			name:  "control characters removed",
			query: url.Values{"end": {"2024-01-\x0031"}},
			want:  FilterParams{End: "2024-01-31"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseFilterParams(tt.query); got != tt.want {
				t.Errorf("ParseFilterParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFilterParamsEncode(t *testing.T) {
	tests := []struct {
		name string
		p    FilterParams
		want string
		zero bool
	}{
		{"empty", FilterParams{}, "", true},
		{"status all is omitted", FilterParams{Status: "all"}, "", true},
		{"full", FilterParams{Start: "2024-01-01", End: "2024-01-10", Status: "Inactive"}, "end=2024-01-10&start=2024-01-01&status=Inactive", false},
		{"start only", FilterParams{Start: "2024-01-01"}, "start=2024-01-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
			if got := tt.p.IsZero(); got != tt.zero {
				t.Errorf("IsZero() = %v, want %v", got, tt.zero)
			}
		})
	}
}

func TestRequireMethod(t *testing.T) {
	tests := []struct {
		method  string
		allowed bool
	}{
		{http.MethodGet, true},
		{http.MethodHead, true},
		{http.MethodPost, false},
		{http.MethodDelete, false},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp := RequireGET(httptest.NewRequest(tt.method, "/", nil))
			if (resp == nil) != tt.allowed {
				t.Fatalf("RequireGET(%s) allowed = %v, want %v", tt.method, resp == nil, tt.allowed)
			}
			if resp != nil {
				w := httptest.NewRecorder()
				resp.Write(w)
				if w.Code != http.StatusMethodNotAllowed || w.Header().Get("Allow") != "GET, HEAD" {
					t.Errorf("status=%d Allow=%q", w.Code, w.Header().Get("Allow"))
				}
			}
		})
	}
}
