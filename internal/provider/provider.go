// Package provider implements the per-provider adapters that translate
// external job-board APIs into the common Listing shape.
//
// Adapter contract: FetchAll never panics. Missing credentials produce
// (nil, nil) with a logged warning — an expected, non-error condition.
// Transport and payload failures on individual sub-queries are folded
// into the returned error while partial results are still returned.
package provider

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"jobfeed/sync-service/internal/model"
)

const httpTimeout = 15 * time.Second

// Adapter is one external job-listing source.
type Adapter interface {
	Source() model.Source
	FetchAll(ctx context.Context, region string) ([]model.Listing, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// joinLocation joins locality parts (city, state, country, …) with ", ",
// skipping empty parts. Returns nil when nothing is present.
func joinLocation(parts ...string) *string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	s := strings.Join(kept, ", ")
	return &s
}

// deriveWorkMode applies the common policy: an explicit remote flag wins,
// otherwise a known location means on-site, otherwise unknown.
func deriveWorkMode(remote bool, location *string) *model.WorkMode {
	if remote {
		m := model.WorkModeRemote
		return &m
	}
	if location != nil {
		m := model.WorkModeOnSite
		return &m
	}
	return nil
}

// salaryRange builds the "$<min> - $<max> per <period>" display string.
// Callers must only invoke it when both bounds are present; period
// defaults to "year" when the provider did not state one.
func salaryRange(min, max float64, period string) string {
	if period == "" {
		period = "year"
	}
	return "$" + formatAmount(min) + " - $" + formatAmount(max) + " per " + period
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// parseDate tries each layout in order and returns nil when none matches.
// Posted dates are never inferred — absent or unparsable means nil.
func parseDate(raw string, layouts ...string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// strPtr returns nil for empty strings so that absent provider fields
// stay null instead of becoming "".
func strPtr(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}
