package syncer

import (
	"strings"

	"jobfeed/sync-service/internal/model"
)

// filterListings drops listings whose combined text matches any exclusion
// term and returns the kept slice plus the drop count. With no terms
// configured it is a pass-through.
func filterListings(listings []model.Listing, terms []string) ([]model.Listing, int) {
	if len(terms) == 0 {
		return listings, 0
	}
	kept := make([]model.Listing, 0, len(listings))
	dropped := 0
	for _, l := range listings {
		if matchesExcluded(l, terms) {
			dropped++
			continue
		}
		kept = append(kept, l)
	}
	return kept, dropped
}

// matchesExcluded reports whether any term appears case-insensitively in
// the listing's title, company or description.
func matchesExcluded(l model.Listing, terms []string) bool {
	combined := l.Title
	if l.Company != nil {
		combined += " " + *l.Company
	}
	if l.Description != nil {
		combined += " " + *l.Description
	}
	combined = strings.ToLower(combined)

	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
