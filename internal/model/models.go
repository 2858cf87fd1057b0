// internal/model/models.go
package model

import "time"

// DisplayTimeLayout is the form timestamps take in storage-backed text and the report.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// Identity is the single account on whose behalf all calls are made.
type Identity struct {
	Handle string
	Token  string
}

// RepositoryListing is a repository's base metadata from the account's own listing.
type RepositoryListing struct {
	Name      string
	URL       string
	UpdatedAt time.Time
}

// RepositoryDetail is a repository's enriched metadata from public search.
// Name is the queried listing name, not necessarily the name of the matched result.
type RepositoryDetail struct {
	Name        string
	URL         string
	UpdatedAt   time.Time
	Description *string
	Stars       int
	Forks       int
}

// SearchResult is one candidate returned by the repository search endpoint.
type SearchResult struct {
	Name        string
	FullName    string
	URL         string
	UpdatedAt   time.Time
	Description *string
	Stars       int
	Forks       int
}

// EnrichedRepository is a joined listing/detail row used for reporting.
type EnrichedRepository struct {
	Name             string
	ListingURL       string
	ListingUpdatedAt time.Time
	DetailURL        string
	DetailUpdatedAt  time.Time
	Description      *string
	Stars            int
	Forks            int
}

// FormatTime renders t in the display form, in UTC.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DisplayTimeLayout)
}
