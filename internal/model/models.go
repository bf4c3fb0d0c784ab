// Package model defines the shared data structures for the sync service.
package model

import "time"

// Source identifies an external job-listing provider.
type Source string

const (
	SourceJSearch Source = "jsearch"
	SourceUSAJobs Source = "usajobs"

	// SourceAll selects every configured provider in SyncOptions.
	SourceAll = "all"
)

// JobType is the common employment-schedule enumeration. Provider-specific
// codes are mapped onto it at the adapter boundary; anything unmapped
// becomes JobTypeOther.
type JobType string

const (
	JobTypeFullTime          JobType = "full-time"
	JobTypePartTime          JobType = "part-time"
	JobTypeContract          JobType = "contract"
	JobTypeInternship        JobType = "internship"
	JobTypeShiftWork         JobType = "shift-work"
	JobTypeIntermittent      JobType = "intermittent"
	JobTypeJobSharing        JobType = "job-sharing"
	JobTypeMultipleSchedules JobType = "multiple-schedules"
	JobTypeOther             JobType = "other"
)

// WorkMode describes where the work happens. Adapters leave it nil when
// the provider gives no signal either way.
type WorkMode string

const (
	WorkModeRemote WorkMode = "remote"
	WorkModeOnSite WorkMode = "on-site"
	WorkModeHybrid WorkMode = "hybrid"
)

// Listing is a normalized job posting as produced by a provider adapter.
// Pointer fields are nullable: the provider either supplied the value or
// it is absent — never inferred.
//
// SalaryMin, SalaryMax and SalaryRange are all nil or all populated.
type Listing struct {
	ExternalID  string     `json:"externalId"`
	Source      Source     `json:"source"`
	Title       string     `json:"title"`
	Company     *string    `json:"company"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	JobType     JobType    `json:"jobType"`
	WorkMode    *WorkMode  `json:"workMode"`
	Industry    *string    `json:"industry"`
	SalaryMin   *float64   `json:"salaryMin"`
	SalaryMax   *float64   `json:"salaryMax"`
	SalaryRange *string    `json:"salaryRange"`
	ExternalURL string     `json:"externalUrl"`
	PostedDate  *time.Time `json:"postedDate"`
}

// StoredListing is the consumer-facing read shape: a Listing plus the
// ingestion metadata maintained by the store.
type StoredListing struct {
	Listing
	FetchedAt time.Time `json:"fetchedAt"`
	IsActive  bool      `json:"isActive"`
}

// SyncOptions selects which providers to sync. Source is a provider name
// or SourceAll. Force bypasses the per-source cooldown guard.
type SyncOptions struct {
	Source string `json:"source"`
	Force  bool   `json:"force"`
}

// SyncResult is the structured outcome of one orchestrator invocation.
// Success is true iff Errors is empty; a false Success still means some
// data may have been ingested — inspect JobsSaved and Errors.
type SyncResult struct {
	Success    bool     `json:"success"`
	Source     string   `json:"source"`
	JobsFound  int      `json:"jobsFound"`
	JobsSaved  int      `json:"jobsSaved"`
	Errors     []string `json:"errors"`
	DurationMs int64    `json:"durationMs"`
}

// ListingStats is the read-only aggregate view over the persisted store.
// Breakdown maps cover active rows only; LastSyncTime is the maximum
// fetched_at across all rows, nil when the store is empty.
type ListingStats struct {
	TotalJobs      int64            `json:"totalJobs"`
	ActiveJobs     int64            `json:"activeJobs"`
	JobsByType     map[string]int64 `json:"jobsByType"`
	JobsByWorkMode map[string]int64 `json:"jobsByWorkMode"`
	JobsBySource   map[string]int64 `json:"jobsBySource"`
	LastSyncTime   *time.Time       `json:"lastSyncTime"`
}
