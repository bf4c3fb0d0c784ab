package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobfeed/sync-service/internal/model"
)

const (
	jsearchBaseURL       = "https://jsearch.p.rapidapi.com"
	jsearchHost          = "jsearch.p.rapidapi.com"
	jsearchPagesPerQuery = 1
)

// JSearch fetches job postings from the JSearch aggregator on RapidAPI.
// With an empty API key FetchAll returns (nil, nil) and logs a warning —
// the orchestrator simply sees zero records from this source.
type JSearch struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewJSearch constructs the adapter with a shared HTTP client.
func NewJSearch(apiKey string) *JSearch {
	return &JSearch{
		apiKey:  apiKey,
		baseURL: jsearchBaseURL,
		client:  newHTTPClient(),
	}
}

func (j *JSearch) Source() model.Source { return model.SourceJSearch }

// jsearchQuery is one sub-query against the provider.
type jsearchQuery struct {
	Query           string
	Location        string
	EmploymentTypes string // comma-delimited provider codes, e.g. "FULLTIME,PARTTIME"
	RemoteOnly      bool
	Page            int
	PagesPerQuery   int
}

// jsearchResponse mirrors the top-level JSearch JSON response.
type jsearchResponse struct {
	Status string       `json:"status"`
	Data   []jsearchJob `json:"data"`
}

// jsearchJob mirrors a single JSearch posting.
type jsearchJob struct {
	JobID             string   `json:"job_id"`
	JobTitle          string   `json:"job_title"`
	EmployerName      string   `json:"employer_name"`
	JobCity           string   `json:"job_city"`
	JobState          string   `json:"job_state"`
	JobCountry        string   `json:"job_country"`
	JobDescription    string   `json:"job_description"`
	JobEmploymentType string   `json:"job_employment_type"`
	JobIsRemote       bool     `json:"job_is_remote"`
	JobMinSalary      *float64 `json:"job_min_salary"`
	JobMaxSalary      *float64 `json:"job_max_salary"`
	JobSalaryPeriod   string   `json:"job_salary_period"`
	JobApplyLink      string   `json:"job_apply_link"`
	JobPostedAtUTC    string   `json:"job_posted_at_datetime_utc"`
	JobNAICSName      string   `json:"job_naics_name"`
}

// jsearchJobTypes maps the provider's employment-type codes onto the
// common enum. Unmapped codes fall back to JobTypeOther.
var jsearchJobTypes = map[string]model.JobType{
	"FULLTIME":   model.JobTypeFullTime,
	"PARTTIME":   model.JobTypePartTime,
	"CONTRACTOR": model.JobTypeContract,
	"INTERN":     model.JobTypeInternship,
}

// FetchAll issues the fan-out sub-queries for the target region and
// concatenates their results. Overlap between sub-queries is expected;
// deduplication is the store's job. Sub-query failures are joined into
// the returned error alongside whatever partial results were fetched.
func (j *JSearch) FetchAll(ctx context.Context, region string) ([]model.Listing, error) {
	if j.apiKey == "" {
		log.Println("[jsearch] JSEARCH_API_KEY not set — skipping source")
		return nil, nil
	}

	queries := []jsearchQuery{
		{Query: "jobs", Location: region, EmploymentTypes: "FULLTIME"},
		{Query: "jobs", Location: region, EmploymentTypes: "PARTTIME"},
		{Query: "jobs", Location: region, EmploymentTypes: "CONTRACTOR"},
		{Query: "remote jobs", RemoteOnly: true},
	}

	var (
		listings []model.Listing
		errs     []error
	)
	for _, q := range queries {
		batch, err := j.search(ctx, q)
		if err != nil {
			log.Printf("[jsearch] sub-query %+v failed: %v — continuing", q, err)
			errs = append(errs, err)
			continue
		}
		listings = append(listings, batch...)
	}

	return listings, errors.Join(errs...)
}

func (j *JSearch) search(ctx context.Context, q jsearchQuery) ([]model.Listing, error) {
	params := url.Values{}
	query := q.Query
	if q.Location != "" {
		query = q.Query + " in " + q.Location
	}
	params.Set("query", query)
	page := q.Page
	if page < 1 {
		page = 1
	}
	params.Set("page", strconv.Itoa(page))
	pages := q.PagesPerQuery
	if pages < 1 {
		pages = jsearchPagesPerQuery
	}
	params.Set("num_pages", strconv.Itoa(pages))
	if q.EmploymentTypes != "" {
		params.Set("employment_types", q.EmploymentTypes)
	}
	if q.RemoteOnly {
		params.Set("remote_jobs_only", "true")
	}

	reqURL := j.baseURL + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-RapidAPI-Key", j.apiKey)
	req.Header.Set("X-RapidAPI-Host", jsearchHost)
	req.Header.Set("Accept", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jsearch returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var apiResp jsearchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]model.Listing, 0, len(apiResp.Data))
	for _, job := range apiResp.Data {
		if job.JobID == "" {
			continue // unusable without a provider id
		}
		listings = append(listings, mapJSearchJob(job))
	}
	return listings, nil
}

func mapJSearchJob(job jsearchJob) model.Listing {
	location := joinLocation(job.JobCity, job.JobState, job.JobCountry)

	jobType, ok := jsearchJobTypes[strings.ToUpper(job.JobEmploymentType)]
	if !ok {
		jobType = model.JobTypeOther
	}

	listing := model.Listing{
		ExternalID:  job.JobID,
		Source:      model.SourceJSearch,
		Title:       job.JobTitle,
		Company:     strPtr(job.EmployerName),
		Location:    location,
		Description: strPtr(job.JobDescription),
		JobType:     jobType,
		WorkMode:    deriveWorkMode(job.JobIsRemote, location),
		Industry:    strPtr(job.JobNAICSName),
		ExternalURL: job.JobApplyLink,
		PostedDate:  parseDate(job.JobPostedAtUTC, time.RFC3339, "2006-01-02T15:04:05.000Z"),
	}

	// Salary is populated only when the provider supplies both bounds.
	if job.JobMinSalary != nil && job.JobMaxSalary != nil {
		r := salaryRange(*job.JobMinSalary, *job.JobMaxSalary, strings.ToLower(job.JobSalaryPeriod))
		listing.SalaryMin = job.JobMinSalary
		listing.SalaryMax = job.JobMaxSalary
		listing.SalaryRange = &r
	}

	return listing
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
