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
	"time"

	"jobfeed/sync-service/internal/model"
)

const (
	usajobsBaseURL        = "https://data.usajobs.gov"
	usajobsResultsPerPage = 100
)

// USAJobs fetches postings from the USAJobs federal search API. The API
// needs both an authorization key and a registered User-Agent email; if
// either is missing FetchAll returns (nil, nil) with a logged warning.
type USAJobs struct {
	apiKey    string
	userAgent string
	baseURL   string
	client    *http.Client
}

// NewUSAJobs constructs the adapter with a shared HTTP client.
func NewUSAJobs(apiKey, userAgent string) *USAJobs {
	return &USAJobs{
		apiKey:    apiKey,
		userAgent: userAgent,
		baseURL:   usajobsBaseURL,
		client:    newHTTPClient(),
	}
}

func (u *USAJobs) Source() model.Source { return model.SourceUSAJobs }

// usajobsQuery is one sub-query against the provider.
type usajobsQuery struct {
	Keyword          string
	LocationName     string
	ScheduleTypeCode string // provider position-schedule code, "1".."6"
	RemoteIndicator  bool
	ResultPage       int
}

// Response schemas, validated at the adapter boundary. A shape mismatch
// surfaces as a json error rather than silently nulled fields.
type usajobsResponse struct {
	SearchResult usajobsSearchResult `json:"SearchResult"`
}

type usajobsSearchResult struct {
	SearchResultCount int           `json:"SearchResultCount"`
	SearchResultItems []usajobsItem `json:"SearchResultItems"`
}

type usajobsItem struct {
	MatchedObjectID         string            `json:"MatchedObjectId"`
	MatchedObjectDescriptor usajobsDescriptor `json:"MatchedObjectDescriptor"`
}

type usajobsDescriptor struct {
	PositionID              string                `json:"PositionID"`
	PositionTitle           string                `json:"PositionTitle"`
	OrganizationName        string                `json:"OrganizationName"`
	PositionLocationDisplay string                `json:"PositionLocationDisplay"`
	PositionLocation        []usajobsLocation     `json:"PositionLocation"`
	PositionURI             string                `json:"PositionURI"`
	PositionSchedule        []usajobsCodeName     `json:"PositionSchedule"`
	PositionRemuneration    []usajobsRemuneration `json:"PositionRemuneration"`
	QualificationSummary    string                `json:"QualificationSummary"`
	PublicationStartDate    string                `json:"PublicationStartDate"`
	JobCategory             []usajobsCodeName     `json:"JobCategory"`
	UserArea                usajobsUserArea       `json:"UserArea"`
}

type usajobsLocation struct {
	CityName               string `json:"CityName"`
	CountrySubDivisionCode string `json:"CountrySubDivisionCode"`
	CountryCode            string `json:"CountryCode"`
}

type usajobsCodeName struct {
	Code string `json:"Code"`
	Name string `json:"Name"`
}

type usajobsRemuneration struct {
	MinimumRange     string `json:"MinimumRange"`
	MaximumRange     string `json:"MaximumRange"`
	RateIntervalCode string `json:"RateIntervalCode"`
}

type usajobsUserArea struct {
	Details usajobsDetails `json:"Details"`
}

type usajobsDetails struct {
	JobSummary      string `json:"JobSummary"`
	RemoteIndicator bool   `json:"RemoteIndicator"`
}

// usajobsScheduleTypes maps the provider's position-schedule codes onto
// the common enum. Unmapped codes fall back to JobTypeOther.
var usajobsScheduleTypes = map[string]model.JobType{
	"1": model.JobTypeFullTime,
	"2": model.JobTypePartTime,
	"3": model.JobTypeShiftWork,
	"4": model.JobTypeIntermittent,
	"5": model.JobTypeJobSharing,
	"6": model.JobTypeMultipleSchedules,
}

// usajobsRateIntervals maps remuneration rate-interval codes to the pay
// period word used in the salary range string.
var usajobsRateIntervals = map[string]string{
	"PA": "year",
	"PH": "hour",
	"PD": "day",
	"PW": "week",
	"PM": "month",
	"BW": "biweekly",
}

// FetchAll issues the fan-out sub-queries (full-time and part-time in the
// target region, plus nationwide remote) and concatenates their results.
// Sub-query failures are joined into the returned error alongside
// whatever partial results were fetched.
func (u *USAJobs) FetchAll(ctx context.Context, region string) ([]model.Listing, error) {
	if u.apiKey == "" || u.userAgent == "" {
		log.Println("[usajobs] USAJOBS_API_KEY / USAJOBS_USER_AGENT not set — skipping source")
		return nil, nil
	}

	queries := []usajobsQuery{
		{LocationName: region, ScheduleTypeCode: "1"},
		{LocationName: region, ScheduleTypeCode: "2"},
		{RemoteIndicator: true},
	}

	var (
		listings []model.Listing
		errs     []error
	)
	for _, q := range queries {
		batch, err := u.search(ctx, q)
		if err != nil {
			log.Printf("[usajobs] sub-query %+v failed: %v — continuing", q, err)
			errs = append(errs, err)
			continue
		}
		listings = append(listings, batch...)
	}

	return listings, errors.Join(errs...)
}

func (u *USAJobs) search(ctx context.Context, q usajobsQuery) ([]model.Listing, error) {
	params := url.Values{}
	params.Set("ResultsPerPage", strconv.Itoa(usajobsResultsPerPage))
	if q.Keyword != "" {
		params.Set("Keyword", q.Keyword)
	}
	if q.LocationName != "" {
		params.Set("LocationName", q.LocationName)
	}
	if q.ScheduleTypeCode != "" {
		params.Set("PositionScheduleTypeCode", q.ScheduleTypeCode)
	}
	if q.RemoteIndicator {
		params.Set("RemoteIndicator", "True")
	}
	if q.ResultPage > 1 {
		params.Set("Page", strconv.Itoa(q.ResultPage))
	}

	reqURL := u.baseURL + "/api/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization-Key", u.apiKey)
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("usajobs returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var apiResp usajobsResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]model.Listing, 0, len(apiResp.SearchResult.SearchResultItems))
	for _, item := range apiResp.SearchResult.SearchResultItems {
		if item.MatchedObjectID == "" {
			continue // unusable without a provider id
		}
		listings = append(listings, mapUSAJobsItem(item))
	}
	return listings, nil
}

func mapUSAJobsItem(item usajobsItem) model.Listing {
	d := item.MatchedObjectDescriptor

	var location *string
	if len(d.PositionLocation) > 0 {
		loc := d.PositionLocation[0]
		location = joinLocation(loc.CityName, loc.CountrySubDivisionCode, loc.CountryCode)
	}
	if location == nil {
		location = strPtr(d.PositionLocationDisplay)
	}

	jobType := model.JobTypeOther
	if len(d.PositionSchedule) > 0 {
		if mapped, ok := usajobsScheduleTypes[d.PositionSchedule[0].Code]; ok {
			jobType = mapped
		}
	}

	description := strPtr(d.UserArea.Details.JobSummary)
	if description == nil {
		description = strPtr(d.QualificationSummary)
	}

	var industry *string
	if len(d.JobCategory) > 0 {
		industry = strPtr(d.JobCategory[0].Name)
	}

	listing := model.Listing{
		ExternalID:  item.MatchedObjectID,
		Source:      model.SourceUSAJobs,
		Title:       d.PositionTitle,
		Company:     strPtr(d.OrganizationName),
		Location:    location,
		Description: description,
		JobType:     jobType,
		WorkMode:    deriveWorkMode(d.UserArea.Details.RemoteIndicator, location),
		Industry:    industry,
		ExternalURL: d.PositionURI,
		PostedDate: parseDate(d.PublicationStartDate,
			time.RFC3339, "2006-01-02T15:04:05.0000000", "2006-01-02T15:04:05", "2006-01-02"),
	}

	// Salary is populated only when both remuneration bounds parse.
	if len(d.PositionRemuneration) > 0 {
		rem := d.PositionRemuneration[0]
		min, errMin := strconv.ParseFloat(rem.MinimumRange, 64)
		max, errMax := strconv.ParseFloat(rem.MaximumRange, 64)
		if errMin == nil && errMax == nil {
			r := salaryRange(min, max, usajobsRateIntervals[rem.RateIntervalCode])
			listing.SalaryMin = &min
			listing.SalaryMax = &max
			listing.SalaryRange = &r
		}
	}

	return listing
}
