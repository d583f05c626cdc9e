package domain

import "time"

// ScrapeRequest is the inbound job submission from the workflow engine.
// Keyword is an accepted alias for SearchTerm.
type ScrapeRequest struct {
	JobID      int64  `json:"job_id"`
	AreaID     int64  `json:"area_id"`
	AdminID    string `json:"admin_id,omitempty"`
	SearchTerm string `json:"search_term"`
	Keyword    string `json:"keyword,omitempty"`
	AreaName   string `json:"area_name"`
	MaxResults int    `json:"max_results,omitempty"`
}

// Term returns the effective search term, preferring search_term over the
// keyword alias.
func (r ScrapeRequest) Term() string {
	if r.SearchTerm != "" {
		return r.SearchTerm
	}
	return r.Keyword
}

// ExtractionResult is the outcome of one extraction run. Failures are values,
// never raised errors: the runner converts timeouts, extractor errors and
// panics into a failed result.
type ExtractionResult struct {
	Success  bool
	Leads    []Lead
	Error    string
	TimedOut bool
	Duration time.Duration
	Method   string
}
