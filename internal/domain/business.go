package domain

import "time"

// Business statuses assigned at insertion time.
const (
	BusinessStatusNew         = "new"
	ContactStatusNotContacted = "not_contacted"
)

// Business is one extracted entity, persisted once and never mutated by this
// service afterward.
type Business struct {
	ID            string    `db:"id" json:"id"`
	AreaID        int64     `db:"area_id" json:"area_id"`
	ScrapeJobID   int64     `db:"scrape_job_id" json:"scrape_job_id"`
	Name          string    `db:"name" json:"name"`
	Address       *string   `db:"address" json:"address,omitempty"`
	Phone         *string   `db:"phone" json:"phone,omitempty"`
	Website       *string   `db:"website" json:"website,omitempty"`
	Category      *string   `db:"category" json:"category,omitempty"`
	Rating        *float64  `db:"rating" json:"rating,omitempty"`
	ReviewCount   *int      `db:"review_count" json:"review_count,omitempty"`
	Latitude      *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `db:"longitude" json:"longitude,omitempty"`
	RawInfo       JSONBMap  `db:"raw_info" json:"raw_info"`
	Status        string    `db:"status" json:"status"`
	ContactStatus string    `db:"contact_status" json:"contact_status"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Lead is a raw extracted record before validation and clamping. The Raw map
// always carries the extractor's payload verbatim.
type Lead struct {
	Name        string         `json:"name"`
	Address     string         `json:"address"`
	Phone       string         `json:"phone"`
	Website     string         `json:"website"`
	Category    string         `json:"category"`
	Rating      *float64       `json:"rating,omitempty"`
	ReviewCount *int           `json:"review_count,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	Raw         map[string]any `json:"raw"`
}
