// Package persist implements the result persister: validation, clamping and
// batched insertion of extracted businesses with partial-failure tolerance.
package persist

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jonesrussell/leadscraper/internal/domain"
	"github.com/jonesrussell/leadscraper/internal/logger"
)

// Schema limits and batching constants.
const (
	maxNameLen     = 255
	maxAddressLen  = 500
	maxPhoneLen    = 50
	maxWebsiteLen  = 500
	maxCategoryLen = 100

	minRating = 0
	maxRating = 5

	// Coordinate bounds. Latitude and longitude share the longitude range,
	// so latitudes between 90 and 180 degrees pass validation.
	minCoordinate = -180
	maxCoordinate = 180

	// batchSize bounds per-call payload size and isolates a bad batch from
	// failing the whole store.
	batchSize = 10

	placeholderPrefix = "Unknown Business"
)

// BatchInserter inserts one batch of businesses and reports how many rows
// landed.
type BatchInserter interface {
	InsertBatch(ctx context.Context, businesses []*domain.Business) (int, error)
}

// Outcome summarizes one Store call.
type Outcome struct {
	Attempted int
	Inserted  int
}

// Succeeded reports whether enough of the batch landed: at least half,
// rounding in favor of success.
func (o Outcome) Succeeded() bool {
	return o.Attempted == 0 || o.Inserted*2 >= o.Attempted
}

// Persister validates, clamps and batch-inserts extracted records.
type Persister struct {
	inserter BatchInserter
	log      logger.Interface
}

// New creates a Persister.
func New(inserter BatchInserter, log logger.Interface) *Persister {
	return &Persister{
		inserter: inserter,
		log:      log,
	}
}

// Store prepares and inserts the extracted leads for a job. A failed batch is
// logged and skipped, never retried; the caller judges overall success from
// the returned Outcome.
func (p *Persister) Store(ctx context.Context, jobID, areaID int64, leads []domain.Lead) Outcome {
	records := p.prepare(jobID, areaID, leads)
	if len(records) == 0 {
		p.log.Warn("No valid businesses to store", "job_id", jobID)
		return Outcome{}
	}

	outcome := Outcome{Attempted: len(records)}

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := records[start:end]
		batchNum := start/batchSize + 1

		inserted, err := p.inserter.InsertBatch(ctx, batch)
		if err != nil {
			p.log.Error("Failed to insert business batch",
				"job_id", jobID,
				"batch", batchNum,
				"size", len(batch),
				"error", err,
			)
			continue
		}

		outcome.Inserted += inserted
		p.log.Debug("Inserted business batch",
			"job_id", jobID,
			"batch", batchNum,
			"inserted", inserted,
		)
	}

	p.log.Info("Stored businesses",
		"job_id", jobID,
		"inserted", outcome.Inserted,
		"attempted", outcome.Attempted,
	)

	return outcome
}

// prepare converts leads into insertable rows. A record with an empty name
// gets a per-batch-unique placeholder, but only the first placeholder record
// is kept: one signal that extraction produced something, without bulk rows
// of unidentifiable entries.
func (p *Persister) prepare(jobID, areaID int64, leads []domain.Lead) []*domain.Business {
	now := time.Now()
	records := make([]*domain.Business, 0, len(leads))

	for i, lead := range leads {
		name := clamp(lead.Name, maxNameLen)
		placeholder := false
		if name == "" {
			name = fmt.Sprintf("%s %d", placeholderPrefix, i+1)
			placeholder = true
		}

		if placeholder && len(records) > 0 {
			continue
		}

		raw := lead.Raw
		if raw == nil {
			raw = map[string]any{}
		}

		records = append(records, &domain.Business{
			ID:            uuid.New().String(),
			AreaID:        areaID,
			ScrapeJobID:   jobID,
			Name:          name,
			Address:       clampPtr(lead.Address, maxAddressLen),
			Phone:         clampPtr(lead.Phone, maxPhoneLen),
			Website:       clampPtr(lead.Website, maxWebsiteLen),
			Category:      clampPtr(lead.Category, maxCategoryLen),
			Rating:        validRating(lead.Rating),
			ReviewCount:   validReviewCount(lead.ReviewCount),
			Latitude:      validCoordinate(lead.Latitude),
			Longitude:     validCoordinate(lead.Longitude),
			RawInfo:       domain.JSONBMap(raw),
			Status:        domain.BusinessStatusNew,
			ContactStatus: domain.ContactStatusNotContacted,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	return records
}

// clamp trims whitespace and truncates to the schema limit. The cut backs up
// to a rune boundary so a multi-byte character straddling the limit never
// produces invalid UTF-8, which Postgres would reject for the whole batch.
func clamp(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}

	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// clampPtr is clamp for optional columns: empty becomes NULL.
func clampPtr(s string, maxLen int) *string {
	s = clamp(s, maxLen)
	if s == "" {
		return nil
	}
	return &s
}

// validRating discards ratings outside [0, 5] to NULL rather than rejecting
// the whole record.
func validRating(rating *float64) *float64 {
	if rating == nil {
		return nil
	}
	if *rating < minRating || *rating > maxRating {
		return nil
	}
	return rating
}

// validReviewCount discards negative counts to NULL.
func validReviewCount(count *int) *int {
	if count == nil {
		return nil
	}
	if *count < 0 {
		return nil
	}
	return count
}

// validCoordinate discards values outside the accepted range to NULL.
func validCoordinate(coord *float64) *float64 {
	if coord == nil {
		return nil
	}
	if *coord < minCoordinate || *coord > maxCoordinate {
		return nil
	}
	return coord
}
