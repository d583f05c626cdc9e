package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/jonesrussell/leadscraper/internal/domain"
)

const extractionMethodList = "list_scrape"

var reviewCountRe = regexp.MustCompile(`([\d,]+)\s*review`)

// MapsExtractor scrapes a maps-style search results page for business
// listings. Every instance owns its own collector, so a Factory returning a
// new MapsExtractor per run gives the isolation the Runner requires.
type MapsExtractor struct {
	baseURL   string
	userAgent string
}

// NewMapsExtractor creates a MapsExtractor for one run.
func NewMapsExtractor(baseURL, userAgent string) *MapsExtractor {
	return &MapsExtractor{
		baseURL:   baseURL,
		userAgent: userAgent,
	}
}

// NewMapsFactory returns a Factory producing a fresh MapsExtractor per run.
func NewMapsFactory(baseURL, userAgent string) Factory {
	return func() Extractor {
		return NewMapsExtractor(baseURL, userAgent)
	}
}

// Extract fetches the search results page for "<term> in <area>" and parses
// listing blocks, capped at req.MaxResults.
func (e *MapsExtractor) Extract(ctx context.Context, req domain.ScrapeRequest) ([]domain.Lead, string, error) {
	query := fmt.Sprintf("%s in %s", req.Term(), req.AreaName)
	searchURL := fmt.Sprintf("%s?q=%s", e.baseURL, url.QueryEscape(query))

	leads := make([]domain.Lead, 0, req.MaxResults)

	collector := colly.NewCollector(
		colly.StdlibContext(ctx),
		colly.UserAgent(e.userAgent),
		colly.MaxDepth(1),
	)

	collector.OnHTML(`div[role="article"]`, func(el *colly.HTMLElement) {
		if len(leads) >= req.MaxResults {
			return
		}
		leads = append(leads, parseListing(el.DOM))
	})

	var visitErr error
	collector.OnError(func(_ *colly.Response, err error) {
		visitErr = err
	})

	if err := collector.Visit(searchURL); err != nil {
		return nil, "", fmt.Errorf("visit search page: %w", err)
	}
	collector.Wait()

	if visitErr != nil {
		return nil, "", fmt.Errorf("fetch search page: %w", visitErr)
	}

	return leads, extractionMethodList, nil
}

// parseListing pulls the business fields out of one listing block.
func parseListing(sel *goquery.Selection) domain.Lead {
	lead := domain.Lead{
		Name:     strings.TrimSpace(sel.Find(`[data-field="title"]`).First().Text()),
		Address:  strings.TrimSpace(sel.Find(`[data-field="address"]`).First().Text()),
		Phone:    strings.TrimSpace(sel.Find(`[data-field="phone"]`).First().Text()),
		Category: strings.TrimSpace(sel.Find(`[data-field="category"]`).First().Text()),
	}

	if href, ok := sel.Find(`a[data-field="website"]`).First().Attr("href"); ok {
		lead.Website = strings.TrimSpace(href)
	}

	ratingText := strings.TrimSpace(sel.Find(`[data-field="rating"]`).First().Text())
	if rating, err := strconv.ParseFloat(ratingText, 64); err == nil {
		lead.Rating = &rating
	}

	if m := reviewCountRe.FindStringSubmatch(sel.Text()); m != nil {
		if count, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", "")); err == nil {
			lead.ReviewCount = &count
		}
	}

	if lat, ok := parseCoordAttr(sel, "data-lat"); ok {
		lead.Latitude = &lat
	}
	if lng, ok := parseCoordAttr(sel, "data-lng"); ok {
		lead.Longitude = &lng
	}

	// The raw block is retained verbatim alongside the parsed fields.
	html, _ := goquery.OuterHtml(sel)
	lead.Raw = map[string]any{
		"name":     lead.Name,
		"address":  lead.Address,
		"phone":    lead.Phone,
		"website":  lead.Website,
		"category": lead.Category,
		"html":     html,
	}

	return lead
}

func parseCoordAttr(sel *goquery.Selection, attr string) (float64, bool) {
	raw, ok := sel.Attr(attr)
	if !ok {
		return 0, false
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	return val, true
}
