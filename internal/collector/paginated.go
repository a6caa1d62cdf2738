package collector

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"geodata-service/internal/extract"
)

// PaginatedJSONConfig configures a collector for sources that serve their
// items through a paged endpoint and embed the location details as HTML
// fragments inside each item.
type PaginatedJSONConfig struct {
	Metadata SourceMetadata
	URL      string
	// Params are static query parameters sent with every page request.
	Params map[string]string
	// PageParam and PageSizeParam name the paging query parameters.
	PageParam     string
	PageSizeParam string
	PageSize      int
	Delay         time.Duration
}

// pageResponse is the envelope the paged endpoints return.
type pageResponse struct {
	Contents   []pageItem `json:"Contents"`
	TotalCount int        `json:"TotalCount"`
	PageCount  int        `json:"PageCount"`
}

// pageItem is one entry of a page. The interesting details live in the
// HTML fragment carried by Contents.
type pageItem struct {
	ID        json.Number `json:"ID"`
	Title     string      `json:"Title"`
	Contents  string      `json:"Contents"`
	Latitude  json.Number `json:"Latitude"`
	Longitude json.Number `json:"Longitude"`
}

// DefaultMaxPages bounds a paginated crawl when the caller does not set an
// explicit cap. Sources occasionally misreport their page count, and the
// crawl must terminate even then.
const DefaultMaxPages = 10

// PaginatedJSONCollector walks a paged endpoint until the server reports
// the last page, an empty page arrives, or the page cap is hit.
type PaginatedJSONCollector struct {
	cfg     PaginatedJSONConfig
	fetcher *httpFetcher
}

func NewPaginatedJSONCollector(cfg PaginatedJSONConfig) *PaginatedJSONCollector {
	if cfg.PageParam == "" {
		cfg.PageParam = "page"
	}
	if cfg.PageSizeParam == "" {
		cfg.PageSizeParam = "pagesize"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	return &PaginatedJSONCollector{cfg: cfg, fetcher: newHTTPFetcher(cfg.Delay)}
}

func (c *PaginatedJSONCollector) Metadata() SourceMetadata {
	return c.cfg.Metadata
}

func (c *PaginatedJSONCollector) Collect(opts CollectOptions) (*CollectionResult, error) {
	result := &CollectionResult{}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	for page := 0; ; page++ {
		if page >= maxPages {
			log.Printf("Collector %s: stopping at page cap %d", c.cfg.Metadata.Name, maxPages)
			break
		}
		if page > 0 {
			c.fetcher.pause()
		}

		resp, err := c.fetchPage(page)
		if err != nil {
			// Keep what earlier pages produced.
			if len(result.Records) > 0 {
				log.Printf("Collector %s: page %d failed, keeping %d records collected so far: %v",
					c.cfg.Metadata.Name, page, len(result.Records), err)
				break
			}
			return nil, fmt.Errorf("collector %s: %w", c.cfg.Metadata.Name, err)
		}
		if len(resp.Contents) == 0 {
			break
		}

		for _, item := range resp.Contents {
			rec, err := c.mapItem(item)
			appendRecord(result, rec, err)
		}

		if resp.PageCount > 0 && page >= resp.PageCount-1 {
			break
		}
	}
	return result, nil
}

func (c *PaginatedJSONCollector) fetchPage(page int) (*pageResponse, error) {
	params := url.Values{}
	for key, value := range c.cfg.Params {
		params.Set(key, value)
	}
	params.Set(c.cfg.PageParam, strconv.Itoa(page))
	params.Set(c.cfg.PageSizeParam, strconv.Itoa(c.cfg.PageSize))

	var resp pageResponse
	if err := c.fetcher.getJSON(c.cfg.URL, params, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	return &resp, nil
}

func (c *PaginatedJSONCollector) mapItem(item pageItem) (LocationRecord, error) {
	info := extract.Extract(item.Contents)

	rec := LocationRecord{
		SourceID: item.ID.String(),
		Name:     firstNonEmptyString(info.Organization, item.Title),
		Category: info.ServiceType,
		Source:   c.cfg.Metadata.Name,
	}
	rec.Latitude, _ = item.Latitude.Float64()
	rec.Longitude, _ = item.Longitude.Float64()
	rec.Address = Address{
		Street:     info.Street,
		PostalCode: info.PostalCode,
		City:       info.City,
		Country:    c.cfg.Metadata.Country,
	}
	rec.Contact = Contact{
		Phone:   info.Phone,
		Fax:     info.Fax,
		Email:   info.Email,
		Website: info.Website,
	}

	if raw, err := json.Marshal(item); err == nil {
		rec.RawData = string(raw)
	}
	return rec, nil
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
