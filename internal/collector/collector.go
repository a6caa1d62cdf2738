package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// SourceMetadata describes a registered data source.
type SourceMetadata struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	SourceURL     string   `json:"source_url"`
	Category      string   `json:"category"`
	Country       string   `json:"country"`
	DataTypes     []string `json:"data_types,omitempty"`
	Subcategories []string `json:"subcategories,omitempty"`
}

// Address holds the postal address parts of a location.
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// Contact holds the contact channels of a location.
type Contact struct {
	Phone   string `json:"phone"`
	Fax     string `json:"fax,omitempty"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// LocationRecord is the normalized representation every collector produces,
// regardless of how the upstream source structures its data.
type LocationRecord struct {
	SourceID    string   `json:"source_id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Address     Address  `json:"address"`
	Contact     Contact  `json:"contact"`
	Description string   `json:"description,omitempty"`
	DetailURL   string   `json:"detail_url,omitempty"`
	HandwerkIDs []string `json:"handwerk_ids,omitempty"`
	Source      string   `json:"source"`
	RawData     string   `json:"raw_data,omitempty"`
}

// SkippedItem records why a source item was rejected during normalization.
type SkippedItem struct {
	SourceID string `json:"source_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Reason   string `json:"reason"`
}

// CollectionResult bundles the accepted records of a collection run with
// the items that failed validation, so partial failures stay observable.
type CollectionResult struct {
	Records []LocationRecord `json:"records"`
	Skipped []SkippedItem    `json:"skipped,omitempty"`
}

// CollectOptions tunes a single collection run.
type CollectOptions struct {
	// MaxPages caps how many pages a paginated collector fetches.
	// Zero applies DefaultMaxPages.
	MaxPages int
	// SaveRaw writes the unprocessed source payloads next to the
	// normalized output.
	SaveRaw bool
}

// Collector fetches data from one upstream source and normalizes it
// into LocationRecords.
type Collector interface {
	Metadata() SourceMetadata
	Collect(opts CollectOptions) (*CollectionResult, error)
}

// defaultUserAgent identifies the collector to upstream servers. Some of
// the municipal endpoints reject requests without a browser-like agent.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) GeoDataCollector/1.0"

// httpFetcher wraps the shared HTTP plumbing all collectors use: a bounded
// client, a browsery user agent and a fixed delay between requests.
type httpFetcher struct {
	client *http.Client
	delay  time.Duration
}

func newHTTPFetcher(delay time.Duration) *httpFetcher {
	return &httpFetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		delay:  delay,
	}
}

// getJSON fetches the given URL with optional query parameters and decodes
// the response body into target.
func (f *httpFetcher) getJSON(rawURL string, params url.Values, target interface{}) error {
	body, err := f.get(rawURL, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", rawURL, err)
	}
	return nil
}

func (f *httpFetcher) get(rawURL string, params url.Values) ([]byte, error) {
	reqURL := rawURL
	if len(params) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("invalid source URL %s: %w", rawURL, err)
		}
		q := u.Query()
		for key, values := range params {
			for _, v := range values {
				q.Set(key, v)
			}
		}
		u.RawQuery = q.Encode()
		reqURL = u.String()
	}

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", reqURL, err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/json, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed GET request to %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source at %s returned status %d", reqURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// pause sleeps for the configured inter-request delay. Collectors call it
// between page fetches to stay under upstream rate limits.
func (f *httpFetcher) pause() {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
}

// validateRecord checks the invariants every normalized record must hold
// before it enters the pipeline.
func validateRecord(rec *LocationRecord) error {
	if rec.Name == "" {
		return fmt.Errorf("missing name")
	}
	if rec.Latitude == 0 && rec.Longitude == 0 {
		return fmt.Errorf("missing coordinates")
	}
	if rec.Latitude < -90 || rec.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", rec.Latitude)
	}
	if rec.Longitude < -180 || rec.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", rec.Longitude)
	}
	return nil
}

// appendRecord validates rec and appends it to the result, or records the
// rejection reason when validation fails.
func appendRecord(result *CollectionResult, rec LocationRecord, err error) {
	if err == nil {
		err = validateRecord(&rec)
	}
	if err != nil {
		log.Printf("Skipping item %q from %s: %v", rec.Name, rec.Source, err)
		result.Skipped = append(result.Skipped, SkippedItem{
			SourceID: rec.SourceID,
			Name:     rec.Name,
			Reason:   err.Error(),
		})
		return
	}
	result.Records = append(result.Records, rec)
}
