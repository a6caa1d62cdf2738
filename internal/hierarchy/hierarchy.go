// Package hierarchy turns flat collected location records into the
// three-tier domain → category → location structure the import engine
// consumes.
package hierarchy

import (
	"fmt"
	"time"

	"geodata-service/internal/collector"
)

// DomainDescriptor identifies and describes the domain a build run
// produces, the top tier of the hierarchy.
type DomainDescriptor struct {
	DomainID    string `json:"domain_id"`
	Name        string `json:"domain_name"`
	Description string `json:"domain_description"`
	Country     string `json:"country"`
	Language    string `json:"language"`
	SourceURL   string `json:"source_url,omitempty"`
	ColorScheme string `json:"color_scheme,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationMetadata carries source provenance for one location entry.
type LocationMetadata struct {
	Source      string   `json:"source"`
	DetailURL   string   `json:"detail_url,omitempty"`
	HandwerkIDs []string `json:"handwerk_ids,omitempty"`
}

// LocationEntry is one location as it appears inside a category bucket.
type LocationEntry struct {
	LocationID  string            `json:"location_id"`
	Name        string            `json:"name"`
	Coordinates Coordinates       `json:"coordinates"`
	Address     collector.Address `json:"address"`
	Contact     collector.Contact `json:"contact"`
	Description string            `json:"description,omitempty"`
	Metadata    LocationMetadata  `json:"metadata"`
}

// CategoryBucket is the middle tier: one category and its member locations.
type CategoryBucket struct {
	CategoryID   string          `json:"category_id"`
	CategoryName string          `json:"category_name"`
	HandwerkID   string          `json:"handwerk_id,omitempty"`
	Color        string          `json:"color,omitempty"`
	Locations    []LocationEntry `json:"locations"`
}

// Hierarchy is the complete three-tier artifact for one domain.
type Hierarchy struct {
	DomainID          string                     `json:"domain_id"`
	DomainName        string                     `json:"domain_name"`
	DomainDescription string                     `json:"domain_description"`
	Country           string                     `json:"country"`
	Language          string                     `json:"language"`
	SourceURL         string                     `json:"source_url,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
	Categories        map[string]*CategoryBucket `json:"categories"`
}

// Builder assigns collected records to category buckets.
type Builder struct {
	rules       []KeywordRule
	defaultID   string
	defaultName string
}

func NewBuilder(rules []KeywordRule) *Builder {
	if rules == nil {
		rules = DefaultKeywordRules
	}
	return &Builder{
		rules:       rules,
		defaultID:   DefaultCategoryID,
		defaultName: DefaultCategoryName,
	}
}

// BuildOptions extends a build run with a category catalog, used by
// sources that publish an explicit filter list of trades.
type BuildOptions struct {
	// Catalog pre-creates one bucket per option; records referencing the
	// option's ID through their handwerk ids join that bucket.
	Catalog []collector.CategoryOption
}

// Build produces the hierarchy for one domain from flat records. A record
// can land in several buckets at once: one via its service label and one
// per referenced catalog entry. Records matching nothing fall into the
// default bucket.
func (b *Builder) Build(desc DomainDescriptor, records []collector.LocationRecord, opts BuildOptions) *Hierarchy {
	h := &Hierarchy{
		DomainID:          desc.DomainID,
		DomainName:        desc.Name,
		DomainDescription: desc.Description,
		Country:           desc.Country,
		Language:          desc.Language,
		SourceURL:         desc.SourceURL,
		CreatedAt:         time.Now().UTC(),
		Categories:        make(map[string]*CategoryBucket),
	}

	for _, opt := range opts.Catalog {
		id := handwerkCategoryID(opt.ID)
		h.Categories[id] = &CategoryBucket{
			CategoryID:   id,
			CategoryName: opt.Title,
			HandwerkID:   opt.ID,
			Color:        CategoryColor(id),
		}
	}

	for i, rec := range records {
		entry := toEntry(rec, i)

		bucketIDs := b.bucketsFor(h, rec)
		for _, id := range bucketIDs {
			bucket := h.Categories[id]
			bucket.Locations = append(bucket.Locations, entry)
		}
	}
	return h
}

// bucketsFor resolves the set of bucket ids a record belongs to, creating
// missing buckets on the way.
func (b *Builder) bucketsFor(h *Hierarchy, rec collector.LocationRecord) []string {
	var ids []string

	if rec.Category != "" {
		if rule, ok := matchRule(b.rules, rec.Category); ok {
			ids = append(ids, b.ensureBucket(h, rule.CategoryID, rule.CategoryName, ""))
		}
	}
	for _, hid := range rec.HandwerkIDs {
		id := handwerkCategoryID(hid)
		if _, ok := h.Categories[id]; ok {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		ids = append(ids, b.ensureBucket(h, b.defaultID, b.defaultName, ""))
	}
	return ids
}

func (b *Builder) ensureBucket(h *Hierarchy, id, name, handwerkID string) string {
	if _, ok := h.Categories[id]; !ok {
		h.Categories[id] = &CategoryBucket{
			CategoryID:   id,
			CategoryName: name,
			HandwerkID:   handwerkID,
			Color:        CategoryColor(id),
		}
	}
	return id
}

func handwerkCategoryID(id string) string {
	return "handwerk_" + id
}

func toEntry(rec collector.LocationRecord, index int) LocationEntry {
	id := rec.SourceID
	if id == "" {
		id = CanonicalCategoryID(rec.Name)
	}
	if id == "" {
		id = fmt.Sprintf("location_%d", index)
	}
	if rec.Source != "" {
		id = rec.Source + "_" + id
	}

	return LocationEntry{
		LocationID:  id,
		Name:        rec.Name,
		Coordinates: Coordinates{Latitude: rec.Latitude, Longitude: rec.Longitude},
		Address:     rec.Address,
		Contact:     rec.Contact,
		Description: rec.Description,
		Metadata: LocationMetadata{
			Source:      rec.Source,
			DetailURL:   rec.DetailURL,
			HandwerkIDs: rec.HandwerkIDs,
		},
	}
}

// Stats summarizes a built hierarchy. Empty buckets do not count as
// categories; they exist only because the source catalog announced them.
type Stats struct {
	Domain       string `json:"domain"`
	Categories   int    `json:"categories"`
	Locations    int    `json:"locations"`
	Associations int    `json:"associations"`
}

func (h *Hierarchy) Stats() Stats {
	s := Stats{Domain: h.DomainName}
	seen := make(map[string]bool)
	for _, bucket := range h.Categories {
		if len(bucket.Locations) == 0 {
			continue
		}
		s.Categories++
		s.Associations += len(bucket.Locations)
		for _, loc := range bucket.Locations {
			if !seen[loc.LocationID] {
				seen[loc.LocationID] = true
				s.Locations++
			}
		}
	}
	return s
}
