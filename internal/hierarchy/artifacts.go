package hierarchy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Summary is the compact per-domain report written next to the full
// hierarchy artifact.
type Summary struct {
	DomainID     string            `json:"domain_id"`
	DomainName   string            `json:"domain_name"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Categories   int               `json:"categories"`
	Locations    int               `json:"locations"`
	Associations int               `json:"associations"`
	Breakdown    []CategorySummary `json:"breakdown"`
}

// CategorySummary is one line of the summary breakdown.
type CategorySummary struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
	Count        int    `json:"count"`
	Color        string `json:"color"`
}

// Summarize builds the summary report for a hierarchy. Empty buckets are
// left out.
func (h *Hierarchy) Summarize() Summary {
	stats := h.Stats()
	summary := Summary{
		DomainID:     h.DomainID,
		DomainName:   h.DomainName,
		GeneratedAt:  time.Now().UTC(),
		Categories:   stats.Categories,
		Locations:    stats.Locations,
		Associations: stats.Associations,
	}

	ids := make([]string, 0, len(h.Categories))
	for id, bucket := range h.Categories {
		if len(bucket.Locations) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		bucket := h.Categories[id]
		summary.Breakdown = append(summary.Breakdown, CategorySummary{
			CategoryID:   bucket.CategoryID,
			CategoryName: bucket.CategoryName,
			Count:        len(bucket.Locations),
			Color:        bucket.Color,
		})
	}
	return summary
}

// geoJSONFeature is one map point in the exported FeatureCollection.
type geoJSONFeature struct {
	Type       string                 `json:"type"`
	Geometry   geoJSONGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

type geoJSONGeometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

type geoJSONCollection struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
}

// GeoJSON renders the hierarchy as a FeatureCollection, one point feature
// per category membership, ready for map frontends.
func (h *Hierarchy) GeoJSON() ([]byte, error) {
	collection := geoJSONCollection{Type: "FeatureCollection", Features: []geoJSONFeature{}}

	ids := make([]string, 0, len(h.Categories))
	for id := range h.Categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		bucket := h.Categories[id]
		for _, loc := range bucket.Locations {
			collection.Features = append(collection.Features, geoJSONFeature{
				Type: "Feature",
				Geometry: geoJSONGeometry{
					Type: "Point",
					// GeoJSON wants longitude first.
					Coordinates: [2]float64{loc.Coordinates.Longitude, loc.Coordinates.Latitude},
				},
				Properties: map[string]interface{}{
					"location_id":   loc.LocationID,
					"name":          loc.Name,
					"category_id":   bucket.CategoryID,
					"category_name": bucket.CategoryName,
					"color":         bucket.Color,
					"city":          loc.Address.City,
					"postal_code":   loc.Address.PostalCode,
					"street":        loc.Address.Street,
					"phone":         loc.Contact.Phone,
					"email":         loc.Contact.Email,
					"website":       loc.Contact.Website,
				},
			})
		}
	}
	return json.MarshalIndent(collection, "", "  ")
}

// WriteArtifacts persists the full hierarchy, its summary and a GeoJSON
// export under dir, named after the domain id. It returns the path of the
// main artifact.
func WriteArtifacts(h *Hierarchy, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}

	mainPath := filepath.Join(dir, h.DomainID+".json")
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode hierarchy for %s: %w", h.DomainID, err)
	}
	if err := os.WriteFile(mainPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", mainPath, err)
	}

	summaryPath := filepath.Join(dir, h.DomainID+"_summary.json")
	summaryData, err := json.MarshalIndent(h.Summarize(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode summary for %s: %w", h.DomainID, err)
	}
	if err := os.WriteFile(summaryPath, summaryData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", summaryPath, err)
	}

	geoPath := filepath.Join(dir, h.DomainID+".geojson")
	geoData, err := h.GeoJSON()
	if err != nil {
		return "", fmt.Errorf("failed to encode GeoJSON for %s: %w", h.DomainID, err)
	}
	if err := os.WriteFile(geoPath, geoData, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", geoPath, err)
	}

	return mainPath, nil
}

// ReadHierarchy loads a hierarchy artifact written by WriteArtifacts, or
// produced by any compatible build.
func ReadHierarchy(path string) (*Hierarchy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy file %s: %w", path, err)
	}
	var h Hierarchy
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("failed to decode hierarchy file %s: %w", path, err)
	}
	if h.DomainID == "" {
		return nil, fmt.Errorf("hierarchy file %s has no domain_id", path)
	}
	return &h, nil
}
