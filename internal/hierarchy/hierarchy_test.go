package hierarchy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodata-service/internal/collector"
)

func TestCanonicalCategoryID(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Migrationsberatung", "migrationsberatung"},
		{"Migrationsberatung für Erwachsene", "migrationsberatung_fuer_erwachsene"},
		{"IQ - Faire Integration", "iq_faire_integration"},
		{"  Gemeinwesenorientierte Arbeit  ", "gemeinwesenorientierte_arbeit"},
		{"Bäcker & Müller", "baecker_mueller"},
		{"Straßenausbau", "strassenausbau"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalCategoryID(tt.label))
		})
	}
}

func TestCategoryColorDeterministic(t *testing.T) {
	// "abc" sums to 294, 294 mod 15 is 9.
	assert.Equal(t, "#FF9F43", CategoryColor("abc"))
	assert.Equal(t, CategoryColor("allgemein"), CategoryColor("allgemein"))
	assert.Contains(t, categoryPalette, CategoryColor("migrationsberatung"))
}

func TestKeywordRuleOrder(t *testing.T) {
	// The specific rule must win over the generic one it contains.
	rule, ok := matchRule(DefaultKeywordRules, "Jugendmigrationsdienst Dresden")
	require.True(t, ok)
	assert.Equal(t, "jugendmigrationsdienst", rule.CategoryID)

	rule, ok = matchRule(DefaultKeywordRules, "Migrationsberatung für Erwachsene (MBE)")
	require.True(t, ok)
	assert.Equal(t, "migrationsberatung_fuer_erwachsene", rule.CategoryID)

	_, ok = matchRule(DefaultKeywordRules, "Kleiderkammer")
	assert.False(t, ok)
}

func testDescriptor() DomainDescriptor {
	return DomainDescriptor{
		DomainID:    "caritas_deutschland",
		Name:        "Caritas Deutschland",
		Description: "Soziale Dienste und Migrationsberatung",
		Country:     "Germany",
		Language:    "de",
	}
}

func TestBuildAssignsKeywordBuckets(t *testing.T) {
	records := []collector.LocationRecord{
		{SourceID: "1", Name: "JMD Dresden", Category: "Jugendmigrationsdienst", Latitude: 51, Longitude: 13, Source: "caritas"},
		{SourceID: "2", Name: "MBE Leipzig", Category: "Migrationsberatung für Erwachsene", Latitude: 51.3, Longitude: 12.4, Source: "caritas"},
		{SourceID: "3", Name: "Kleiderkammer Berlin", Category: "Kleiderkammer", Latitude: 52.5, Longitude: 13.4, Source: "caritas"},
	}

	h := NewBuilder(nil).Build(testDescriptor(), records, BuildOptions{})

	require.Contains(t, h.Categories, "jugendmigrationsdienst")
	require.Contains(t, h.Categories, "migrationsberatung_fuer_erwachsene")
	require.Contains(t, h.Categories, DefaultCategoryID)

	assert.Len(t, h.Categories["jugendmigrationsdienst"].Locations, 1)
	assert.Len(t, h.Categories[DefaultCategoryID].Locations, 1)
	assert.Equal(t, "caritas_3", h.Categories[DefaultCategoryID].Locations[0].LocationID)

	stats := h.Stats()
	assert.Equal(t, 3, stats.Categories)
	assert.Equal(t, 3, stats.Locations)
	assert.Equal(t, 3, stats.Associations)
}

func TestBuildManyToManyMembership(t *testing.T) {
	catalog := []collector.CategoryOption{
		{ID: "12", Title: "Bäcker"},
		{ID: "34", Title: "Dachdecker"},
	}
	records := []collector.LocationRecord{
		{
			SourceID:    "org-1",
			Name:        "Innung Dresden",
			Category:    "Beratungszentrum Handwerk",
			HandwerkIDs: []string{"12", "34"},
			Latitude:    51.05, Longitude: 13.74,
			Source: "handwerk_organisationen",
		},
	}

	h := NewBuilder(nil).Build(testDescriptor(), records, BuildOptions{Catalog: catalog})

	// One record, three memberships: the keyword bucket and both trades.
	assert.Len(t, h.Categories["beratungszentrum"].Locations, 1)
	assert.Len(t, h.Categories["handwerk_12"].Locations, 1)
	assert.Len(t, h.Categories["handwerk_34"].Locations, 1)
	assert.Equal(t, "12", h.Categories["handwerk_12"].HandwerkID)
	assert.Equal(t, "Bäcker", h.Categories["handwerk_12"].CategoryName)

	stats := h.Stats()
	assert.Equal(t, 3, stats.Categories)
	assert.Equal(t, 1, stats.Locations)
	assert.Equal(t, 3, stats.Associations)
}

func TestBuildDefaultBucketOnlyWhenNothingMatches(t *testing.T) {
	catalog := []collector.CategoryOption{{ID: "12", Title: "Bäcker"}}
	records := []collector.LocationRecord{
		{SourceID: "a", Name: "A", HandwerkIDs: []string{"12"}, Latitude: 51, Longitude: 13},
		{SourceID: "b", Name: "B", HandwerkIDs: []string{"99"}, Latitude: 51, Longitude: 13},
	}

	h := NewBuilder(nil).Build(testDescriptor(), records, BuildOptions{Catalog: catalog})

	assert.Len(t, h.Categories["handwerk_12"].Locations, 1)
	// Unknown trade id, no label: the record lands in the default bucket.
	require.Contains(t, h.Categories, DefaultCategoryID)
	assert.Len(t, h.Categories[DefaultCategoryID].Locations, 1)
	assert.Equal(t, "B", h.Categories[DefaultCategoryID].Locations[0].Name)
}

func TestStatsIgnoreEmptyCatalogBuckets(t *testing.T) {
	catalog := []collector.CategoryOption{
		{ID: "12", Title: "Bäcker"},
		{ID: "34", Title: "Dachdecker"},
	}
	records := []collector.LocationRecord{
		{SourceID: "a", Name: "A", HandwerkIDs: []string{"12"}, Latitude: 51, Longitude: 13},
	}

	h := NewBuilder(nil).Build(testDescriptor(), records, BuildOptions{Catalog: catalog})

	require.Len(t, h.Categories, 2)
	stats := h.Stats()
	assert.Equal(t, 1, stats.Categories)
	assert.Equal(t, 1, stats.Locations)
}

func TestWriteAndReadArtifacts(t *testing.T) {
	records := []collector.LocationRecord{
		{SourceID: "1", Name: "JMD Dresden", Category: "Jugendmigrationsdienst", Latitude: 51.05, Longitude: 13.74, Source: "caritas"},
	}
	h := NewBuilder(nil).Build(testDescriptor(), records, BuildOptions{})

	dir := t.TempDir()
	mainPath, err := WriteArtifacts(h, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "caritas_deutschland.json"), mainPath)

	loaded, err := ReadHierarchy(mainPath)
	require.NoError(t, err)
	assert.Equal(t, h.DomainID, loaded.DomainID)
	require.Contains(t, loaded.Categories, "jugendmigrationsdienst")
	assert.Len(t, loaded.Categories["jugendmigrationsdienst"].Locations, 1)

	summaryData, err := os.ReadFile(filepath.Join(dir, "caritas_deutschland_summary.json"))
	require.NoError(t, err)
	var summary Summary
	require.NoError(t, json.Unmarshal(summaryData, &summary))
	assert.Equal(t, 1, summary.Categories)
	assert.Equal(t, 1, summary.Locations)

	geoData, err := os.ReadFile(filepath.Join(dir, "caritas_deutschland.geojson"))
	require.NoError(t, err)
	var collection map[string]interface{}
	require.NoError(t, json.Unmarshal(geoData, &collection))
	assert.Equal(t, "FeatureCollection", collection["type"])
	features := collection["features"].([]interface{})
	require.Len(t, features, 1)

	feature := features[0].(map[string]interface{})
	coords := feature["geometry"].(map[string]interface{})["coordinates"].([]interface{})
	assert.InDelta(t, 13.74, coords[0].(float64), 0.0001)
	assert.InDelta(t, 51.05, coords[1].(float64), 0.0001)
}

func TestReadHierarchyRejectsInvalidFiles(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := ReadHierarchy(path)
	assert.Error(t, err)

	path = filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, err = ReadHierarchy(path)
	assert.Error(t, err)
}
