package collector

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"geodata-service/internal/extract"
)

// CategoryOption is one entry of a source's category filter list, e.g. a
// trade ("Handwerk") the source lets visitors filter by.
type CategoryOption struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NestedJSONConfig configures a collector for sources that bury their item
// list deep inside a configuration document, addressed by a dotted key
// path such as "lists.locations.$items".
type NestedJSONConfig struct {
	Metadata SourceMetadata
	URL      string
	// ItemsPath is the dotted path to the item array.
	ItemsPath string
	// FilterPath is the dotted path to the category filter list. Empty
	// when the source has no category facets.
	FilterPath string
	// FilterIDKey and FilterTitleKey name the fields of one filter entry.
	FilterIDKey    string
	FilterTitleKey string
	// CategoryIDsKey names the per-item field holding the IDs of the
	// filter entries the item belongs to.
	CategoryIDsKey string
	Fields         FieldMap
	Delay          time.Duration
}

// NestedJSONCollector handles three-tier sources: one document carries
// both the location items and the category catalog they reference.
type NestedJSONCollector struct {
	cfg     NestedJSONConfig
	fetcher *httpFetcher

	// categories is filled during Collect and exposed for the hierarchy
	// builder via Categories().
	categories []CategoryOption
}

func NewNestedJSONCollector(cfg NestedJSONConfig) *NestedJSONCollector {
	return &NestedJSONCollector{cfg: cfg, fetcher: newHTTPFetcher(cfg.Delay)}
}

func (c *NestedJSONCollector) Metadata() SourceMetadata {
	return c.cfg.Metadata
}

// Categories returns the category catalog found during the last Collect.
func (c *NestedJSONCollector) Categories() []CategoryOption {
	return c.categories
}

func (c *NestedJSONCollector) Collect(opts CollectOptions) (*CollectionResult, error) {
	var doc map[string]interface{}
	if err := c.fetcher.getJSON(c.cfg.URL, nil, &doc); err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.cfg.Metadata.Name, err)
	}

	itemsValue, err := lookupPath(doc, c.cfg.ItemsPath)
	if err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.cfg.Metadata.Name, err)
	}
	items, ok := itemsValue.([]interface{})
	if !ok {
		return nil, fmt.Errorf("collector %s: value at %q is not an array", c.cfg.Metadata.Name, c.cfg.ItemsPath)
	}

	c.categories = c.extractCategories(doc)

	result := &CollectionResult{}
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		rec, err := c.mapItem(item)
		appendRecord(result, rec, err)
	}
	return result, nil
}

// lookupPath walks a dotted key path through nested JSON objects.
func lookupPath(doc map[string]interface{}, path string) (interface{}, error) {
	var current interface{} = doc
	for _, key := range strings.Split(path, ".") {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("path %q: %q is not an object", path, key)
		}
		current, ok = obj[key]
		if !ok {
			return nil, fmt.Errorf("path %q: key %q not found", path, key)
		}
	}
	return current, nil
}

func (c *NestedJSONCollector) extractCategories(doc map[string]interface{}) []CategoryOption {
	if c.cfg.FilterPath == "" {
		return nil
	}
	value, err := lookupPath(doc, c.cfg.FilterPath)
	if err != nil {
		return nil
	}
	entries, ok := value.([]interface{})
	if !ok {
		return nil
	}
	options := make([]CategoryOption, 0, len(entries))
	for _, raw := range entries {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		opt := CategoryOption{
			ID:    stringValue(entry[c.cfg.FilterIDKey]),
			Title: stringValue(entry[c.cfg.FilterTitleKey]),
		}
		if opt.ID != "" {
			options = append(options, opt)
		}
	}
	return options
}

// mapItem maps one nested item onto a LocationRecord. Field paths may be
// dotted to reach into sub-objects, e.g. "adresse.city".
func (c *NestedJSONCollector) mapItem(item map[string]interface{}) (LocationRecord, error) {
	rec := LocationRecord{Source: c.cfg.Metadata.Name}
	rec.SourceID = c.pathString(item, "id")
	rec.Name = c.pathString(item, "name")
	rec.Category = c.pathString(item, "category")

	var err error
	rec.Latitude, err = c.pathFloat(item, "latitude")
	if err != nil {
		return rec, err
	}
	rec.Longitude, err = c.pathFloat(item, "longitude")
	if err != nil {
		return rec, err
	}

	rec.Address = Address{
		Street:     c.pathString(item, "street"),
		PostalCode: c.pathString(item, "postal_code"),
		City:       c.pathString(item, "city"),
		Country:    c.cfg.Metadata.Country,
	}
	rec.Contact = Contact{
		Phone:   c.pathString(item, "phone"),
		Fax:     c.pathString(item, "fax"),
		Email:   extract.FindEmail(c.pathString(item, "email")),
		Website: c.pathString(item, "website"),
	}
	rec.Description = c.pathString(item, "description")
	rec.DetailURL = c.pathString(item, "detail_url")

	if c.cfg.CategoryIDsKey != "" {
		rec.HandwerkIDs = stringSlice(item[c.cfg.CategoryIDsKey])
	}

	if raw, err := json.Marshal(item); err == nil {
		rec.RawData = string(raw)
	}
	return rec, nil
}

func (c *NestedJSONCollector) pathString(item map[string]interface{}, canonical string) string {
	path, ok := c.cfg.Fields[canonical]
	if !ok {
		return ""
	}
	value, err := lookupPath(item, path)
	if err != nil {
		return ""
	}
	return stringValue(value)
}

func (c *NestedJSONCollector) pathFloat(item map[string]interface{}, canonical string) (float64, error) {
	path, ok := c.cfg.Fields[canonical]
	if !ok {
		return 0, nil
	}
	value, err := lookupPath(item, path)
	if err != nil {
		return 0, nil
	}
	return floatValue(value)
}

// stringSlice renders a JSON array of IDs as strings. Sources mix numeric
// and string IDs, sometimes within the same payload.
func stringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		if s := stringValue(v); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, entry := range arr {
		if s := stringValue(entry); s != "" {
			out = append(out, s)
		}
	}
	return out
}
