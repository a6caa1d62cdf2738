package collector

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldMap maps canonical record fields to the keys the upstream source
// uses for them. Canonical keys: id, name, category, latitude, longitude,
// street, postal_code, city, phone, fax, email, website, description,
// detail_url, address.
type FieldMap map[string]string

// DirectJSONConfig configures a collector for sources whose endpoint
// returns a flat JSON array of location objects.
type DirectJSONConfig struct {
	Metadata SourceMetadata
	URL      string
	// ItemsKey selects a top-level array field. Empty means the response
	// body itself is the array.
	ItemsKey string
	Fields   FieldMap
	// DefaultCategory is used when the source carries no category field.
	DefaultCategory string
	Delay           time.Duration
}

// DirectJSONCollector fetches a single JSON document and maps each item
// onto a LocationRecord using a declarative field mapping.
type DirectJSONCollector struct {
	cfg     DirectJSONConfig
	fetcher *httpFetcher
}

func NewDirectJSONCollector(cfg DirectJSONConfig) *DirectJSONCollector {
	return &DirectJSONCollector{cfg: cfg, fetcher: newHTTPFetcher(cfg.Delay)}
}

func (c *DirectJSONCollector) Metadata() SourceMetadata {
	return c.cfg.Metadata
}

func (c *DirectJSONCollector) Collect(opts CollectOptions) (*CollectionResult, error) {
	body, err := c.fetcher.get(c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.cfg.Metadata.Name, err)
	}

	items, err := decodeItems(body, c.cfg.ItemsKey)
	if err != nil {
		return nil, fmt.Errorf("collector %s: %w", c.cfg.Metadata.Name, err)
	}

	result := &CollectionResult{}
	for _, item := range items {
		rec, err := c.mapItem(item)
		appendRecord(result, rec, err)
	}
	return result, nil
}

// decodeItems extracts the item list from a response body, either from the
// root array or from the named top-level field.
func decodeItems(body []byte, itemsKey string) ([]map[string]interface{}, error) {
	if itemsKey == "" {
		var items []map[string]interface{}
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("failed to decode item array: %w", err)
		}
		return items, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode response object: %w", err)
	}
	raw, ok := doc[itemsKey]
	if !ok {
		return nil, fmt.Errorf("response has no %q field", itemsKey)
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %q array: %w", itemsKey, err)
	}
	return items, nil
}

func (c *DirectJSONCollector) mapItem(item map[string]interface{}) (LocationRecord, error) {
	rec := LocationRecord{
		Source:   c.cfg.Metadata.Name,
		Category: c.cfg.DefaultCategory,
	}
	rec.SourceID = mappedString(item, c.cfg.Fields, "id")
	rec.Name = mappedString(item, c.cfg.Fields, "name")
	if v := mappedString(item, c.cfg.Fields, "category"); v != "" {
		rec.Category = v
	}

	var err error
	rec.Latitude, err = mappedFloat(item, c.cfg.Fields, "latitude")
	if err != nil {
		return rec, err
	}
	rec.Longitude, err = mappedFloat(item, c.cfg.Fields, "longitude")
	if err != nil {
		return rec, err
	}

	rec.Address = Address{
		Street:     mappedString(item, c.cfg.Fields, "street"),
		PostalCode: mappedString(item, c.cfg.Fields, "postal_code"),
		City:       mappedString(item, c.cfg.Fields, "city"),
		Country:    c.cfg.Metadata.Country,
	}
	rec.Contact = Contact{
		Phone:   mappedString(item, c.cfg.Fields, "phone"),
		Fax:     mappedString(item, c.cfg.Fields, "fax"),
		Email:   mappedString(item, c.cfg.Fields, "email"),
		Website: mappedString(item, c.cfg.Fields, "website"),
	}
	rec.Description = mappedString(item, c.cfg.Fields, "description")
	rec.DetailURL = mappedString(item, c.cfg.Fields, "detail_url")

	if raw, err := json.Marshal(item); err == nil {
		rec.RawData = string(raw)
	}
	return rec, nil
}

func mappedString(item map[string]interface{}, fields FieldMap, canonical string) string {
	key, ok := fields[canonical]
	if !ok {
		return ""
	}
	return stringValue(item[key])
}

func mappedFloat(item map[string]interface{}, fields FieldMap, canonical string) (float64, error) {
	key, ok := fields[canonical]
	if !ok {
		return 0, nil
	}
	return floatValue(item[key])
}

// stringValue renders a JSON value as a trimmed string. Numeric IDs are
// common in the upstream payloads, so numbers are formatted rather than
// dropped.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// floatValue parses a JSON value as a float. Several sources ship
// coordinates as strings with comma decimal separators.
func floatValue(v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid coordinate %q", val)
		}
		return f, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("unsupported coordinate type %T", v)
	}
}
