package collector

import "time"

// defaultDelay is the fixed pause between successive requests to the same
// source. Required to stay inside upstream rate limits.
const defaultDelay = 1 * time.Second

// NewCaritasCollector collects German social service locations from the
// Caritas mapping endpoint. The endpoint is paged and embeds the venue
// details as HTML fragments.
func NewCaritasCollector() *PaginatedJSONCollector {
	return NewPaginatedJSONCollector(PaginatedJSONConfig{
		Metadata: SourceMetadata{
			Name:        "caritas",
			Description: "Caritas Germany social service locations",
			SourceURL:   "https://www.caritas.de",
			Category:    "Social Services",
			Country:     "Germany",
			DataTypes:   []string{"social_services", "counseling", "locations"},
		},
		URL: "https://www.caritas.de/Services/MappingService.svc/GetMapContents",
		Params: map[string]string{
			"datasource": "80c48846275643e0b82b83465979eb70",
		},
		PageSize: 50,
		Delay:    defaultDelay,
	})
}

// NewHandwerkskammernCollector collects the German chambers of crafts from
// their flat JSON directory endpoint.
func NewHandwerkskammernCollector() *DirectJSONCollector {
	return NewDirectJSONCollector(DirectJSONConfig{
		Metadata: SourceMetadata{
			Name:        "handwerkskammern",
			Description: "German Chambers of Crafts directory",
			SourceURL:   "https://www.handwerkskammern.de",
			Category:    "Professional Organizations",
			Country:     "Germany",
			DataTypes:   []string{"organizations", "contact_info", "locations"},
		},
		URL:             "https://www.handwerkskammern.de/api/regional/hwk",
		DefaultCategory: "Handwerkskammer",
		Fields: FieldMap{
			"id":          "id",
			"name":        "name",
			"latitude":    "lat",
			"longitude":   "lng",
			"street":      "street",
			"postal_code": "zip",
			"city":        "city",
			"phone":       "phone",
			"fax":         "fax",
			"email":       "email",
			"website":     "website",
			"description": "description",
		},
		Delay: defaultDelay,
	})
}

// NewHandwerkOrganisationenCollector collects craft organizations from a
// map configuration document that nests the locations and their trade
// filter list several levels deep.
func NewHandwerkOrganisationenCollector(url string) *NestedJSONCollector {
	return NewNestedJSONCollector(NestedJSONConfig{
		Metadata: SourceMetadata{
			Name:          "handwerk_organisationen",
			Description:   "German craft organizations by trade",
			SourceURL:     "https://www.handwerksorganisationen.de",
			Category:      "Professional Organizations",
			Country:       "Germany",
			DataTypes:     []string{"organizations", "trades", "locations"},
			Subcategories: []string{"handwerk"},
		},
		URL:            url,
		ItemsPath:      "lists.locations.$items",
		FilterPath:     "lists.locations.filter.handwerkid.values",
		FilterIDKey:    "$value",
		FilterTitleKey: "title",
		CategoryIDsKey: "handwerkid",
		Fields: FieldMap{
			"id":          "uid",
			"name":        "title",
			"latitude":    "latitude",
			"longitude":   "longitude",
			"street":      "adresse.address",
			"postal_code": "adresse.zip",
			"city":        "adresse.city",
			"phone":       "adresse.phone",
			"fax":         "adresse.fax",
			"email":       "adresse.email_link",
			"website":     "adresse.www",
			"detail_url":  "detailUrl",
		},
		Delay: defaultDelay,
	})
}

// DefaultManager builds a manager with all built-in sources registered.
func DefaultManager() *Manager {
	m := NewManager()
	m.Register(NewCaritasCollector())
	m.Register(NewHandwerkskammernCollector())
	return m
}
