package hierarchy

import "strings"

// KeywordRule maps a keyword found in a service label to a category. Rules
// are consulted top to bottom; the first match wins.
type KeywordRule struct {
	Keyword      string
	CategoryID   string
	CategoryName string
}

// DefaultCategoryID is the bucket for locations whose label matches no rule.
const DefaultCategoryID = "allgemein"

// DefaultCategoryName is the display name of the default bucket.
const DefaultCategoryName = "Allgemeine Dienste"

// DefaultKeywordRules covers the service labels the German social service
// sources use. Order matters: more specific labels come before the generic
// ones they contain ("jugendmigrationsdienst" before "migrationsberatung").
var DefaultKeywordRules = []KeywordRule{
	{"jugendmigrationsdienst", "jugendmigrationsdienst", "Jugendmigrationsdienst"},
	{"migrationsberatung für erwachsene", "migrationsberatung_fuer_erwachsene", "Migrationsberatung für Erwachsene"},
	{"migrationsberatung", "migrationsberatung", "Migrationsberatung"},
	{"gemeinwesenorientierte arbeit", "gemeinwesenorientierte_arbeit", "Gemeinwesenorientierte Arbeit"},
	{"iq - faire integration", "iq_faire_integration", "IQ - Faire Integration"},
	{"beratungszentrum", "beratungszentrum", "Beratungszentrum"},
	{"schwangerschaftsberatung", "schwangerschaftsberatung", "Schwangerschaftsberatung"},
	{"schuldnerberatung", "schuldnerberatung", "Schuldnerberatung"},
	{"suchtberatung", "suchtberatung", "Suchtberatung"},
}

// diacriticFolder rewrites German umlauts and sharp s to their ASCII
// transliterations.
var diacriticFolder = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
	"Ä", "ae", "Ö", "oe", "Ü", "ue",
)

// CanonicalCategoryID derives a stable category id from a free-form label:
// lower-cased, diacritics folded, separators collapsed to underscores.
func CanonicalCategoryID(label string) string {
	s := diacriticFolder.Replace(strings.ToLower(strings.TrimSpace(label)))

	var b strings.Builder
	lastUnderscore := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// categoryPalette is the fixed color set categories draw from. The palette
// never changes so that a category id keeps its color across runs.
var categoryPalette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FECA57",
	"#FF9FF3", "#54A0FF", "#5F27CD", "#00D2D3", "#FF9F43",
	"#74B9FF", "#A29BFE", "#FD79A8", "#FDCB6E", "#6C5CE7",
}

// CategoryColor picks a deterministic palette color for a category id by
// summing its character codes modulo the palette size.
func CategoryColor(categoryID string) string {
	sum := 0
	for _, r := range categoryID {
		sum += int(r)
	}
	return categoryPalette[sum%len(categoryPalette)]
}

// matchRule returns the first rule whose keyword occurs in the label.
func matchRule(rules []KeywordRule, label string) (KeywordRule, bool) {
	lower := strings.ToLower(label)
	for _, rule := range rules {
		if strings.Contains(lower, rule.Keyword) {
			return rule, true
		}
	}
	return KeywordRule{}, false
}
