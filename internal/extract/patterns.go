package extract

import "regexp"

// Regex fallbacks used when the structural scan finds nothing. German sources
// label phone numbers "Fon:" or "Tel:", and postal codes are five digits
// followed by the city name.
var (
	postalCityPattern = regexp.MustCompile(`^(\d{5})\s+(.+)$`)

	phoneLabelPattern = regexp.MustCompile(`(?i)(?:Fon|Tel|Telefon|Phone):?\s*([+\d][\d\s\-/()]+\d)`)
	faxLabelPattern   = regexp.MustCompile(`(?i)Fax:?\s*([+\d][\d\s\-/()]+\d)`)

	intlPhonePattern = regexp.MustCompile(`\+49[\d\s\-/()]+\d`)
	areaPhonePattern = regexp.MustCompile(`\(\d{2,5}\)[\d\s\-/]*\d`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// contactLabelPrefixes mark lines inside an address block that hold contact
// details rather than a street, e.g. "Tel: 0351 4984-746".
var contactLabelPrefixes = []string{"Tel", "Fon", "Fax", "E-Mail", "Email", "Mail", "Web"}

// FindEmail returns the first email address contained in s, or the empty
// string. Useful for sources that ship addresses wrapped in mailto links.
func FindEmail(s string) string {
	return emailPattern.FindString(s)
}
