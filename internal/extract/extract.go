// Package extract pulls structured contact and address fields out of the
// unstructured HTML fragments that map sources embed in their API payloads.
// Extraction is best-effort: source markup drifts without notice, so every
// field degrades to an empty string instead of failing the item.
package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// Info holds the structured fields recovered from one HTML fragment. Fields
// the fragment does not contain are empty strings; callers must treat missing
// fields as expected, not exceptional.
type Info struct {
	ServiceType  string `json:"service_type"`
	Organization string `json:"organization"`
	Street       string `json:"street"`
	PostalCode   string `json:"postal_code"`
	City         string `json:"city"`
	Phone        string `json:"phone"`
	Fax          string `json:"fax"`
	Email        string `json:"email"`
	Website      string `json:"website"`
}

// Extract parses an HTML fragment and applies an ordered list of extraction
// rules per field; the first rule that matches wins. It never returns an
// error: a fragment that cannot be parsed simply yields empty fields.
func Extract(fragment string) Info {
	var info Info
	if strings.TrimSpace(fragment) == "" {
		return info
	}

	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return info
	}

	scan := newDocScan(doc)

	info.ServiceType = scan.kickerText
	info.Organization = scan.organization

	info.Street, info.PostalCode, info.City = parseAddressLines(scan.addressLines)

	info.Phone = firstNonEmpty(scan.labeledValues["fon"], scan.labeledValues["tel"])
	info.Fax = scan.labeledValues["fax"]
	info.Email = scan.email
	info.Website = scan.website

	text := scan.text.String()

	// Regex fallbacks over the flattened text for anything the structural
	// scan missed.
	if info.Phone == "" {
		if m := phoneLabelPattern.FindStringSubmatch(text); len(m) > 1 {
			info.Phone = strings.TrimSpace(m[1])
		} else if m := intlPhonePattern.FindString(text); m != "" {
			info.Phone = strings.TrimSpace(m)
		} else if m := areaPhonePattern.FindString(text); m != "" {
			info.Phone = strings.TrimSpace(m)
		}
	}
	if info.Fax == "" {
		if m := faxLabelPattern.FindStringSubmatch(text); len(m) > 1 {
			info.Fax = strings.TrimSpace(m[1])
		}
	}
	if info.Street == "" && info.PostalCode == "" {
		info.Street, info.PostalCode, info.City = SplitAddress(text)
	}

	return info
}

// docScan accumulates everything one pass over the DOM can tell us.
type docScan struct {
	kickerText    string
	organization  string
	addressLines  []string
	labeledValues map[string]string
	email         string
	website       string
	text          strings.Builder
}

func newDocScan(doc *html.Node) *docScan {
	s := &docScan{labeledValues: make(map[string]string)}
	s.walk(doc, false)
	return s
}

func (s *docScan) walk(n *html.Node, inVenue bool) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "noscript":
			return

		case "h1", "h2", "h3", "h4":
			heading := normalizeWhitespace(nodeText(n))
			if s.kickerText == "" && hasClassContaining(n, "kicker") {
				s.kickerText = heading
			}
			// The organization name is the first prominent heading that wraps
			// a link; plain h3 headings are accepted as a weaker fallback.
			if link := firstChildElement(n, "a"); link != nil && s.organization == "" {
				s.organization = normalizeWhitespace(nodeText(link))
			} else if s.organization == "" && n.Data == "h3" && !hasClassContaining(n, "kicker") && heading != "" {
				s.organization = heading
			}

		case "div":
			if !inVenue && hasClassContaining(n, "venue") {
				s.collectLines(n)
				inVenue = true
			}

		case "span", "p":
			text := normalizeWhitespace(nodeText(n))
			if label, ok := splitContactLabel(text); ok {
				key := strings.ToLower(label)
				value := strings.TrimSpace(strings.TrimPrefix(text, label))
				value = strings.TrimSpace(strings.TrimPrefix(value, ":"))
				if value == "" {
					// "<span>Fon:</span><span>0351 ...</span>" layouts keep the
					// number in the next sibling.
					value = normalizeWhitespace(nodeText(nextElementSibling(n)))
				}
				if value != "" && s.labeledValues[key] == "" {
					s.labeledValues[key] = value
				}
			}

		case "a":
			href := attrValue(n, "href")
			switch {
			case strings.HasPrefix(href, "mailto:"):
				if s.email == "" {
					addr := strings.TrimPrefix(href, "mailto:")
					if i := strings.IndexByte(addr, '?'); i >= 0 {
						addr = addr[:i]
					}
					if emailPattern.MatchString(addr) {
						s.email = addr
					}
				}
			case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
				if s.website == "" {
					s.website = href
				}
			}
		}
	}

	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			s.text.WriteString(t)
			s.text.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		s.walk(c, inVenue)
	}
}

// collectLines gathers the non-empty text lines of an address container.
func (s *docScan) collectLines(container *html.Node) {
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "span" || n.Data == "p" || n.Data == "li") {
			for _, part := range strings.Split(nodeText(n), "\n") {
				if line := normalizeWhitespace(part); line != "" {
					s.addressLines = append(s.addressLines, line)
				}
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(container)
}

// parseAddressLines applies the German postal convention to the collected
// address lines: the last line matching "NNNNN City" carries postal code and
// city, and the preceding non-contact line is the street.
func parseAddressLines(lines []string) (street, postalCode, city string) {
	// A single comma-joined line is common in popup markup.
	if len(lines) == 1 && strings.Contains(lines[0], ",") {
		return SplitAddress(lines[0])
	}

	postalIdx := -1
	for i := len(lines) - 1; i >= 0; i-- {
		if m := postalCityPattern.FindStringSubmatch(lines[i]); len(m) > 2 {
			postalCode = m[1]
			city = strings.TrimSpace(m[2])
			postalIdx = i
			break
		}
	}
	if postalIdx < 0 {
		return "", "", ""
	}

	for i := postalIdx - 1; i >= 0; i-- {
		if line := lines[i]; line != "" && !isContactLine(line) {
			street = line
			break
		}
	}
	return street, postalCode, city
}

// SplitAddress splits a flat "street, NNNNN City" address string into its
// components. It returns empty strings when no postal segment is present.
func SplitAddress(text string) (street, postalCode, city string) {
	parts := strings.Split(text, ",")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		if line := normalizeWhitespace(p); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		// No comma structure: look for an embedded "NNNNN City" tail.
		t := normalizeWhitespace(text)
		if m := postalCityPattern.FindStringSubmatch(t); len(m) > 2 {
			return "", m[1], strings.TrimSpace(m[2])
		}
		return "", "", ""
	}
	return parseAddressLines(lines)
}

func isContactLine(line string) bool {
	for _, prefix := range contactLabelPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// splitContactLabel reports whether the text starts with a known contact
// label ("Fon:", "Tel:", "Fax:") and returns the label.
func splitContactLabel(text string) (string, bool) {
	for _, label := range []string{"Fon", "Tel", "Fax"} {
		if strings.HasPrefix(text, label+":") || text == label {
			return label, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func firstChildElement(n *html.Node, name string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == name {
			return c
		}
		if found := firstChildElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func hasClassContaining(n *html.Node, fragment string) bool {
	return strings.Contains(strings.ToLower(attrValue(n, "class")), fragment)
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
