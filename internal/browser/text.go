package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// VisibleText extracts the human-readable text of an HTML document,
// dropping script, style and other non-content elements and collapsing
// whitespace.
func VisibleText(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, svg, template").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(s.Text())
	})
	raw := sb.String()
	if raw == "" {
		// Fragment without a body tag; take everything.
		raw = doc.Text()
	}

	// Collapse runs of whitespace, keeping line structure readable.
	lines := strings.Split(raw, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}
