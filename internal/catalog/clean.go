package catalog

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText strips markup and entities from catalog free text and
// collapses blank lines.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	text := s
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(strings.ReplaceAll(s, "<br>", "\n")))
		if err == nil {
			doc.Find("script, style").Remove()
			text = doc.Text()
		}
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
