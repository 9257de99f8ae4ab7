package product

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selector is one candidate location rule in an ordered-selector fallback
// chain, expressed as data rather than as chained conditionals so the
// chain is testable in isolation. Attr, when non-empty, reads that
// attribute instead of the element's text.
type Selector struct {
	CSS  string
	Attr string
}

// FieldRule names a field and the ordered chain of selectors tried for it.
type FieldRule struct {
	Field     string
	Selectors []Selector
}

// resolveText runs a selector chain against doc and returns the first
// non-empty match, trying each candidate in order and never failing when
// one matches nothing.
func resolveText(doc *goquery.Document, selectors []Selector) string {
	for _, sel := range selectors {
		found := doc.Find(sel.CSS).First()
		if found.Length() == 0 {
			continue
		}
		var val string
		if sel.Attr != "" {
			v, ok := found.Attr(sel.Attr)
			if !ok {
				continue
			}
			val = strings.TrimSpace(v)
		} else {
			val = strings.TrimSpace(found.Text())
		}
		if val != "" {
			return val
		}
	}
	return ""
}
