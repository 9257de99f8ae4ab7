// Package collector implements the product URL collector: for each
// category leaf, enumerate the product anchors on that category page and
// resolve them to absolute, deduplicated, non-excluded product URLs with
// category provenance attached.
//
// Pagination is deliberately not synthesized: this catalog renders every
// product on one category page, and guessing a page-query convention risks
// silently fabricating URLs that don't exist, so one fetch per category
// leaf is treated as authoritative. Pagination support can be added later
// as opt-in configuration if the assumption turns out wrong.
package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/category"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/exclusion"
)

// ProductURL is one discovered product page, with the category path that
// led to it.
type ProductURL struct {
	URL       string
	Category  string
	SubCat    string
}

// Fetcher is the minimal HTML-retrieval dependency; internal/httpfetch.Fetcher
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Collector enumerates product URLs from category leaves.
type Collector struct {
	Fetcher        Fetcher
	Exclusions     *exclusion.Policy
	AnchorSelector string
}

// New builds a Collector. AnchorSelector defaults to "a[href]" filtered by
// ProductLinkFilter, matching any anchor whose href looks like a product
// permalink rather than a navigation/cart/wishlist link.
func New(fetcher Fetcher, excl *exclusion.Policy) *Collector {
	return &Collector{Fetcher: fetcher, Exclusions: excl, AnchorSelector: "a[href]"}
}

// nonProductPathMarkers are path fragments that mark navigation chrome
// (category, cart, wishlist, and similar links) rather than a product page.
var nonProductPathMarkers = []string{"/kategori/", "/varukorg", "/onskelista", "/kontakt", "/om-oss"}

// ProductLinkFilter reports whether href looks like a product detail link
// rather than navigation chrome.
func ProductLinkFilter(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	for _, marker := range nonProductPathMarkers {
		if strings.Contains(href, marker) {
			return false
		}
	}
	return true
}

// CollectLeaf fetches one category leaf's page and returns its distinct
// product URLs, in document order, skipping excluded and non-product links.
func (c *Collector) CollectLeaf(ctx context.Context, node *category.Node) ([]ProductURL, error) {
	html, err := c.Fetcher.Fetch(ctx, node.URL)
	if err != nil {
		return nil, fmt.Errorf("fetching category %s: %w", node.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing category %s: %w", node.URL, err)
	}

	parent, sub := splitCategory(node)

	seen := make(map[string]bool)
	var out []ProductURL
	doc.Find(c.AnchorSelector).Each(func(_ int, a *goquery.Selection) {
		href, ok := a.Attr("href")
		if !ok || !ProductLinkFilter(href) {
			return
		}
		abs := resolve(node.URL, href)
		if abs == "" || seen[abs] {
			return
		}
		if c.Exclusions != nil && c.Exclusions.IsExcluded(abs) {
			return
		}
		seen[abs] = true
		out = append(out, ProductURL{URL: abs, Category: parent, SubCat: sub})
	})
	return out, nil
}

// CollectAll walks every leaf in tree and returns the deduplicated union of
// their product URLs, keeping the first category attribution seen for any
// URL reachable from more than one leaf.
func (c *Collector) CollectAll(ctx context.Context, tree []*category.Node) ([]ProductURL, error) {
	var leaves []*category.Node
	for _, n := range category.Flatten(tree) {
		if len(n.Subs) == 0 {
			leaves = append(leaves, n)
		}
	}
	seen := make(map[string]bool)
	var all []ProductURL
	for _, leaf := range leaves {
		urls, err := c.CollectLeaf(ctx, leaf)
		if err != nil {
			return all, err
		}
		for _, u := range urls {
			if seen[u.URL] {
				continue
			}
			seen[u.URL] = true
			all = append(all, u)
		}
	}
	return all, nil
}

// splitCategory derives a provisional (parent, sub) category pair for a
// node: a top-level node (Depth 0) has no sub-category; a nested node
// reports its own name as both, since this type does not track parent
// pointers. Callers resolve the authoritative parent/sub pair via the
// product extractor's category-tree prefix match against the full tree.
func splitCategory(node *category.Node) (parent, sub string) {
	if node.Depth == 0 {
		return node.Name, ""
	}
	return node.Name, node.Name
}

func resolve(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}
