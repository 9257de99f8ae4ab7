// Package category builds the category tree by walking the site's
// mega-menu navigation with goquery: select the main navigation element,
// pick the <ul> with the most direct <li> children as the top level, then
// recurse into nested <ul>s. The href filter on a configurable product
// path prefix skips navigation entries that aren't categories.
package category

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/exclusion"
)

// Node is one entry in the category tree.
type Node struct {
	Name  string
	URL   string
	Depth int
	Subs  []*Node
}

// Fetcher is the minimal HTML-retrieval dependency the walker needs;
// internal/httpfetch.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Walker builds a Node tree rooted at a base URL's mega-menu.
type Walker struct {
	BaseURL           string
	NavSelector       string
	ProductPathPrefix string
	Fetcher           Fetcher
	Exclusions        *exclusion.Policy
}

// NewWalker builds a Walker with the site's defaults: nav selector
// "nav.edgtf-main-menu" and product path prefix "/produkter/".
func NewWalker(baseURL string, fetcher Fetcher, excl *exclusion.Policy) *Walker {
	return &Walker{
		BaseURL:           baseURL,
		NavSelector:       "nav.edgtf-main-menu",
		ProductPathPrefix: "/produkter/",
		Fetcher:           fetcher,
		Exclusions:        excl,
	}
}

// Walk fetches BaseURL, finds the densest <ul> under NavSelector, and
// recursively parses it into a category tree. Excluded subtrees are pruned
// bottom-up: a node survives only if it itself is not excluded, after its
// children have already been filtered.
func (w *Walker) Walk(ctx context.Context) ([]*Node, error) {
	html, err := w.Fetcher.Fetch(ctx, w.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("fetching navigation root %s: %w", w.BaseURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing navigation root %s: %w", w.BaseURL, err)
	}

	nav := doc.Find(w.NavSelector).First()
	if nav.Length() == 0 {
		return nil, fmt.Errorf("mega menu navigation %q not found at %s", w.NavSelector, w.BaseURL)
	}

	var topUL *goquery.Selection
	bestCount := -1
	nav.Find("ul").Each(func(_ int, ul *goquery.Selection) {
		count := ul.ChildrenFiltered("li").Length()
		if count > bestCount {
			bestCount = count
			topUL = ul
		}
	})
	if topUL == nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	tree := w.parseUL(topUL, 0, seen)
	return w.pruneExcluded(tree), nil
}

// parseUL recursively walks a <ul>'s direct <li> children, mirroring
// parse_menu_ul's recursion on nested <ul>s one level at a time.
func (w *Walker) parseUL(ul *goquery.Selection, depth int, seen map[string]bool) []*Node {
	var nodes []*Node
	ul.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		a := li.Find("a[href]").First()
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(href, w.ProductPathPrefix) {
			return
		}
		abs := w.resolve(href)
		if seen[abs] {
			return
		}
		seen[abs] = true

		node := &Node{
			Name:  strings.TrimSpace(a.Text()),
			URL:   abs,
			Depth: depth,
		}
		if subUL := li.Find("ul").First(); subUL.Length() > 0 {
			node.Subs = w.parseUL(subUL, depth+1, seen)
		}
		nodes = append(nodes, node)
	})
	return nodes
}

// pruneExcluded removes nodes (and their subtrees) whose URL matches the
// exclusion policy, bottom-up: children are pruned first, then the node
// itself is tested.
func (w *Walker) pruneExcluded(nodes []*Node) []*Node {
	if w.Exclusions == nil {
		return nodes
	}
	var kept []*Node
	for _, n := range nodes {
		n.Subs = w.pruneExcluded(n.Subs)
		if w.Exclusions.IsExcluded(n.URL) {
			continue
		}
		kept = append(kept, n)
	}
	return kept
}

func (w *Walker) resolve(href string) string {
	base, err := url.Parse(w.BaseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// Flatten walks the tree depth-first and returns every node in visitation
// order, for callers that need a flat category list alongside the nested
// structure.
func Flatten(tree []*Node) []*Node {
	var out []*Node
	var walk func([]*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			out = append(out, n)
			walk(n.Subs)
		}
	}
	walk(tree)
	return out
}
