// Package product implements the product extractor: parsing one fetched
// product page into the canonical record via an ordered-selector fallback
// chain, with normalization, cache short-circuiting, and category
// resolution against the category tree.
package product

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/cache"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/category"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/exclusion"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/normalize"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/scrapeerr"
	"go.uber.org/zap"
)

// ValueUnit is a (value, unit) pair, the shape shared by price and every
// measurement field in the canonical schema.
type ValueUnit struct {
	Value string
	Unit  string
}

// Record is the canonical product record, field-for-field.
type Record struct {
	Name     string
	SKU      string
	Color    string
	Material string
	Series   string

	PriceExclVAT ValueUnit
	PriceInclVAT ValueUnit

	Length    ValueUnit
	Width     ValueUnit
	Height    ValueUnit
	Depth     ValueUnit
	Diameter  ValueUnit
	Capacity  ValueUnit
	Volume    ValueUnit
	Weight    ValueUnit

	Data            string
	CategoryParent  string
	CategorySub     string
	ImageURL        string
	ProductURL      string
	Description     string
	ExtraData       string
}

// Fetcher is the minimal HTML-retrieval dependency; internal/httpfetch.Fetcher
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Rules bundles the ordered-selector chains for every field the extractor
// resolves directly from the document (fields resolved by other means —
// SKU normalization, canonical URL, category — are handled separately).
type Rules struct {
	Name        []Selector
	SKU         []Selector
	Color       []Selector
	Material    []Selector
	Series      []Selector
	PriceExcl   []Selector
	PriceIncl   []Selector
	Measurement []Selector // free-text block parsed by normalize.ParseMeasurements
	ImageURL    []Selector
	Description []Selector
	Canonical   []Selector
	ExtraPanel  []Selector // rows of a spec/attribute panel, read by (*Extractor).extraPanel
}

// DefaultRules gives an itemprop-first selector chain for this catalog's
// markup, with a plain H1 / generic-class fallback for resilience when a
// page's microdata is incomplete.
func DefaultRules() Rules {
	return Rules{
		Name: []Selector{
			{CSS: `[itemprop="name"]`},
			{CSS: "h1.product_title"},
			{CSS: "h1"},
		},
		SKU: []Selector{
			{CSS: `[itemprop="sku"]`},
			{CSS: ".sku"},
			{CSS: `[data-sku]`, Attr: "data-sku"},
		},
		Color: []Selector{
			{CSS: `[data-attribute="color"]`},
			{CSS: ".product-color"},
		},
		Material: []Selector{
			{CSS: `[data-attribute="material"]`},
			{CSS: ".product-material"},
		},
		Series: []Selector{
			{CSS: `[data-attribute="series"]`},
			{CSS: ".product-series"},
		},
		PriceExcl: []Selector{
			{CSS: `[itemprop="priceExclVAT"]`},
			{CSS: ".price-excl-vat"},
		},
		PriceIncl: []Selector{
			{CSS: `[itemprop="price"]`},
			{CSS: ".price", Attr: "content"},
			{CSS: ".price"},
		},
		Measurement: []Selector{
			{CSS: ".product-measurements"},
			{CSS: "#tab-additional_information"},
		},
		ImageURL: []Selector{
			{CSS: `[itemprop="image"]`, Attr: "src"},
			{CSS: ".product-image img", Attr: "src"},
			{CSS: "img", Attr: "src"},
		},
		Description: []Selector{
			{CSS: `[itemprop="description"]`},
			{CSS: ".product-description"},
			{CSS: "#tab-description"},
		},
		Canonical: []Selector{
			{CSS: `link[rel="canonical"]`, Attr: "href"},
		},
		ExtraPanel: []Selector{
			{CSS: ".product-attributes tr"},
			{CSS: "#tab-additional_information tr"},
		},
	}
}

// Extractor parses product pages into Records.
type Extractor struct {
	Fetcher    Fetcher
	Cache      *cache.Cache
	Exclusions *exclusion.Policy
	Rules      Rules
	Logger     *zap.SugaredLogger
}

// New builds an Extractor with the default selector rules.
func New(fetcher Fetcher, c *cache.Cache, excl *exclusion.Policy, logger *zap.SugaredLogger) *Extractor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Extractor{Fetcher: fetcher, Cache: c, Exclusions: excl, Rules: DefaultRules(), Logger: logger}
}

// Extract fetches and parses one product page into a Record. tree, if
// non-nil, is used to resolve Category parent/sub by URL prefix match. A
// nil Record with a nil error means the URL was excluded, not a failure.
func (e *Extractor) Extract(ctx context.Context, productURL string, tree []*category.Node) (*Record, error) {
	if e.Exclusions != nil && e.Exclusions.IsExcluded(productURL) {
		return nil, nil
	}

	if e.Cache != nil {
		if cached, ok := cache.GetTyped[Record](e.Cache, "page:"+productURL, ""); ok {
			return &cached, nil
		}
	}

	html, err := e.Fetcher.Fetch(ctx, productURL)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching product %s: %v", scrapeerr.ErrNetwork, productURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing product %s: %v", scrapeerr.ErrParse, productURL, err)
	}

	rec := e.extractFields(doc, productURL, tree)

	if e.Cache != nil {
		contentHash := cache.HashContent(html)
		if err := cache.SetTyped(e.Cache, "page:"+productURL, *rec, contentHash); err != nil {
			e.Logger.Warnw("cache store failed", "url", productURL, "error", err)
		}
		if rec.SKU != "" {
			if err := cache.SetTyped(e.Cache, "sku:"+rec.SKU, *rec, contentHash); err != nil {
				e.Logger.Warnw("cache store failed", "sku", rec.SKU, "error", err)
			}
		}
	}

	return rec, nil
}

// extractFields runs every selector chain and normalizer; a failure
// confined to one field (a selector chain that never matches, or a
// normalizer that can't parse its input) leaves that field empty and is
// never propagated as an error.
func (e *Extractor) extractFields(doc *goquery.Document, fetchedURL string, tree []*category.Node) *Record {
	rec := &Record{}

	rec.Name = normalize.NormalizeWhitespace(resolveText(doc, e.Rules.Name))
	rec.SKU = normalize.ExtractOnlyDigits(resolveText(doc, e.Rules.SKU))
	rec.Color = normalize.NormalizeWhitespace(resolveText(doc, e.Rules.Color))
	rec.Material = normalize.NormalizeWhitespace(resolveText(doc, e.Rules.Material))
	rec.Series = normalize.NormalizeWhitespace(resolveText(doc, e.Rules.Series))

	rec.PriceExclVAT = parsePriceField(resolveText(doc, e.Rules.PriceExcl))
	rec.PriceInclVAT = parsePriceField(resolveText(doc, e.Rules.PriceIncl))

	measurements := normalize.ParseMeasurements(resolveText(doc, e.Rules.Measurement))
	rec.Length = vuFromMap(measurements, "Length")
	rec.Width = vuFromMap(measurements, "Width")
	rec.Height = vuFromMap(measurements, "Height")
	rec.Depth = vuFromMap(measurements, "Depth")
	rec.Diameter = vuFromMap(measurements, "Diameter")
	rec.Capacity = vuFromMap(measurements, "Capacity")
	rec.Volume = vuFromMap(measurements, "Volume")
	rec.Weight = vuFromMap(measurements, "Weight")

	rec.Data = normalize.NormalizeWhitespace(resolveText(doc, e.Rules.Measurement))
	rec.ImageURL = resolveText(doc, e.Rules.ImageURL)
	rec.Description = normalize.NormalizeWhitespace(normalize.StripHTML(resolveText(doc, e.Rules.Description)))

	rec.ProductURL = resolveCanonical(doc, e.Rules.Canonical, fetchedURL)
	rec.CategoryParent, rec.CategorySub = resolveCategory(tree, rec.ProductURL)
	rec.ExtraData = e.extraPanel(doc)

	return rec
}

// parsePriceField parses a raw price string and re-serializes it with
// normalize.FormatPrice, which keeps at least one decimal digit even for
// whole numbers (1499 -> "1499.0"). The unit is whatever trailing
// alphabetic token ParseValueUnit finds, defaulting to "kr".
func parsePriceField(raw string) ValueUnit {
	if raw == "" {
		return ValueUnit{}
	}
	v, ok := normalize.ParsePrice(raw)
	if !ok {
		return ValueUnit{}
	}
	_, unit := normalize.ParseValueUnit(raw)
	if unit == "" {
		unit = "kr"
	}
	return ValueUnit{Value: normalize.FormatPrice(v), Unit: unit}
}

func vuFromMap(m map[string]string, field string) ValueUnit {
	return ValueUnit{Value: m[field+".value"], Unit: m[field+".unit"]}
}

// resolveCanonical prefers a well-formed rel="canonical" link, falling back
// to the URL the page was fetched with.
func resolveCanonical(doc *goquery.Document, selectors []Selector, fetchedURL string) string {
	candidate := resolveText(doc, selectors)
	if candidate == "" {
		return fetchedURL
	}
	u, err := url.Parse(candidate)
	if err != nil || !u.IsAbs() {
		return fetchedURL
	}
	return candidate
}

// resolveCategory finds the node in tree whose URL is the longest (most
// specific) prefix of productURL. That node's name becomes CategorySub;
// its nearest ancestor in the walk (or itself, if top-level) becomes
// CategoryParent.
func resolveCategory(tree []*category.Node, productURL string) (parent, sub string) {
	var bestNode *category.Node
	var bestParentName string
	var bestLen int

	var walk func(nodes []*category.Node, ancestorName string)
	walk = func(nodes []*category.Node, ancestorName string) {
		for _, n := range nodes {
			if strings.HasPrefix(productURL, n.URL) && len(n.URL) > bestLen {
				bestLen = len(n.URL)
				bestNode = n
				if ancestorName != "" {
					bestParentName = ancestorName
				} else {
					bestParentName = n.Name
				}
			}
			walk(n.Subs, n.Name)
		}
	}
	walk(tree, "")

	if bestNode == nil {
		return "", ""
	}
	return bestParentName, bestNode.Name
}

// extraPanel collects label/value rows from the product's info panel that
// don't map to a canonical field, and packs them into a stable sorted
// serialization.
func (e *Extractor) extraPanel(doc *goquery.Document) string {
	extras := make(map[string]string)
	for _, sel := range e.Rules.ExtraPanel {
		doc.Find(sel.CSS).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			label := normalize.NormalizeWhitespace(cells.Eq(0).Text())
			value := normalize.NormalizeWhitespace(cells.Eq(1).Text())
			if label == "" || value == "" {
				return
			}
			if isCanonicalLabel(label) {
				return
			}
			extras[label] = value
		})
	}
	return serializeExtraData(extras)
}

var canonicalLabels = map[string]bool{
	"name": true, "namn": true, "sku": true, "artikelnummer": true,
	"color": true, "färg": true, "material": true, "series": true, "serie": true,
}

func isCanonicalLabel(label string) bool {
	return canonicalLabels[strings.ToLower(label)]
}

// serializeExtraData produces a deterministic "key: value; key: value"
// string sorted ascending by key, independent of Go map iteration order.
func serializeExtraData(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, m[k]))
	}
	return strings.Join(parts, "; ")
}

// ExtraDataJSON renders the same sorted mapping as compact JSON, for
// callers that prefer a machine-parseable ExtraData representation.
func ExtraDataJSON(m map[string]string) (string, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}, 0, len(keys))
	for _, k := range keys {
		ordered = append(ordered, struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		}{Key: k, Value: m[k]})
	}
	b, err := json.Marshal(ordered)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ColumnOrder is the canonical tabular column order used by exporters.
var ColumnOrder = []string{
	"Name", "SKU", "Color", "Material", "Series",
	"PriceExclVAT.value", "PriceExclVAT.unit", "PriceInclVAT.value", "PriceInclVAT.unit",
	"Length.value", "Length.unit", "Width.value", "Width.unit",
	"Height.value", "Height.unit", "Depth.value", "Depth.unit",
	"Diameter.value", "Diameter.unit", "Capacity.value", "Capacity.unit",
	"Volume.value", "Volume.unit", "Weight.value", "Weight.unit",
	"Data (text)", "Category (parent)", "Category (sub)",
	"ImageURL", "ProductURL", "Description", "ExtraData",
}

// ToRow renders r as a []string in ColumnOrder, for CSV/XLSX export.
func (r *Record) ToRow() []string {
	return []string{
		r.Name, r.SKU, r.Color, r.Material, r.Series,
		r.PriceExclVAT.Value, r.PriceExclVAT.Unit, r.PriceInclVAT.Value, r.PriceInclVAT.Unit,
		r.Length.Value, r.Length.Unit, r.Width.Value, r.Width.Unit,
		r.Height.Value, r.Height.Unit, r.Depth.Value, r.Depth.Unit,
		r.Diameter.Value, r.Diameter.Unit, r.Capacity.Value, r.Capacity.Unit,
		r.Volume.Value, r.Volume.Unit, r.Weight.Value, r.Weight.Unit,
		r.Data, r.CategoryParent, r.CategorySub,
		r.ImageURL, r.ProductURL, r.Description, r.ExtraData,
	}
}

// PriceInclVATFloat parses PriceInclVAT.value as a float64, for QC Gate
// numeric checks. Returns (0, false) when unparseable.
func (r *Record) PriceInclVATFloat() (float64, bool) {
	if r.PriceInclVAT.Value == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(r.PriceInclVAT.Value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
