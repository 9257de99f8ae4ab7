// Package qc implements the quality-control gate that runs once after
// product extraction completes: deduplication, completeness checking,
// structural validation, and statistical outlier flagging on price. QC
// never mutates input records; it partitions them into valid records and
// an errors bucket keyed by subject (SKU or URL).
package qc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/normalize"
	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
)

// Config controls the gate's dedup key, required fields, and outlier
// threshold. Zero-valued fields fall back to the documented defaults.
type Config struct {
	DedupFields     []string // default: Name, SKU
	RequiredFields  []string // default: Name, SKU, PriceInclVAT.value, ProductURL
	OutlierZThresh  float64  // default: 3.5
}

var defaultDedupFields = []string{"Name", "SKU"}
var defaultRequiredFields = []string{"Name", "SKU", "PriceInclVAT.value", "ProductURL"}

const defaultZThreshold = 3.5

var skuPattern = regexp.MustCompile(`^[A-Za-z0-9\- ]+$`)

// Gate runs the QC pipeline.
type Gate struct {
	cfg Config
}

// New builds a Gate, filling unset Config fields with defaults.
func New(cfg Config) *Gate {
	if len(cfg.DedupFields) == 0 {
		cfg.DedupFields = defaultDedupFields
	}
	if len(cfg.RequiredFields) == 0 {
		cfg.RequiredFields = defaultRequiredFields
	}
	if cfg.OutlierZThresh <= 0 {
		cfg.OutlierZThresh = defaultZThreshold
	}
	return &Gate{cfg: cfg}
}

// field reads a named canonical field off a record by the same names used
// in Config.RequiredFields/DedupFields.
func field(r *product.Record, name string) string {
	switch name {
	case "Name":
		return r.Name
	case "SKU":
		return r.SKU
	case "PriceInclVAT.value":
		return r.PriceInclVAT.Value
	case "PriceExclVAT.value":
		return r.PriceExclVAT.Value
	case "ProductURL":
		return r.ProductURL
	case "ImageURL":
		return r.ImageURL
	default:
		return ""
	}
}

func subjectKey(r *product.Record) string {
	if r.SKU != "" {
		return r.SKU
	}
	return r.ProductURL
}

// Run executes dedup, completeness, structural validation, and outlier
// detection in that order, returning the surviving valid records and an
// errors bucket mapping subject key to every violation string.
func (g *Gate) Run(records []*product.Record) (valid []*product.Record, errorsByKey map[string][]string) {
	errorsByKey = make(map[string][]string)

	deduped := g.dedup(records)

	var passed []*product.Record
	for _, r := range deduped {
		var issues []string
		issues = append(issues, g.checkCompleteness(r)...)
		issues = append(issues, g.checkStructural(r)...)
		if len(issues) > 0 {
			errorsByKey[subjectKey(r)] = append(errorsByKey[subjectKey(r)], issues...)
		} else {
			passed = append(passed, r)
		}
	}

	for key, val := range g.detectPriceOutliers(deduped) {
		errorsByKey[key] = append(errorsByKey[key], val)
	}

	return passed, errorsByKey
}

// dedup keys records by the normalized values of cfg.DedupFields; the first
// occurrence of each key wins. Applying dedup twice returns the same result
// as applying it once (dedup(dedup(X)) == dedup(X)).
func (g *Gate) dedup(records []*product.Record) []*product.Record {
	seen := make(map[string]bool)
	var out []*product.Record
	for _, r := range records {
		parts := make([]string, len(g.cfg.DedupFields))
		for i, f := range g.cfg.DedupFields {
			parts[i] = normalize.NormalizeText(field(r, f))
		}
		key := strings.Join(parts, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

// checkCompleteness returns one "Missing: <field>" message per required
// field whose value is empty.
func (g *Gate) checkCompleteness(r *product.Record) []string {
	var issues []string
	for _, f := range g.cfg.RequiredFields {
		if strings.TrimSpace(field(r, f)) == "" {
			issues = append(issues, fmt.Sprintf("Missing: %s", f))
		}
	}
	return issues
}

// checkStructural validates SKU shape, ProductURL scheme, Name length, the
// product image, and that PriceInclVAT.value parses to a positive number.
func (g *Gate) checkStructural(r *product.Record) []string {
	var issues []string

	if r.SKU != "" && !skuPattern.MatchString(r.SKU) {
		issues = append(issues, "SKU may have invalid characters")
	}
	if r.ProductURL != "" && !strings.HasPrefix(r.ProductURL, "http") {
		issues = append(issues, "Invalid product URL")
	}
	if r.Name != "" && len(r.Name) < 3 {
		issues = append(issues, "Suspiciously short product name")
	}
	if r.ImageURL == "" || strings.HasSuffix(r.ImageURL, "placeholder.png") {
		issues = append(issues, "Missing or placeholder product image")
	}
	if price, ok := r.PriceInclVATFloat(); !ok || price <= 0 {
		issues = append(issues, "Price must be a positive number")
	}

	return issues
}

// detectPriceOutliers computes the median and median absolute deviation of
// PriceInclVAT.value over records, flagging any whose modified Z-score
// exceeds cfg.OutlierZThresh. When MAD is zero or fewer than three values
// parse, no flags are produced.
func (g *Gate) detectPriceOutliers(records []*product.Record) map[string]string {
	out := make(map[string]string)

	var values []float64
	var keys []string
	for _, r := range records {
		v, ok := r.PriceInclVATFloat()
		if !ok {
			continue
		}
		values = append(values, v)
		keys = append(keys, subjectKey(r))
	}
	if len(values) < 3 {
		return out
	}

	median, err := stats.Median(values)
	if err != nil {
		return out
	}

	deviations := make([]float64, len(values))
	for i, v := range values {
		d := v - median
		if d < 0 {
			d = -d
		}
		deviations[i] = d
	}
	mad, err := stats.Median(deviations)
	if err != nil || mad == 0 {
		return out
	}

	for i, v := range values {
		modifiedZ := 0.6745 * (v - median) / mad
		if modifiedZ < 0 {
			modifiedZ = -modifiedZ
		}
		if modifiedZ > g.cfg.OutlierZThresh {
			out[keys[i]] = fmt.Sprintf("PriceInclVAT.value outlier: %v", v)
		}
	}
	return out
}

// SortByName sorts records ascending by case-insensitive Name, the final
// ordering guarantee handed to exporters.
func SortByName(records []*product.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return strings.ToLower(records[i].Name) < strings.ToLower(records[j].Name)
	})
}
