// Package normalize implements text, numeric, unit, and price parsing
// primitives over product attribute text. Every function is pure and
// null-safe: empty input produces empty output, never a panic.
//
// Swedish measurement labels (L|B|H|D|Ø|Längd|Bredd|Höjd|Djup|Diameter|
// Kapacitet|Volym|Vikt) are recognized and mapped to canonical bilingual
// field names (Length, Width, Height, Depth, Diameter, Capacity, Volume,
// Weight).
package normalize

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	priceRunRe   = regexp.MustCompile(`[\d][\d\s\x{00A0}]*(?:[.,]\d+)?`)
	valueUnitRe  = regexp.MustCompile(`([\d]+(?:[.,]\d+)?)\s*([a-zA-ZåäöÅÄÖ%]*)`)

	swedishFold = strings.NewReplacer(
		"å", "a", "ä", "a", "ö", "o",
		"Å", "a", "Ä", "a", "Ö", "o",
	)
)

// NormalizeWhitespace collapses any run of whitespace to a single space and
// trims the result.
func NormalizeWhitespace(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// StripHTML removes tag spans and unescapes HTML entity references.
func StripHTML(s string) string {
	if s == "" {
		return ""
	}
	stripped := tagRe.ReplaceAllString(s, "")
	return html.UnescapeString(stripped)
}

// NormalizeText lowercases, folds Swedish å/ä/ö to a/a/o, then strips
// combining marks. Intended for deduplication keys only — never for
// display.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	folded := swedishFold.Replace(strings.ToLower(s))
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, folded)
	if err != nil {
		return strings.TrimSpace(folded)
	}
	return strings.TrimSpace(out)
}

// ParsePrice extracts the first numeric run, accepting "." or "," as the
// decimal separator; space or non-breaking-space thousand separators are
// discarded. Returns (value, true) on success, or (0, false) when no number
// is present.
func ParsePrice(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	m := priceRunRe.FindString(s)
	if m == "" {
		return 0, false
	}
	cleaned := strings.NewReplacer(" ", "", " ", "").Replace(m)
	// The run holds at most one "." or "," group, and that separator is the
	// decimal point: "1.234,50" therefore parses as 1.234.
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatPrice re-serializes a parsed price with at least one decimal digit,
// e.g. 1499 -> "1499.0", 1499.5 -> "1499.5".
func FormatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseValueUnit splits text into a leading numeric value and a trailing
// alphabetic/% unit; either side may be empty.
func ParseValueUnit(s string) (value, unit string) {
	if s == "" {
		return "", ""
	}
	replaced := strings.ReplaceAll(s, ",", ".")
	m := valueUnitRe.FindStringSubmatch(replaced)
	if m == nil {
		return "", ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// measurementLabel maps every recognized Swedish token (full word and
// abbreviation) to its canonical English schema field name.
var measurementLabel = map[string]string{
	"l": "Length", "längd": "Length",
	"b": "Width", "bredd": "Width",
	"h": "Height", "höjd": "Height",
	"d": "Depth", "djup": "Depth",
	"ø": "Diameter", "diameter": "Diameter", "diam": "Diameter", "diam.": "Diameter",
	"kapacitet": "Capacity",
	"volym":     "Volume",
	"vikt":      "Weight",
}

// ParseMeasurements recognizes labeled tokens and emits keyed
// "<Label>.value"/"<Label>.unit" pairs. Input is a comma-separated list of
// "<label> <value><unit>" tokens, matching the original's "Mått" field
// shape. If a label appears twice, the last occurrence wins.
func ParseMeasurements(s string) map[string]string {
	out := make(map[string]string)
	if s == "" {
		return out
	}
	for _, chunk := range strings.Split(s, ",") {
		fields := strings.Fields(strings.TrimSpace(chunk))
		if len(fields) == 0 {
			continue
		}
		rawLabel := strings.ToLower(strings.TrimSpace(fields[0]))
		label, known := measurementLabel[rawLabel]
		if !known {
			continue
		}
		value, unit := "", ""
		if len(fields) > 1 {
			value, unit = ParseValueUnit(strings.Join(fields[1:], " "))
		}
		out[label+".value"] = value
		out[label+".unit"] = unit
	}
	return out
}

// ExtractOnlyDigits returns the digit-only substring of s, discarding
// everything else.
func ExtractOnlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractFirstDecimal extracts the first decimal number in s, accepting "."
// or "," as the decimal point, discarding thousand separators.
func ExtractFirstDecimal(s string) string {
	v, ok := ParsePrice(s)
	if !ok {
		return ""
	}
	return FormatPrice(v)
}
