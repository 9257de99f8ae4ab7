package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("  a\t b\n c  "))
	assert.Equal(t, "", NormalizeWhitespace(""))
}

func TestStripHTML(t *testing.T) {
	assert.Equal(t, "hej & då", StripHTML("<p>hej &amp; då</p>"))
}

func TestParsePrice(t *testing.T) {
	v, ok := ParsePrice("1 234,50 kr")
	assert.True(t, ok)
	assert.InDelta(t, 1234.50, v, 0.0001)

	_, ok = ParsePrice("")
	assert.False(t, ok)

	_, ok = ParsePrice("abc")
	assert.False(t, ok)
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "1499.0", FormatPrice(1499.0))
	assert.Equal(t, "1499.5", FormatPrice(1499.5))
}

func TestParseValueUnit(t *testing.T) {
	v, u := ParseValueUnit("12 cm")
	assert.Equal(t, "12", v)
	assert.Equal(t, "cm", u)

	v, u = ParseValueUnit("10,5L")
	assert.Equal(t, "10.5", v)
	assert.Equal(t, "L", u)

	v, u = ParseValueUnit("")
	assert.Equal(t, "", v)
	assert.Equal(t, "", u)
}

func TestParseMeasurements(t *testing.T) {
	out := ParseMeasurements("L 120cm, B 60cm, H 75cm")
	assert.Equal(t, "120", out["Length.value"])
	assert.Equal(t, "cm", out["Length.unit"])
	assert.Equal(t, "60", out["Width.value"])
	assert.Equal(t, "75", out["Height.value"])
}

func TestParseMeasurementsLastWins(t *testing.T) {
	out := ParseMeasurements("Längd 100cm, Längd 200cm")
	assert.Equal(t, "200", out["Length.value"])
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "bord alfa", NormalizeText("Bord Alfa"))
	assert.Equal(t, "aao", NormalizeText("ÅÄÖ"))
}

func TestExtractOnlyDigits(t *testing.T) {
	assert.Equal(t, "12345", ExtractOnlyDigits("Art. 1234-5"))
}
