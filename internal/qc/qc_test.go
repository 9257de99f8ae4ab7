package qc

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bonkbusiness/table-se-scraper-suite/internal/product"
)

func rec(name, sku, priceIncl, url, img string) *product.Record {
	return &product.Record{
		Name:         name,
		SKU:          sku,
		PriceInclVAT: product.ValueUnit{Value: priceIncl, Unit: "kr"},
		ProductURL:   url,
		ImageURL:     img,
	}
}

func TestRunValidRecordPasses(t *testing.T) {
	g := New(Config{})
	records := []*product.Record{
		rec("Bord Alfa", "12345", "1499", "https://x/alfa", "https://x/alfa.jpg"),
	}
	valid, errs := g.Run(records)
	require.Len(t, valid, 1)
	assert.Empty(t, errs)
}

func TestRunMissingFieldGoesToErrorsBucketNotDropped(t *testing.T) {
	g := New(Config{})
	records := []*product.Record{
		rec("", "12345", "1499", "https://x/alfa", "https://x/alfa.jpg"),
	}
	valid, errs := g.Run(records)
	assert.Empty(t, valid)
	require.Len(t, errs, 1)
}

func TestRunDedupKeepsFirstOccurrence(t *testing.T) {
	g := New(Config{})
	records := []*product.Record{
		rec("Bord Alfa", "12345", "1499", "https://x/alfa", "https://x/alfa.jpg"),
		rec("Bord Alfa", "12345", "1599", "https://x/alfa-2", "https://x/alfa.jpg"),
	}
	valid, _ := g.Run(records)
	require.Len(t, valid, 1)
	assert.Equal(t, "1499", valid[0].PriceInclVAT.Value)
}

func TestDedupIdempotent(t *testing.T) {
	g := New(Config{})
	records := []*product.Record{
		rec("Bord Alfa", "12345", "1499", "https://x/alfa", "https://x/alfa.jpg"),
		rec("Bord Beta", "54321", "999", "https://x/beta", "https://x/beta.jpg"),
	}
	once := g.dedup(records)
	twice := g.dedup(once)
	assert.Equal(t, once, twice)
}

func TestStructuralValidationInvalidSKU(t *testing.T) {
	g := New(Config{})
	records := []*product.Record{
		rec("Bord Alfa", "ART#123", "1499", "https://x/alfa", "https://x/alfa.jpg"),
	}
	_, errs := g.Run(records)
	require.Contains(t, errs, "ART#123")
	assert.Contains(t, errs["ART#123"][0], "invalid characters")
}

func TestStructuralValidationPlaceholderImage(t *testing.T) {
	g := New(Config{})
	records := []*product.Record{
		rec("Bord Alfa", "12345", "1499", "https://x/alfa", "https://x/placeholder.png"),
	}
	_, errs := g.Run(records)
	require.Contains(t, errs, "12345")
}

func TestOutlierDetectionFlagsExactlyTheOutlier(t *testing.T) {
	g := New(Config{})
	var records []*product.Record
	for i := 0; i < 99; i++ {
		n := strconv.Itoa(i)
		price := strconv.Itoa(495 + i%11)
		records = append(records, rec("Prod "+n, "sku"+n, price, "https://x/p"+n, "https://x/p"+n+".jpg"))
	}
	records = append(records, rec("Prod outlier", "skuX", "500000", "https://x/outlier", "https://x/outlier.jpg"))

	_, errs := g.Run(records)
	require.Contains(t, errs, "skuX")
	found := false
	for _, msg := range errs["skuX"] {
		if strings.Contains(msg, "outlier") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestOutlierDetectionSkippedWhenSampleTooSmall(t *testing.T) {
	g := New(Config{})
	records := []*product.Record{
		rec("A", "1", "500", "https://x/a", "https://x/a.jpg"),
		rec("B", "2", "500000", "https://x/b", "https://x/b.jpg"),
	}
	_, errs := g.Run(records)
	for _, msgs := range errs {
		for _, m := range msgs {
			assert.NotContains(t, m, "outlier")
		}
	}
}

func TestSortByNameCaseInsensitive(t *testing.T) {
	records := []*product.Record{
		rec("zebra", "1", "100", "https://x/z", "https://x/z.jpg"),
		rec("Alfa", "2", "100", "https://x/a", "https://x/a.jpg"),
	}
	SortByName(records)
	assert.Equal(t, "Alfa", records[0].Name)
	assert.Equal(t, "zebra", records[1].Name)
}
